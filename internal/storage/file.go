package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
)

// File is a Store that keeps each snapshot as a JSON file in a directory.
// Writes go through a temp file plus rename, so readers never observe a
// partially written snapshot even if the process dies mid-write.
type File struct {
	dir string
}

// NewFile creates the directory if needed and returns a file-backed Store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create snapshot dir")
	}
	return &File{dir: dir}, nil
}

func (f *File) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

func (f *File) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "read snapshot %q", name)
	}
	return data, nil
}

func (f *File) Save(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp snapshot")
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		if werr != nil {
			return errors.Wrapf(werr, "write snapshot %q", name)
		}
		return errors.Wrapf(cerr, "close snapshot %q", name)
	}

	if err := os.Rename(tmpName, f.path(name)); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "commit snapshot %q", name)
	}
	return nil
}
