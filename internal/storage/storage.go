// Package storage provides the snapshot persistence port the stores write
// through on every mutation. A snapshot is an opaque byte blob under a fixed
// name; the stores own the encoding.
package storage

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Load when no snapshot exists under the name.
// First startup hits this for every store; it is not an error condition.
var ErrNotFound = errors.New("snapshot not found")

// Store persists named snapshots.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// Memory is an in-memory Store for tests and ephemeral runs.
type Memory struct {
	mu        sync.Mutex
	snapshots map[string][]byte
}

// NewMemory returns an empty in-memory snapshot store.
func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.snapshots[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.snapshots[name] = stored
	return nil
}
