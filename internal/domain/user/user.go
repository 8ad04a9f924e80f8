// Package user owns the authenticated identity and the order history.
//
// Credential verification is a port: the storefront ships with AcceptAll,
// which admits any non-empty email/password pair and synthesizes a profile
// from the email. A real verifier can be swapped in without touching the
// store.
package user

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmstore/storefront/internal/domain/order"
	"github.com/mmstore/storefront/internal/storage"
)

// SnapshotName is the fixed name of the identity + order history record.
const SnapshotName = "user"

// GuestID identifies orders placed without an authenticated user.
const GuestID = "guest"

var (
	// ErrInvalidCredentials is returned when the verifier rejects a login or
	// registration attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated is returned by profile operations without a user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrOrderNotFound is returned by FindOrder for unknown order ids.
	ErrOrderNotFound = errors.New("order not found")
)

// User is the authenticated identity.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ProfileUpdate carries the fields of a partial profile edit; nil fields are
// left unchanged.
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Avatar *string
}

// CredentialVerifier decides whether a credential pair is acceptable.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) error
}

// AcceptAll is the demo verifier: any non-empty email and password pass.
type AcceptAll struct{}

func (AcceptAll) Verify(_ context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// userNamespace seeds deterministic user ids, so the same email maps to the
// same id across login/logout cycles and its order history stays reachable.
var userNamespace = uuid.MustParse("7b0dcb3a-9e54-4e82-8f1c-2f6b7a3d9c11")

// Store holds the current user and the order history, keyed by user id and
// persisted write-through. Logging out clears identity only; order history
// survives and reattaches on the next login with the same email.
type Store struct {
	mu        sync.Mutex
	user      *User
	orders    map[string][]order.Order
	snapshots storage.Store
	verifier  CredentialVerifier
	sessions  *Sessions
	lg        *zap.Logger
}

type snapshot struct {
	User   *User                    `json:"user,omitempty"`
	Orders map[string][]order.Order `json:"orders"`
}

// NewStore hydrates a Store from the snapshot store. A missing snapshot
// yields a guest session with no history.
func NewStore(
	ctx context.Context,
	snapshots storage.Store,
	verifier CredentialVerifier,
	sessions *Sessions,
	lg *zap.Logger,
) (*Store, error) {
	s := &Store{
		orders:    make(map[string][]order.Order),
		snapshots: snapshots,
		verifier:  verifier,
		sessions:  sessions,
		lg:        lg.Named("user"),
	}

	data, err := snapshots.Load(ctx, SnapshotName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s, nil
		}
		return nil, errors.Wrap(err, "load user snapshot")
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, "decode user snapshot")
	}
	s.user = snap.User
	if snap.Orders != nil {
		s.orders = snap.Orders
	}
	return s, nil
}

// Login verifies the credentials and establishes the user identity. The
// display name is derived from the email local part. Returns the user and a
// signed session token.
func (s *Store) Login(ctx context.Context, email, password string) (*User, string, error) {
	if err := s.verifier.Verify(ctx, email, password); err != nil {
		return nil, "", err
	}
	name := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		name = email[:i]
	}
	return s.establish(ctx, email, name)
}

// Register verifies the credentials and establishes the user identity under
// the provided display name.
func (s *Store) Register(ctx context.Context, name, email, password string) (*User, string, error) {
	if name == "" {
		return nil, "", ErrInvalidCredentials
	}
	if err := s.verifier.Verify(ctx, email, password); err != nil {
		return nil, "", err
	}
	return s.establish(ctx, email, name)
}

func (s *Store) establish(ctx context.Context, email, name string) (*User, string, error) {
	u := &User{
		ID:     uuid.NewSHA1(userNamespace, []byte(strings.ToLower(email))).String(),
		Email:  email,
		Name:   name,
		Avatar: "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random",
	}

	token, err := s.sessions.Issue(*u)
	if err != nil {
		return nil, "", errors.Wrap(err, "issue session")
	}

	s.mu.Lock()
	s.user = u
	s.persist(ctx)
	s.mu.Unlock()

	out := *u
	return &out, token, nil
}

// Authenticate verifies a session token and checks that it belongs to the
// currently logged-in user. Tokens from other users, expired tokens, and any
// token presented after logout all fail with ErrNotAuthenticated.
func (s *Store) Authenticate(token string) error {
	id, err := s.sessions.Verify(token)
	if err != nil {
		return ErrNotAuthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != id {
		return ErrNotAuthenticated
	}
	return nil
}

// Logout clears the identity. Order history is retained, keyed by user id.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.persist(ctx)
}

// Current returns a copy of the logged-in user, or nil for guests.
func (s *Store) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// CurrentID returns the logged-in user id, or GuestID.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return GuestID
	}
	return s.user.ID
}

// UpdateProfile applies a partial edit to the logged-in user.
func (s *Store) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, ErrNotAuthenticated
	}
	if upd.Name != nil {
		s.user.Name = *upd.Name
	}
	if upd.Email != nil {
		s.user.Email = *upd.Email
	}
	if upd.Avatar != nil {
		s.user.Avatar = *upd.Avatar
	}
	s.persist(ctx)
	u := *s.user
	return &u, nil
}

// AddOrder appends the order to the history bucket of its user id.
func (s *Store) AddOrder(ctx context.Context, o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.UserID] = append(s.orders[o.UserID], o)
	s.persist(ctx)
}

// FindOrder looks an order up by id across all history buckets.
func (s *Store) FindOrder(id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bucket := range s.orders {
		for i := range bucket {
			if bucket[i].ID == id {
				o := bucket[i]
				return &o, nil
			}
		}
	}
	return nil, ErrOrderNotFound
}

// Orders returns the history of the logged-in user (or the guest bucket) in
// placement order.
func (s *Store) Orders() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := GuestID
	if s.user != nil {
		key = s.user.ID
	}
	bucket := s.orders[key]
	out := make([]order.Order, len(bucket))
	copy(out, bucket)
	return out
}

// persist writes the current state through. Must be called with s.mu held.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(snapshot{User: s.user, Orders: s.orders})
	if err != nil {
		s.lg.Error("encode user snapshot", zap.Error(err))
		return
	}
	if err := s.snapshots.Save(ctx, SnapshotName, data); err != nil {
		s.lg.Error("persist user snapshot", zap.Error(err))
	}
}
