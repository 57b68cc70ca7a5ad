// Package session holds the single authenticated identity and its persistence.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pulse/internal/models"
	"pulse/internal/notify"
	"pulse/internal/observability"
	"pulse/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

const storeName = "session"

// Change operations published by the store.
const (
	OpLogin         = "login"
	OpLogout        = "logout"
	OpUpdateProfile = "update_profile"
	OpReload        = "reload"
)

// Store owns the current user. IsAuthenticated is true exactly when a user is
// held. Every mutation is written through the adapter before the in-memory
// state changes.
type Store struct {
	mu      sync.RWMutex
	adapter storage.Adapter[models.User]
	user    *models.User
	version uint64
	logouts uint64

	changes *notify.Broadcaster
	log     *observability.StoreLogger
}

// NewStore restores the user from adapter. A missing or unreadable snapshot
// leaves the store logged out.
func NewStore(ctx context.Context, adapter storage.Adapter[models.User]) *Store {
	s := &Store{
		adapter: adapter,
		changes: notify.NewBroadcaster(storeName),
		log:     observability.NewStoreLogger(storeName),
	}
	s.user = s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) *models.User {
	u, ok, err := s.adapter.Load(ctx)
	if err != nil {
		s.log.LogFallback(ctx, err)
		return nil
	}
	if !ok || strings.TrimSpace(u.ID) == "" {
		return nil
	}
	s.log.LogRestore(ctx, map[string]interface{}{"user_id": u.ID})
	return &u
}

// User returns the current user and whether one is logged in.
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether a user is logged in.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Version increases with every committed change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Logouts counts the transitions from logged in to logged out, including a
// Reload that finds the snapshot gone. Subscribers compare it across
// deliveries because coalesced changes only carry the latest Op.
func (s *Store) Logouts() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logouts
}

// Login replaces the current user unconditionally and persists it. The caller
// builds the record; only a non-empty id is required.
func (s *Store) Login(ctx context.Context, user models.User) error {
	span, ctx := observability.NewSpan(ctx, "session.Login", attribute.String("user.id", user.ID))
	defer span.End()

	if strings.TrimSpace(user.ID) == "" {
		observability.RecordMutation(storeName, OpLogin, observability.ResultRejected)
		return models.NewValidationError("user id is required")
	}

	s.mu.Lock()
	if err := s.adapter.Save(ctx, user); err != nil {
		s.mu.Unlock()
		return s.fail(ctx, span, OpLogin, err)
	}
	s.user = &user
	c := s.commit(OpLogin)
	s.mu.Unlock()

	s.applied(ctx, c, map[string]interface{}{"user_id": user.ID})
	return nil
}

// Logout clears the user and removes the snapshot. Logging out while logged
// out changes nothing and publishes nothing.
func (s *Store) Logout(ctx context.Context) error {
	span, ctx := observability.NewSpan(ctx, "session.Logout")
	defer span.End()

	s.mu.Lock()
	if err := s.adapter.Clear(ctx); err != nil {
		s.mu.Unlock()
		return s.fail(ctx, span, OpLogout, err)
	}
	if s.user == nil {
		s.mu.Unlock()
		observability.RecordMutation(storeName, OpLogout, observability.ResultNoop)
		return nil
	}
	prev := s.user.ID
	s.user = nil
	s.logouts++
	c := s.commit(OpLogout)
	s.mu.Unlock()

	s.applied(ctx, c, map[string]interface{}{"user_id": prev})
	return nil
}

// UpdateProfile merges the named fields into the current user and persists
// the result. Without a logged-in user it returns models.ErrNotAuthenticated.
func (s *Store) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (models.User, error) {
	span, ctx := observability.NewSpan(ctx, "session.UpdateProfile")
	defer span.End()

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		observability.RecordMutation(storeName, OpUpdateProfile, observability.ResultRejected)
		return models.User{}, models.ErrNotAuthenticated
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		s.mu.Unlock()
		observability.RecordMutation(storeName, OpUpdateProfile, observability.ResultRejected)
		return models.User{}, models.NewValidationError("name cannot be empty")
	}

	merged := update.Apply(*s.user)
	if err := s.adapter.Save(ctx, merged); err != nil {
		s.mu.Unlock()
		return models.User{}, s.fail(ctx, span, OpUpdateProfile, err)
	}
	s.user = &merged
	c := s.commit(OpUpdateProfile)
	s.mu.Unlock()

	s.applied(ctx, c, map[string]interface{}{"user_id": merged.ID})
	return merged, nil
}

// Reload re-reads the snapshot, e.g. after storage was wiped externally.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	wasIn := s.user != nil
	s.user = s.restore(ctx)
	if wasIn && s.user == nil {
		s.logouts++
	}
	c := s.commit(OpReload)
	s.mu.Unlock()
	s.changes.Publish(c)
}

// Subscribe registers fn for change notifications. fn runs after the change
// is committed, on a goroutine owned by the store.
func (s *Store) Subscribe(fn func(notify.Change)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// Close stops change delivery.
func (s *Store) Close() {
	s.changes.Close()
}

// commit must be called with mu held.
func (s *Store) commit(op string) notify.Change {
	s.version++
	return notify.Change{Source: storeName, Op: op, Version: s.version}
}

func (s *Store) applied(ctx context.Context, c notify.Change, fields map[string]interface{}) {
	observability.RecordMutation(storeName, c.Op, observability.ResultApplied)
	s.log.LogMutation(ctx, c.Op, fields)
	s.changes.Publish(c)
}

func (s *Store) fail(ctx context.Context, span *observability.Span, op string, err error) error {
	observability.RecordMutation(storeName, op, observability.ResultFailed)
	s.log.LogError(ctx, err, op)
	span.SetError(err)
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStorageError(op, err)
}
