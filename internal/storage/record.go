package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt marks a stored value that could not be decoded.
var ErrCorrupt = errors.New("storage: corrupt snapshot")

// Adapter persists one snapshot of type T.
type Adapter[T any] interface {
	// Load returns the stored snapshot and true, or the zero value and false
	// when nothing is stored.
	Load(ctx context.Context) (T, bool, error)
	Save(ctx context.Context, v T) error
	Clear(ctx context.Context) error
}

// Record stores a JSON-encoded T under a single key.
type Record[T any] struct {
	backend Backend
	key     string
}

// NewRecord returns a Record for key on backend.
func NewRecord[T any](backend Backend, key string) *Record[T] {
	return &Record[T]{backend: backend, key: key}
}

// Key returns the backend key of the record.
func (r *Record[T]) Key() string { return r.key }

// Load decodes the stored value. A JSON null counts as absent. Undecodable
// bytes yield an error wrapping ErrCorrupt.
func (r *Record[T]) Load(ctx context.Context) (T, bool, error) {
	var zero T
	raw, err := r.backend.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("load %s: %w", r.key, err)
	}

	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, r.key, err)
	}
	if v == nil {
		return zero, false, nil
	}
	return *v, true, nil
}

// Save encodes v and writes it under the record key.
func (r *Record[T]) Save(ctx context.Context, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	if err := r.backend.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	return nil
}

// Clear removes the record.
func (r *Record[T]) Clear(ctx context.Context) error {
	if err := r.backend.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("clear %s: %w", r.key, err)
	}
	return nil
}

var _ Adapter[struct{}] = (*Record[struct{}])(nil)
