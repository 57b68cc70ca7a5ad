// Package storage provides the durable key/value backends the stores persist
// through, and the typed snapshot records layered on top of them.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"pulse/internal/observability"
)

// ErrNotFound is returned by Backend.Get for a key that holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a durable key/value store. Each store owns a disjoint key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryBackend keeps values in a map. It is the test double for every store
// and the "memory" driver.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Clear drops every key, like a user wiping app data.
func (m *MemoryBackend) Clear() {
	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
}

func (m *MemoryBackend) Close() error { return nil }

// instrumented records latency and error metrics around another Backend.
type instrumented struct {
	name string
	next Backend
}

// Instrument wraps b so every call is reported under the given backend name.
func Instrument(name string, b Backend) Backend {
	return &instrumented{name: name, next: b}
}

func (i *instrumented) track(op string, start time.Time, err error) {
	observability.StorageLatency.WithLabelValues(i.name, op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		observability.StorageErrors.WithLabelValues(i.name, op).Inc()
	}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := i.next.Get(ctx, key)
	i.track("get", start, err)
	return v, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	i.track("set", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Delete(ctx, key)
	i.track("delete", start, err)
	return err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
