package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackends(t *testing.T) map[string]Backend {
	t.Helper()

	bdg, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rds := NewRedisBackend(NewRedisClient(mr.Addr()))

	sq, err := OpenSQL(DriverSQLite, filepath.Join(t.TempDir(), "pulse.db"), nil)
	require.NoError(t, err)

	backends := map[string]Backend{
		"memory": NewMemoryBackend(),
		"badger": bdg,
		"redis":  rds,
		"sqlite": sq,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			_ = b.Close()
		}
	})
	return backends
}

func TestBackends_Conformance(t *testing.T) {
	ctx := context.Background()
	for name, b := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(ctx, "pulse-user")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Set(ctx, "pulse-user", []byte(`{"id":"u1"}`)))
			got, err := b.Get(ctx, "pulse-user")
			require.NoError(t, err)
			assert.Equal(t, `{"id":"u1"}`, string(got))

			// overwrite keeps a single value
			require.NoError(t, b.Set(ctx, "pulse-user", []byte(`{"id":"u2"}`)))
			got, err = b.Get(ctx, "pulse-user")
			require.NoError(t, err)
			assert.Equal(t, `{"id":"u2"}`, string(got))

			// keys are independent
			require.NoError(t, b.Set(ctx, "pulse-posts", []byte(`[]`)))
			require.NoError(t, b.Delete(ctx, "pulse-user"))
			_, err = b.Get(ctx, "pulse-user")
			assert.ErrorIs(t, err, ErrNotFound)
			got, err = b.Get(ctx, "pulse-posts")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			// deleting a missing key is not an error
			assert.NoError(t, b.Delete(ctx, "missing"))
		})
	}
}

func TestMemoryBackend_Clear(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()
	require.NoError(t, m.Set(ctx, "a", []byte("1")))

	m.Clear()

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()
	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v))
	v[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestBadger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBadger(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "pulse-posts", []byte(`[{"id":"1"}]`)))
	require.NoError(t, b.Close())

	b, err = OpenBadger(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Get(ctx, "pulse-posts")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(got))
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		in       string
		wantAddr string
		wantPass string
		wantDB   int
		wantTLS  bool
	}{
		{"redis://:mypassword@redis:6379/1", "redis:6379", "mypassword", 1, false},
		{"rediss://:s3cret@redis.example.com:6380/2", "redis.example.com:6380", "s3cret", 2, true},
		{"redis:6379", "redis:6379", "", 0, false},
		{"", "localhost:6379", "", 0, false},
	}

	for _, tc := range tests {
		addr, pass, db, tls := ParseRedisURL(tc.in)
		assert.Equal(t, tc.wantAddr, addr, tc.in)
		assert.Equal(t, tc.wantPass, pass, tc.in)
		assert.Equal(t, tc.wantDB, db, tc.in)
		assert.Equal(t, tc.wantTLS, tls, tc.in)
	}
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "k", []byte("v")))

	b, err = Open(ctx, Options{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "nested")})
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Set(ctx, "k", []byte("v")))

	mr := miniredis.RunT(t)
	b, err = Open(ctx, Options{Driver: DriverRedis, RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer b.Close()

	_, err = Open(ctx, Options{Driver: "floppy"})
	assert.Error(t, err)
}
