package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Supported drivers.
const (
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options select and configure a backend.
type Options struct {
	Driver   string
	Path     string // badger directory, or the sqlite file when DSN is empty
	RedisURL string
	DSN      string
	Logger   *slog.Logger
}

// Open builds the backend named by opts.Driver, instrumented with metrics.
func Open(ctx context.Context, opts Options) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch opts.Driver {
	case DriverBadger, "":
		b, err = OpenBadger(BadgerConfig{Path: opts.Path, SyncWrites: true, Logger: opts.Logger})
	case DriverRedis:
		b, err = OpenRedis(ctx, opts.RedisURL)
	case DriverSQLite:
		dsn := opts.DSN
		if dsn == "" {
			if opts.Path != "" {
				if err := os.MkdirAll(opts.Path, 0o750); err != nil {
					return nil, fmt.Errorf("create database directory %s: %w", opts.Path, err)
				}
			}
			dsn = filepath.Join(opts.Path, "pulse.db")
		}
		b, err = OpenSQL(DriverSQLite, dsn, opts.Logger)
	case DriverPostgres:
		b, err = OpenSQL(DriverPostgres, opts.DSN, opts.Logger)
	case DriverMemory:
		b = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", opts.Driver, err)
	}
	name := opts.Driver
	if name == "" {
		name = DriverBadger
	}
	return Instrument(name, b), nil
}
