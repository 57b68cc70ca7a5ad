// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the structured logger used throughout the application.
var Logger *slog.Logger

func init() {
	Logger = NewLogger(os.Stdout, false, "info")
}

// NewLogger builds a logger writing JSON for production and text otherwise.
func NewLogger(w io.Writer, production bool, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if production {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Configure replaces the package logger.
func Configure(production bool, level string) {
	Logger = NewLogger(os.Stdout, production, level)
	slog.SetDefault(Logger)
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableStoreLogging bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableStoreLogging: true,
}

// StoreLogger provides structured logging for store operations.
type StoreLogger struct {
	store  string
	logger *slog.Logger
}

// NewStoreLogger creates a new StoreLogger for the named store.
func NewStoreLogger(store string) *StoreLogger {
	return &StoreLogger{store: store}
}

// WithLogger returns a copy writing to logger instead of the package logger.
func (l *StoreLogger) WithLogger(logger *slog.Logger) *StoreLogger {
	return &StoreLogger{store: l.store, logger: logger}
}

func (l *StoreLogger) get() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return Logger
}

// LogMutation logs a committed store mutation.
func (l *StoreLogger) LogMutation(ctx context.Context, operation string, fields map[string]interface{}) {
	if !Config.EnableStoreLogging {
		return
	}
	attrs := []any{
		slog.String("store", l.store),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.get().InfoContext(ctx, "store mutation", attrs...)
}

// LogRestore logs the outcome of loading a persisted snapshot.
func (l *StoreLogger) LogRestore(ctx context.Context, fields map[string]interface{}) {
	if !Config.EnableStoreLogging {
		return
	}
	attrs := []any{slog.String("store", l.store)}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.get().DebugContext(ctx, "store restored", attrs...)
}

// LogFallback logs an unreadable snapshot replaced by the default state.
func (l *StoreLogger) LogFallback(ctx context.Context, err error) {
	l.get().WarnContext(ctx, "store snapshot unreadable, using defaults",
		slog.String("store", l.store),
		slog.String("error", err.Error()),
	)
}

// LogError logs a failed store operation.
func (l *StoreLogger) LogError(ctx context.Context, err error, operation string) {
	l.get().ErrorContext(ctx, "store error",
		slog.String("store", l.store),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
