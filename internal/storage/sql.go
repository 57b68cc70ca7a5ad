package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Snapshot is one stored key in the SQL backend.
type Snapshot struct {
	Key       string `gorm:"column:snapshot_key;primaryKey;size:191"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// queryLogger reports failed and slow snapshot queries through slog. Routine
// queries stay quiet; the stores log each mutation themselves.
type queryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

func newQueryLogger(log *slog.Logger) queryLogger {
	return queryLogger{log: log, level: logger.Warn, slow: 200 * time.Millisecond}
}

func (l queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	l.level = level
	return l
}

func (l queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Info, slog.LevelDebug, msg, data)
}

func (l queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (l queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Error, slog.LevelError, msg, data)
}

func (l queryLogger) printf(ctx context.Context, min logger.LogLevel, level slog.Level, msg string, data []interface{}) {
	if l.level >= min {
		l.log.Log(ctx, level, fmt.Sprintf(msg, data...), slog.String("component", "gorm"))
	}
}

// Trace is called by gorm after every statement. A missing row is a normal
// Get miss.
func (l queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		stmt, _ := fc()
		l.log.ErrorContext(ctx, "snapshot query failed",
			slog.String("sql", stmt), slog.Duration("elapsed", elapsed), slog.String("error", err.Error()))
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		stmt, _ := fc()
		l.log.WarnContext(ctx, "slow snapshot query",
			slog.String("sql", stmt), slog.Duration("elapsed", elapsed))
	}
}

// SQLBackend stores snapshots as rows of the snapshots table.
type SQLBackend struct {
	db *gorm.DB
}

// OpenSQL opens a sqlite or postgres database and migrates the snapshots table.
func OpenSQL(driver, dsn string, log *slog.Logger) (*SQLBackend, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	cfg := &gorm.Config{}
	if log != nil {
		cfg.Logger = newQueryLogger(log)
	} else {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	return NewSQLBackend(db)
}

// NewSQLBackend migrates the snapshots table on an open connection.
func NewSQLBackend(db *gorm.DB) (*SQLBackend, error) {
	if err := db.AutoMigrate(&Snapshot{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (s *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var row Snapshot
	err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Value, nil
}

func (s *SQLBackend) Set(ctx context.Context, key string, value []byte) error {
	row := Snapshot{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLBackend) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&Snapshot{}).Error
}

func (s *SQLBackend) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
