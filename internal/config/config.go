// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pulse/internal/observability"
	"pulse/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	StoragePath   string `mapstructure:"STORAGE_PATH"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	DatabaseDSN   string `mapstructure:"DATABASE_DSN"`
	SessionKey    string `mapstructure:"SESSION_KEY"`
	ContentKey    string `mapstructure:"CONTENT_KEY"`

	FeedPageSize      int           `mapstructure:"FEED_PAGE_SIZE"`
	FeedPageIncrement int           `mapstructure:"FEED_PAGE_INCREMENT"`
	FeedLoadDelay     time.Duration `mapstructure:"FEED_LOAD_DELAY"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8375")
	v.SetDefault("STORAGE_DRIVER", storage.DriverBadger)
	v.SetDefault("STORAGE_PATH", "data")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SESSION_KEY", "pulse-user")
	v.SetDefault("CONTENT_KEY", "pulse-posts")
	v.SetDefault("FEED_PAGE_SIZE", 5)
	v.SetDefault("FEED_PAGE_INCREMENT", 5)
	v.SetDefault("FEED_LOAD_DELAY", "800ms")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
}

// LoadConfig loads configuration from .env, config.yml, an optional
// config.<APP_ENV>.yml profile and the environment, in increasing precedence.
func LoadConfig(paths ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if len(paths) == 0 {
		paths = []string{".", ".."}
	}

	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	env := strings.TrimSpace(v.GetString("APP_ENV"))
	if env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config.%s.yml: %w", env, err)
			}
		} else {
			observability.Logger.Info("loaded profile configuration", "file", "config."+env+".yml")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.StorageDriver = strings.ToLower(strings.TrimSpace(config.StorageDriver))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case storage.DriverBadger, storage.DriverSQLite:
		if c.StoragePath == "" {
			return fmt.Errorf("STORAGE_PATH is required for the %s driver", c.StorageDriver)
		}
	case storage.DriverRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis driver")
		}
	case storage.DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required for the postgres driver")
		}
	case storage.DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.SessionKey == "" || c.ContentKey == "" {
		return errors.New("SESSION_KEY and CONTENT_KEY are required")
	}
	if c.SessionKey == c.ContentKey {
		return errors.New("SESSION_KEY and CONTENT_KEY must differ")
	}
	if c.FeedPageSize <= 0 || c.FeedPageIncrement <= 0 {
		return errors.New("FEED_PAGE_SIZE and FEED_PAGE_INCREMENT must be positive")
	}
	if c.FeedLoadDelay < 0 {
		return errors.New("FEED_LOAD_DELAY cannot be negative")
	}
	if c.TracingEnabled && c.TracingExporter != "stdout" && c.TracingExporter != "none" {
		return fmt.Errorf("unsupported TRACING_EXPORTER %q", c.TracingExporter)
	}
	return nil
}

// IsProduction reports whether the app runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// StorageOptions maps the storage settings onto storage.Options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:   c.StorageDriver,
		Path:     c.StoragePath,
		RedisURL: c.RedisURL,
		DSN:      c.DatabaseDSN,
	}
}

// TracingConfig maps the tracing settings onto observability.TracingConfig.
func (c *Config) TracingConfig(version string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    "pulse",
		ServiceVersion: version,
		Environment:    c.Env,
		Enabled:        c.TracingEnabled,
		Exporter:       c.TracingExporter,
	}
}
