// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"runtime"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ReadTimeoutMS, WriteTimeoutMS and IdleTimeoutMS bound HTTP connections.
	ReadTimeoutMS  int `koanf:"read_timeout_ms"`
	WriteTimeoutMS int `koanf:"write_timeout_ms"`
	IdleTimeoutMS  int `koanf:"idle_timeout_ms"`

	// StoreDriver picks the event store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresDSN is the connection string used by the postgres driver.
	PostgresDSN string `koanf:"postgres_dsn"`

	// SQLLogging traces every statement at debug level.
	SQLLogging bool `koanf:"sql_logging"`

	// NaiveDateBuckets slices calendar days in UTC instead of the
	// organization timezone.
	NaiveDateBuckets bool `koanf:"naive_date_buckets"`

	// GeolocationTimeoutMS bounds a single position lookup.
	GeolocationTimeoutMS int `koanf:"geolocation_timeout_ms"`

	// FallbackLatitude and FallbackLongitude replace an unavailable position.
	FallbackLatitude  float64 `koanf:"fallback_latitude"`
	FallbackLongitude float64 `koanf:"fallback_longitude"`

	// IdempotencyCacheSize bounds remembered Idempotency-Key submissions.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`

	// TeamConcurrency caps parallel day-record builds for the team view.
	TeamConcurrency int `koanf:"team_concurrency"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		ReadTimeoutMS:        10_000,
		WriteTimeoutMS:       10_000,
		IdleTimeoutMS:        60_000,
		StoreDriver:          DriverSQLite,
		SQLitePath:           "data/timeclock.db",
		GeolocationTimeoutMS: 5_000,
		FallbackLatitude:     40.4168,
		FallbackLongitude:    -3.7038,
		IdempotencyCacheSize: 10_000,
		TeamConcurrency:      runtime.NumCPU() * 4,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	case c.ReadTimeoutMS <= 0 || c.WriteTimeoutMS <= 0 || c.IdleTimeoutMS <= 0:
		return invalid("http timeouts must be positive")
	case c.GeolocationTimeoutMS <= 0:
		return invalid("geolocation_timeout_ms must be positive")
	case c.FallbackLatitude < -90 || c.FallbackLatitude > 90:
		return invalid("fallback_latitude out of range: %v", c.FallbackLatitude)
	case c.FallbackLongitude < -180 || c.FallbackLongitude > 180:
		return invalid("fallback_longitude out of range: %v", c.FallbackLongitude)
	case c.IdempotencyCacheSize <= 0:
		return invalid("idempotency_cache_size must be positive")
	case c.TeamConcurrency <= 0:
		return invalid("team_concurrency must be positive")
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return invalid("postgres_dsn is required for the postgres driver")
		}
	default:
		return invalid("unknown store_driver %q", c.StoreDriver)
	}
	return nil
}
