package repository

import (
	"github.com/okian/timeclock/pkg/clock"
	"github.com/okian/timeclock/pkg/logger"
)

// settings are shared by every store implementation.
type settings struct {
	clock  clock.Clock
	newID  func() string
	logger logger.Logger
	// gorm only
	maxOpenConns int
	logSQL       bool
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithClock sets the clock used for CreatedAt stamps.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithIDGenerator overrides the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the logger for store diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxOpenConns caps the SQL connection pool. SQLite always uses one.
func WithMaxOpenConns(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithSQLLogging forwards GORM statements to the logger at debug level.
func WithSQLLogging(enabled bool) Option {
	return func(s *settings) {
		s.logSQL = enabled
	}
}
