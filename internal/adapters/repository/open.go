package repository

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures a store backend.
type Config struct {
	Driver      string // memory, sqlite or postgres
	SQLitePath  string
	PostgresDSN string
}

// Open builds the configured store wrapped with latency and error metrics.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		s = NewMemoryStore(opts...)
	case DriverSQLite:
		s, err = OpenSQLite(ctx, cfg.SQLitePath, opts...)
	case DriverPostgres:
		s, err = OpenPostgres(ctx, cfg.PostgresDSN, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(s), nil
}
