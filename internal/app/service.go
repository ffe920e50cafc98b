// Package service provides the attendance service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/timeclock/internal/adapters/repository"
	"github.com/okian/timeclock/internal/domain/dedupe"
	"github.com/okian/timeclock/internal/domain/geo"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/internal/session"
	"github.com/okian/timeclock/pkg/clock"
	"github.com/okian/timeclock/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// Default configuration.
const (
	defaultIdempotencySize = 10000
	defaultTeamConcurrency = 8
	defaultGeoTimeout      = 5 * time.Second
)

// DefaultFallbackLocation is used when a clock request has no coordinates.
var DefaultFallbackLocation = geo.Point{Latitude: 40.4168, Longitude: -3.7038}

// Service implements attendance tracking on top of a repository.Store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	// inflight collapses concurrent submissions sharing an idempotency key.
	inflight singleflight.Group
	clock    clock.Clock

	// Configuration
	fallback         geo.Point
	geoTimeout       time.Duration
	naiveDateBuckets bool
	idempotencySize  int
	teamConcurrency  int

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithFallbackLocation sets the coordinate substituted for missing geolocation.
func WithFallbackLocation(p geo.Point) Option {
	return func(s *Service) {
		s.fallback = p
	}
}

// WithGeolocationTimeout bounds how long clients should wait for a position.
// It is reported through GetStats for clients to pick up.
func WithGeolocationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.geoTimeout = d
		}
	}
}

// WithNaiveDateBuckets groups events by UTC date instead of the
// organization's timezone.
func WithNaiveDateBuckets(enabled bool) Option {
	return func(s *Service) {
		s.naiveDateBuckets = enabled
	}
}

// WithIdempotencySize sets how many idempotency keys are remembered.
func WithIdempotencySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.idempotencySize = size
		}
	}
}

// WithTeamConcurrency caps parallel per-member lookups in team views.
func WithTeamConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.teamConcurrency = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		clock:           clock.Real(),
		fallback:        DefaultFallbackLocation,
		geoTimeout:      defaultGeoTimeout,
		idempotencySize: defaultIdempotencySize,
		teamConcurrency: defaultTeamConcurrency,
		logger:          logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithClock(s.clock))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.idempotencySize))
	return s
}

// Start marks the service as running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.started = true
	s.logger.Info(ctx, "attendance service started",
		logger.String("store", s.store.Driver()),
		logger.Bool("naiveDateBuckets", s.naiveDateBuckets),
		logger.Int("idempotencySize", s.idempotencySize),
	)
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "attendance service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"started":              s.started,
		"store":                s.store.Driver(),
		"naiveDateBuckets":     s.naiveDateBuckets,
		"idempotencyKeys":      s.deduper.Size(),
		"geolocationTimeoutMs": s.geoTimeout.Milliseconds(),
		"fallbackLocation":     s.fallback,
	}
}

// location returns the zone used to slice calendar days for org.
func (s *Service) location(org model.Organization) *time.Location {
	if s.naiveDateBuckets {
		return time.UTC
	}
	return org.LoadLocation()
}

// principal resolves the caller and their membership in the organization
// they act in.
func (s *Service) principal(ctx context.Context) (session.Principal, model.Member, error) {
	p, err := session.FromContext(ctx)
	if err != nil {
		return session.Principal{}, model.Member{}, err
	}
	if p.OrganizationID == "" {
		return p, model.Member{}, fmt.Errorf("%w: no organization selected", ErrForbidden)
	}
	m, err := s.store.GetMember(ctx, p.OrganizationID, p.WorkerID)
	if errors.Is(err, repository.ErrNotFound) {
		return p, model.Member{}, fmt.Errorf("%w: not a member of %s", ErrForbidden, p.OrganizationID)
	}
	if err != nil {
		return p, model.Member{}, err
	}
	return p, m, nil
}

// canSee reports whether member may read workerID's attendance.
func canSee(m model.Member, workerID string) bool {
	return m.WorkerID == workerID || m.Role.CanManageOrganization()
}
