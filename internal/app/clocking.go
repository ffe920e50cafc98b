package service

import (
	"context"
	"errors"
	"fmt"

	repository "github.com/okian/timeclock/internal/adapters/repository"
	"github.com/okian/timeclock/internal/domain/clockstate"
	"github.com/okian/timeclock/internal/domain/geo"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/internal/domain/types"
	"github.com/okian/timeclock/internal/session"
	"github.com/okian/timeclock/pkg/logger"
	"github.com/okian/timeclock/pkg/metrics"
)

// ClockRequest is a worker's request to punch in or out.
type ClockRequest struct {
	Kind       model.Kind
	Latitude   *float64
	Longitude  *float64
	DeviceInfo string
	// IdempotencyKey makes retries of the same submission return the
	// originally created event.
	IdempotencyKey string
}

// Clock results reported to metrics.
const (
	resultAccepted          = "accepted"
	resultInvalidTransition = "invalid_transition"
	resultOutOfRange        = "out_of_range"
	resultError             = "error"
)

// ClockAction validates and records a punch for the caller.
func (s *Service) ClockAction(ctx context.Context, req ClockRequest) (model.ClockEvent, error) {
	p, _, err := s.principal(ctx)
	if err != nil {
		return model.ClockEvent{}, err
	}
	if !req.Kind.Valid() {
		return model.ClockEvent{}, fmt.Errorf("%w: kind must be ENTRY or EXIT", ErrInvalidArgument)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return model.ClockEvent{}, fmt.Errorf("%w: latitude and longitude go together", ErrInvalidArgument)
	}

	if req.IdempotencyKey == "" {
		return s.punch(ctx, p, req)
	}

	idemKey := p.OrganizationID + "|" + p.WorkerID + "|" + req.IdempotencyKey
	v, err, _ := s.inflight.Do(idemKey, func() (any, error) {
		if ev, ok := s.deduper.Recall(ctx, idemKey); ok {
			metrics.RecordIdempotentReplay()
			s.logger.Debug(ctx, "replaying clock action", logger.String("eventID", ev.ID))
			return ev, nil
		}
		created, err := s.punch(ctx, p, req)
		if err != nil {
			return nil, err
		}
		s.deduper.Record(ctx, idemKey, created)
		return created, nil
	})
	if err != nil {
		return model.ClockEvent{}, err
	}
	return v.(model.ClockEvent), nil
}

// punch checks the geofence and appends the event if the transition is
// legal.
func (s *Service) punch(ctx context.Context, p session.Principal, req ClockRequest) (model.ClockEvent, error) {
	org, err := s.store.GetOrganization(ctx, p.OrganizationID)
	if err != nil {
		return model.ClockEvent{}, err
	}

	var at geo.Point
	if req.Latitude != nil {
		at = geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	} else {
		at = s.fallback
		metrics.RecordFallbackLocation()
		s.logger.Warn(ctx, "geolocation unavailable, using fallback",
			logger.String("worker", p.WorkerID),
			logger.Float64("latitude", at.Latitude),
			logger.Float64("longitude", at.Longitude),
		)
	}

	if site, hasSite := org.Location(); hasSite {
		metrics.ObserveGeofenceDistance(geo.Distance(site, at))
	}
	if err := clockstate.ValidateOrganizationGeofence(org, at); err != nil {
		metrics.RecordClockAction(string(req.Kind), resultOutOfRange)
		s.logger.Info(ctx, "clock action outside geofence",
			logger.String("worker", p.WorkerID),
			logger.Error(err),
		)
		return model.ClockEvent{}, err
	}

	lat, lon := at.Latitude, at.Longitude
	ev := model.ClockEvent{
		OrganizationID: p.OrganizationID,
		WorkerID:       p.WorkerID,
		Kind:           req.Kind,
		Timestamp:      s.clock.Now().UTC(),
		Latitude:       &lat,
		Longitude:      &lon,
		DeviceInfo:     req.DeviceInfo,
	}
	created, err := s.store.AppendEvent(ctx, ev, func(last *model.ClockEvent) error {
		return clockstate.ValidateClockAction(req.Kind, last)
	})
	switch {
	case errors.Is(err, clockstate.ErrInvalidTransition):
		metrics.RecordClockAction(string(req.Kind), resultInvalidTransition)
		return model.ClockEvent{}, err
	case err != nil:
		metrics.RecordClockAction(string(req.Kind), resultError)
		return model.ClockEvent{}, fmt.Errorf("clock action: %w", err)
	}

	metrics.RecordClockAction(string(req.Kind), resultAccepted)
	s.logger.Info(ctx, "clock action accepted",
		logger.String("eventID", created.ID),
		logger.String("worker", created.WorkerID),
		logger.String("kind", string(created.Kind)),
	)
	return created, nil
}

// State returns the caller's current in/out state.
func (s *Service) State(ctx context.Context) (types.ClockState, error) {
	p, _, err := s.principal(ctx)
	if err != nil {
		return types.ClockState{}, err
	}
	last, err := s.LastEvent(ctx, p.OrganizationID, p.WorkerID)
	if err != nil {
		return types.ClockState{}, err
	}
	return types.ClockState{
		OrganizationID: p.OrganizationID,
		WorkerID:       p.WorkerID,
		LastEvent:      last,
		CanClockIn:     clockstate.CanClockIn(last),
		CanClockOut:    clockstate.CanClockOut(last),
	}, nil
}

// LastEvent returns the worker's most recent punch in the organization.
func (s *Service) LastEvent(ctx context.Context, organizationID, workerID string) (*model.ClockEvent, error) {
	events, err := s.store.ListEvents(ctx, repository.EventQuery{OrganizationID: organizationID, WorkerID: workerID})
	if err != nil {
		return nil, fmt.Errorf("last event: %w", err)
	}
	return clockstate.LastEvent(events), nil
}
