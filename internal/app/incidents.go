package service

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/okian/timeclock/internal/adapters/repository"
	"github.com/okian/timeclock/internal/domain/daily"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/pkg/logger"
	"github.com/okian/timeclock/pkg/metrics"
)

// IncidentRequest is a worker's explanation for an attendance gap.
type IncidentRequest struct {
	Kind         model.IncidentKind
	Date         string // YYYY-MM-DD, defaults to today
	Description  string
	ClockEventID *string
}

// ReportIncident files a pending incident for the caller.
func (s *Service) ReportIncident(ctx context.Context, req IncidentRequest) (model.Incident, error) {
	p, _, err := s.principal(ctx)
	if err != nil {
		return model.Incident{}, err
	}
	if !req.Kind.Valid() {
		return model.Incident{}, fmt.Errorf("%w: unknown incident kind %q", ErrInvalidArgument, req.Kind)
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return model.Incident{}, fmt.Errorf("%w: description is required", ErrInvalidArgument)
	}

	org, err := s.store.GetOrganization(ctx, p.OrganizationID)
	if err != nil {
		return model.Incident{}, err
	}
	date := req.Date
	if date == "" {
		date = daily.DateKey(s.clock.Now(), s.location(org))
	} else if _, _, err := daily.DayBounds(date, s.location(org)); err != nil {
		return model.Incident{}, fmt.Errorf("%w: date %q", ErrInvalidArgument, date)
	}

	inc, err := s.store.CreateIncident(ctx, model.Incident{
		OrganizationID: p.OrganizationID,
		WorkerID:       p.WorkerID,
		Kind:           req.Kind,
		Status:         model.IncidentPending,
		Date:           date,
		Description:    desc,
		ClockEventID:   req.ClockEventID,
	})
	if err != nil {
		return model.Incident{}, fmt.Errorf("report incident: %w", err)
	}
	metrics.RecordIncidentCreated(string(inc.Kind))
	s.logger.Info(ctx, "incident reported",
		logger.String("incident", inc.ID),
		logger.String("worker", inc.WorkerID),
		logger.String("kind", string(inc.Kind)),
	)
	return inc, nil
}

// ListIncidents returns incidents in the caller's organization. Employees
// only see their own.
func (s *Service) ListIncidents(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error) {
	p, m, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	f := repository.IncidentFilter{OrganizationID: p.OrganizationID, Status: status}
	if !m.Role.CanApproveIncidents() {
		f.WorkerID = p.WorkerID
	}
	return s.store.ListIncidents(ctx, f)
}

// ReviewIncident approves or rejects a pending incident.
func (s *Service) ReviewIncident(ctx context.Context, id string, status model.IncidentStatus) (model.Incident, error) {
	p, m, err := s.principal(ctx)
	if err != nil {
		return model.Incident{}, err
	}
	if !m.Role.CanApproveIncidents() {
		return model.Incident{}, fmt.Errorf("%w: reviewing incidents needs manager role", ErrForbidden)
	}
	if status != model.IncidentApproved && status != model.IncidentRejected {
		return model.Incident{}, fmt.Errorf("%w: status must be APPROVED or REJECTED", ErrInvalidArgument)
	}

	inc, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return model.Incident{}, err
	}
	if inc.OrganizationID != p.OrganizationID {
		return model.Incident{}, fmt.Errorf("incident %s: %w", id, repository.ErrNotFound)
	}
	if inc.Status != model.IncidentPending {
		return model.Incident{}, fmt.Errorf("%w: incident already %s", ErrConflict, inc.Status)
	}

	now := s.clock.Now().UTC()
	reviewer := p.WorkerID
	inc.Status = status
	inc.ReviewedBy = &reviewer
	inc.ReviewedAt = &now
	inc, err = s.store.UpdateIncident(ctx, inc)
	if err != nil {
		return model.Incident{}, fmt.Errorf("review incident: %w", err)
	}
	metrics.RecordIncidentReviewed(string(status))
	s.logger.Info(ctx, "incident reviewed",
		logger.String("incident", inc.ID),
		logger.String("status", string(status)),
		logger.String("reviewer", reviewer),
	)
	return inc, nil
}
