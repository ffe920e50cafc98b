package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/okian/timeclock/internal/adapters/repository"
	"github.com/okian/timeclock/internal/domain/compliance"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/internal/session"
	"github.com/okian/timeclock/pkg/logger"
)

// Schedule returns every shift of workerID, active or not. An empty
// workerID means the caller.
func (s *Service) Schedule(ctx context.Context, workerID string) ([]model.ScheduledShift, error) {
	org, workerID, err := s.resolveTarget(ctx, workerID)
	if err != nil {
		return nil, err
	}
	return s.store.ListShifts(ctx, workerID, org.ID)
}

// ReplaceSchedule swaps workerID's schedule for shifts.
func (s *Service) ReplaceSchedule(ctx context.Context, workerID string, shifts []model.ScheduledShift) ([]model.ScheduledShift, error) {
	p, m, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	if !m.Role.CanManageOrganization() {
		return nil, fmt.Errorf("%w: editing schedules needs manager role", ErrForbidden)
	}
	if workerID == "" {
		return nil, fmt.Errorf("%w: worker is required", ErrInvalidArgument)
	}
	if _, err := s.store.GetMember(ctx, p.OrganizationID, workerID); err != nil {
		return nil, err
	}
	shifts = append([]model.ScheduledShift(nil), shifts...)
	for i, sh := range shifts {
		if sh.DayOfWeek < time.Sunday || sh.DayOfWeek > time.Saturday {
			return nil, fmt.Errorf("%w: shift %d: day_of_week must be 0..6", ErrInvalidArgument, i)
		}
		entry, err := compliance.NormalizeEntryTime(sh.EntryTime)
		if err != nil {
			return nil, fmt.Errorf("%w: shift %d: %v", ErrInvalidArgument, i, err)
		}
		shifts[i].EntryTime = entry
	}

	out, err := s.store.ReplaceShifts(ctx, workerID, p.OrganizationID, shifts)
	if err != nil {
		return nil, fmt.Errorf("replace schedule: %w", err)
	}
	s.logger.Info(ctx, "schedule replaced",
		logger.String("worker", workerID),
		logger.Int("shifts", len(out)),
	)
	return out, nil
}

func validateOrganization(org model.Organization) error {
	if strings.TrimSpace(org.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if org.AllowedRadiusMeters < 0 {
		return fmt.Errorf("%w: allowed radius must not be negative", ErrInvalidArgument)
	}
	if (org.Latitude == nil) != (org.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude go together", ErrInvalidArgument)
	}
	if org.Timezone != "" {
		if _, err := time.LoadLocation(org.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q", ErrInvalidArgument, org.Timezone)
		}
	}
	return nil
}

// CreateOrganization registers a worksite and makes the caller its admin.
// A caller acting inside an organization must be allowed to create more.
func (s *Service) CreateOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	p, err := session.FromContext(ctx)
	if err != nil {
		return model.Organization{}, err
	}
	if p.OrganizationID != "" {
		_, m, err := s.principal(ctx)
		if err != nil {
			return model.Organization{}, err
		}
		if !m.Role.CanCreateOrganization() {
			return model.Organization{}, fmt.Errorf("%w: creating organizations needs admin role", ErrForbidden)
		}
	}
	if _, err := s.store.GetWorker(ctx, p.WorkerID); err != nil {
		return model.Organization{}, err
	}
	if err := validateOrganization(org); err != nil {
		return model.Organization{}, err
	}

	org.ID = ""
	org.CreatedAt = time.Time{}
	org.CreatedBy = p.WorkerID
	created, err := s.store.SaveOrganization(ctx, org)
	if err != nil {
		return model.Organization{}, fmt.Errorf("create organization: %w", err)
	}
	if _, err := s.store.SaveMember(ctx, model.Member{
		OrganizationID: created.ID,
		WorkerID:       p.WorkerID,
		Role:           model.RoleAdmin,
	}); err != nil {
		return model.Organization{}, fmt.Errorf("create organization: %w", err)
	}
	s.logger.Info(ctx, "organization created",
		logger.String("organization", created.ID),
		logger.String("admin", p.WorkerID),
	)
	return created, nil
}

// Organization returns id if the caller is a member of it.
func (s *Service) Organization(ctx context.Context, id string) (model.Organization, error) {
	p, err := session.FromContext(ctx)
	if err != nil {
		return model.Organization{}, err
	}
	if _, err := s.store.GetMember(ctx, id, p.WorkerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Organization{}, fmt.Errorf("%w: not a member of %s", ErrForbidden, id)
		}
		return model.Organization{}, err
	}
	return s.store.GetOrganization(ctx, id)
}

// UpdateOrganization changes a worksite's settings. Only its admins may.
func (s *Service) UpdateOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	if err := s.requireRole(ctx, org.ID, model.RoleAdmin); err != nil {
		return model.Organization{}, err
	}
	if err := validateOrganization(org); err != nil {
		return model.Organization{}, err
	}
	current, err := s.store.GetOrganization(ctx, org.ID)
	if err != nil {
		return model.Organization{}, err
	}
	org.CreatedAt = current.CreatedAt
	org.CreatedBy = current.CreatedBy
	return s.store.SaveOrganization(ctx, org)
}

// Organizations lists the worksites the caller belongs to. It needs a worker
// but no active organization.
func (s *Service) Organizations(ctx context.Context) ([]model.Organization, error) {
	p, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListOrganizationsFor(ctx, p.WorkerID)
}

// DeleteOrganization removes a worksite together with its memberships,
// schedules, events and incidents. Only its admins may.
func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	if err := s.requireRole(ctx, id, model.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.DeleteOrganization(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "organization deleted", logger.String("organization", id))
	return nil
}

// Members lists the members of organizationID. Managers and admins only.
func (s *Service) Members(ctx context.Context, organizationID string) ([]model.Member, error) {
	if err := s.requireRole(ctx, organizationID, model.RoleManager); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, organizationID)
}

// AddMember adds workerID to organizationID with role, or changes the role
// of an existing member. Admins only.
func (s *Service) AddMember(ctx context.Context, organizationID, workerID string, role model.Role) (model.Member, error) {
	if err := s.requireRole(ctx, organizationID, model.RoleAdmin); err != nil {
		return model.Member{}, err
	}
	if !role.Valid() {
		return model.Member{}, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	m, err := s.store.SaveMember(ctx, model.Member{OrganizationID: organizationID, WorkerID: workerID, Role: role})
	if err != nil {
		return model.Member{}, err
	}
	s.logger.Info(ctx, "member saved",
		logger.String("organization", organizationID),
		logger.String("worker", workerID),
		logger.String("role", string(role)),
	)
	return m, nil
}

// CreateWorker registers a person. Identity is issued externally, so no
// principal is required.
func (s *Service) CreateWorker(ctx context.Context, w model.Worker) (model.Worker, error) {
	w.Email = strings.TrimSpace(w.Email)
	w.FullName = strings.TrimSpace(w.FullName)
	if w.Email == "" || w.FullName == "" {
		return model.Worker{}, fmt.Errorf("%w: email and full name are required", ErrInvalidArgument)
	}
	w.CreatedAt = time.Time{}
	return s.store.SaveWorker(ctx, w)
}

// DeleteWorker removes a worker and everything they own. Workers may delete
// themselves; admins may delete members of their organization.
func (s *Service) DeleteWorker(ctx context.Context, workerID string) error {
	p, err := session.FromContext(ctx)
	if err != nil {
		return err
	}
	if workerID != p.WorkerID {
		if err := s.requireRole(ctx, p.OrganizationID, model.RoleAdmin); err != nil {
			return err
		}
		if _, err := s.store.GetMember(ctx, p.OrganizationID, workerID); err != nil {
			return err
		}
	}
	if err := s.store.DeleteWorker(ctx, workerID); err != nil {
		return err
	}
	s.logger.Info(ctx, "worker deleted", logger.String("worker", workerID))
	return nil
}

// requireRole checks that the caller is a member of organizationID with at
// least min privileges.
func (s *Service) requireRole(ctx context.Context, organizationID string, min model.Role) error {
	p, err := session.FromContext(ctx)
	if err != nil {
		return err
	}
	m, err := s.store.GetMember(ctx, organizationID, p.WorkerID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: not a member of %s", ErrForbidden, organizationID)
	}
	if err != nil {
		return err
	}
	if rank(m.Role) < rank(min) {
		return fmt.Errorf("%w: needs %s role", ErrForbidden, min)
	}
	return nil
}

func rank(r model.Role) int {
	switch r {
	case model.RoleAdmin:
		return 3
	case model.RoleManager:
		return 2
	case model.RoleEmployee:
		return 1
	}
	return 0
}
