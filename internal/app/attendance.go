package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	repository "github.com/okian/timeclock/internal/adapters/repository"
	"github.com/okian/timeclock/internal/domain/compliance"
	"github.com/okian/timeclock/internal/domain/daily"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/internal/domain/types"
	"github.com/okian/timeclock/pkg/logger"
	"github.com/okian/timeclock/pkg/metrics"
)

// maxReportDays bounds a single range query.
const maxReportDays = 366

// Compliance outcomes reported to metrics.
const (
	outcomeOK        = "ok"
	outcomeMalformed = "malformed_schedule"
)

// resolveTarget checks that the caller may read workerID's attendance.
// An empty workerID means the caller.
func (s *Service) resolveTarget(ctx context.Context, workerID string) (model.Organization, string, error) {
	p, m, err := s.principal(ctx)
	if err != nil {
		return model.Organization{}, "", err
	}
	if workerID == "" {
		workerID = p.WorkerID
	}
	if !canSee(m, workerID) {
		return model.Organization{}, "", fmt.Errorf("%w: cannot view another worker", ErrForbidden)
	}
	if workerID != p.WorkerID {
		if _, err := s.store.GetMember(ctx, p.OrganizationID, workerID); err != nil {
			return model.Organization{}, "", err
		}
	}
	org, err := s.store.GetOrganization(ctx, p.OrganizationID)
	if err != nil {
		return model.Organization{}, "", err
	}
	return org, workerID, nil
}

func (s *Service) dayEvents(ctx context.Context, organizationID, workerID, date string, loc *time.Location) ([]model.ClockEvent, error) {
	from, to, err := daily.DayBounds(date, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q: %v", ErrInvalidArgument, date, err)
	}
	return s.store.ListEvents(ctx, repository.EventQuery{
		OrganizationID: organizationID,
		WorkerID:       workerID,
		From:           &from,
		To:             &to,
	})
}

// DayRecord builds the record of workerID on date. An empty date means today.
func (s *Service) DayRecord(ctx context.Context, workerID, date string) (model.DayRecord, error) {
	org, workerID, err := s.resolveTarget(ctx, workerID)
	if err != nil {
		return model.DayRecord{}, err
	}
	loc := s.location(org)
	if date == "" {
		date = daily.DateKey(s.clock.Now(), loc)
	}
	events, err := s.dayEvents(ctx, org.ID, workerID, date, loc)
	if err != nil {
		return model.DayRecord{}, err
	}
	rec := daily.BuildDayRecord(workerID, date, events)
	metrics.RecordDayRecords(1, rec.UnmatchedPunches)
	return rec, nil
}

// WorkerReport builds one record per worked day between from and to
// (inclusive, YYYY-MM-DD), newest first, with the range total.
func (s *Service) WorkerReport(ctx context.Context, workerID, from, to string) (daily.Report, error) {
	org, workerID, err := s.resolveTarget(ctx, workerID)
	if err != nil {
		return daily.Report{}, err
	}
	loc := s.location(org)
	if to == "" {
		to = daily.DateKey(s.clock.Now(), loc)
	}
	if from == "" {
		from = to
	}
	start, _, err := daily.DayBounds(from, loc)
	if err != nil {
		return daily.Report{}, fmt.Errorf("%w: from %q", ErrInvalidArgument, from)
	}
	_, end, err := daily.DayBounds(to, loc)
	if err != nil {
		return daily.Report{}, fmt.Errorf("%w: to %q", ErrInvalidArgument, to)
	}
	if end.Before(start) {
		return daily.Report{}, fmt.Errorf("%w: from is after to", ErrInvalidArgument)
	}
	if end.Sub(start) > maxReportDays*24*time.Hour {
		return daily.Report{}, fmt.Errorf("%w: range longer than %d days", ErrInvalidArgument, maxReportDays)
	}

	events, err := s.store.ListEvents(ctx, repository.EventQuery{
		OrganizationID: org.ID,
		WorkerID:       workerID,
		From:           &start,
		To:             &end,
	})
	if err != nil {
		return daily.Report{}, fmt.Errorf("worker report: %w", err)
	}
	report := daily.BuildRange(workerID, events, loc)

	unmatched := 0
	for _, d := range report.Days {
		unmatched += d.UnmatchedPunches
	}
	metrics.RecordDayRecords(len(report.Days), unmatched)
	return report, nil
}

// OrgDayView builds the day record of every member of the caller's
// organization. Members whose worker no longer exists are skipped.
func (s *Service) OrgDayView(ctx context.Context, date string) (types.TeamDay, error) {
	p, m, err := s.principal(ctx)
	if err != nil {
		return types.TeamDay{}, err
	}
	if !m.Role.CanManageOrganization() {
		return types.TeamDay{}, fmt.Errorf("%w: team view needs manager role", ErrForbidden)
	}
	org, err := s.store.GetOrganization(ctx, p.OrganizationID)
	if err != nil {
		return types.TeamDay{}, err
	}
	loc := s.location(org)
	if date == "" {
		date = daily.DateKey(s.clock.Now(), loc)
	}
	if _, _, err := daily.DayBounds(date, loc); err != nil {
		return types.TeamDay{}, fmt.Errorf("%w: date %q", ErrInvalidArgument, date)
	}

	members, err := s.store.ListMembers(ctx, org.ID)
	if err != nil {
		return types.TeamDay{}, fmt.Errorf("team day: %w", err)
	}

	records := make([]*model.DayRecord, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.teamConcurrency)
	for i, member := range members {
		g.Go(func() error {
			if _, err := s.store.GetWorker(gctx, member.WorkerID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					s.logger.Debug(gctx, "skipping member without worker", logger.String("worker", member.WorkerID))
					return nil
				}
				return err
			}
			events, err := s.dayEvents(gctx, org.ID, member.WorkerID, date, loc)
			if err != nil {
				return err
			}
			rec := daily.BuildDayRecord(member.WorkerID, date, events)
			records[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.TeamDay{}, fmt.Errorf("team day: %w", err)
	}

	view := types.TeamDay{OrganizationID: org.ID, Date: date, Records: make([]model.DayRecord, 0, len(records))}
	unmatched := 0
	for _, r := range records {
		if r != nil {
			view.Records = append(view.Records, *r)
			unmatched += r.UnmatchedPunches
		}
	}
	metrics.RecordDayRecords(len(view.Records), unmatched)
	return view, nil
}

// Compliance reports whether the caller missed or was late for today's
// first scheduled shift. A malformed schedule is treated as compliant.
func (s *Service) Compliance(ctx context.Context) (compliance.Result, error) {
	p, _, err := s.principal(ctx)
	if err != nil {
		return compliance.Result{}, err
	}
	org, err := s.store.GetOrganization(ctx, p.OrganizationID)
	if err != nil {
		return compliance.Result{}, err
	}
	shifts, err := s.store.ListActiveShifts(ctx, p.WorkerID, p.OrganizationID)
	if err != nil {
		return compliance.Result{}, fmt.Errorf("compliance: %w", err)
	}

	now := s.clock.Now()
	loc := s.location(org)
	events, err := s.dayEvents(ctx, org.ID, p.WorkerID, daily.DateKey(now, loc), loc)
	if err != nil {
		return compliance.Result{}, fmt.Errorf("compliance: %w", err)
	}

	res, err := compliance.Check(shifts, events, now, loc)
	if err != nil {
		s.logger.Debug(ctx, "skipping compliance check", logger.String("worker", p.WorkerID), logger.Error(err))
		metrics.RecordComplianceCheck(outcomeMalformed)
		return compliance.Result{}, nil
	}
	if res.Missing {
		metrics.RecordComplianceCheck(string(res.Kind))
	} else {
		metrics.RecordComplianceCheck(outcomeOK)
	}
	return res, nil
}
