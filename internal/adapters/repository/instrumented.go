package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/pkg/metrics"
)

// instrumented records per-operation latency and failures for a Store.
type instrumented struct {
	Store
}

// Instrument wraps s so every call is measured.
func Instrument(s Store) Store {
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{Store: s}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(i.Driver(), op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled) {
		metrics.RecordStoreError(i.Driver(), op)
	}
}

func (i *instrumented) ListEvents(ctx context.Context, q EventQuery) ([]model.ClockEvent, error) {
	start := time.Now()
	out, err := i.Store.ListEvents(ctx, q)
	i.observe("list_events", start, err)
	return out, err
}

func (i *instrumented) AppendEvent(ctx context.Context, ev model.ClockEvent, guard Guard) (model.ClockEvent, error) {
	start := time.Now()
	var rejected bool
	wrapped := guard
	if guard != nil {
		wrapped = func(last *model.ClockEvent) error {
			err := guard(last)
			rejected = err != nil
			return err
		}
	}
	out, err := i.Store.AppendEvent(ctx, ev, wrapped)
	if rejected {
		i.observe("append_event", start, nil)
	} else {
		i.observe("append_event", start, err)
	}
	return out, err
}

func (i *instrumented) ListActiveShifts(ctx context.Context, workerID, organizationID string) ([]model.ScheduledShift, error) {
	start := time.Now()
	out, err := i.Store.ListActiveShifts(ctx, workerID, organizationID)
	i.observe("list_active_shifts", start, err)
	return out, err
}

func (i *instrumented) ListShifts(ctx context.Context, workerID, organizationID string) ([]model.ScheduledShift, error) {
	start := time.Now()
	out, err := i.Store.ListShifts(ctx, workerID, organizationID)
	i.observe("list_shifts", start, err)
	return out, err
}

func (i *instrumented) ReplaceShifts(ctx context.Context, workerID, organizationID string, shifts []model.ScheduledShift) ([]model.ScheduledShift, error) {
	start := time.Now()
	out, err := i.Store.ReplaceShifts(ctx, workerID, organizationID, shifts)
	i.observe("replace_shifts", start, err)
	return out, err
}

func (i *instrumented) GetOrganization(ctx context.Context, id string) (model.Organization, error) {
	start := time.Now()
	out, err := i.Store.GetOrganization(ctx, id)
	i.observe("get_organization", start, err)
	return out, err
}

func (i *instrumented) SaveOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	start := time.Now()
	out, err := i.Store.SaveOrganization(ctx, org)
	i.observe("save_organization", start, err)
	return out, err
}

func (i *instrumented) DeleteOrganization(ctx context.Context, id string) error {
	start := time.Now()
	err := i.Store.DeleteOrganization(ctx, id)
	i.observe("delete_organization", start, err)
	return err
}

func (i *instrumented) ListOrganizationsFor(ctx context.Context, workerID string) ([]model.Organization, error) {
	start := time.Now()
	out, err := i.Store.ListOrganizationsFor(ctx, workerID)
	i.observe("list_organizations_for", start, err)
	return out, err
}

func (i *instrumented) ListMembers(ctx context.Context, organizationID string) ([]model.Member, error) {
	start := time.Now()
	out, err := i.Store.ListMembers(ctx, organizationID)
	i.observe("list_members", start, err)
	return out, err
}

func (i *instrumented) GetMember(ctx context.Context, organizationID, workerID string) (model.Member, error) {
	start := time.Now()
	out, err := i.Store.GetMember(ctx, organizationID, workerID)
	i.observe("get_member", start, err)
	return out, err
}

func (i *instrumented) SaveMember(ctx context.Context, m model.Member) (model.Member, error) {
	start := time.Now()
	out, err := i.Store.SaveMember(ctx, m)
	i.observe("save_member", start, err)
	return out, err
}

func (i *instrumented) GetWorker(ctx context.Context, id string) (model.Worker, error) {
	start := time.Now()
	out, err := i.Store.GetWorker(ctx, id)
	i.observe("get_worker", start, err)
	return out, err
}

func (i *instrumented) SaveWorker(ctx context.Context, w model.Worker) (model.Worker, error) {
	start := time.Now()
	out, err := i.Store.SaveWorker(ctx, w)
	i.observe("save_worker", start, err)
	return out, err
}

func (i *instrumented) DeleteWorker(ctx context.Context, id string) error {
	start := time.Now()
	err := i.Store.DeleteWorker(ctx, id)
	i.observe("delete_worker", start, err)
	return err
}

func (i *instrumented) CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	start := time.Now()
	out, err := i.Store.CreateIncident(ctx, inc)
	i.observe("create_incident", start, err)
	return out, err
}

func (i *instrumented) GetIncident(ctx context.Context, id string) (model.Incident, error) {
	start := time.Now()
	out, err := i.Store.GetIncident(ctx, id)
	i.observe("get_incident", start, err)
	return out, err
}

func (i *instrumented) ListIncidents(ctx context.Context, f IncidentFilter) ([]model.Incident, error) {
	start := time.Now()
	out, err := i.Store.ListIncidents(ctx, f)
	i.observe("list_incidents", start, err)
	return out, err
}

func (i *instrumented) UpdateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	start := time.Now()
	out, err := i.Store.UpdateIncident(ctx, inc)
	i.observe("update_incident", start, err)
	return out, err
}
