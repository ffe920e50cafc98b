// Package repository defines the attendance store interface and its
// memory and SQL implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/timeclock/internal/domain/model"
)

// EventQuery selects clock events. Zero-valued filters are ignored and the
// time bounds are inclusive.
type EventQuery struct {
	OrganizationID string
	WorkerID       string
	From           *time.Time
	To             *time.Time
}

// Guard is evaluated against the worker's last event inside the append
// critical section. A non-nil error aborts the append and is returned as is.
type Guard func(last *model.ClockEvent) error

// IncidentFilter selects incidents. Zero-valued filters are ignored.
type IncidentFilter struct {
	OrganizationID string
	WorkerID       string
	Status         model.IncidentStatus
}

// EventStore is the append-only clock event log.
type EventStore interface {
	// ListEvents returns matching events ordered by timestamp, with equal
	// timestamps in insertion order.
	ListEvents(ctx context.Context, q EventQuery) ([]model.ClockEvent, error)

	// AppendEvent runs guard against the worker's last event and inserts ev
	// atomically per (organization, worker). ID and CreatedAt are assigned
	// by the store.
	AppendEvent(ctx context.Context, ev model.ClockEvent, guard Guard) (model.ClockEvent, error)
}

// ScheduleStore holds recurring shifts.
type ScheduleStore interface {
	ListActiveShifts(ctx context.Context, workerID, organizationID string) ([]model.ScheduledShift, error)
	ListShifts(ctx context.Context, workerID, organizationID string) ([]model.ScheduledShift, error)
	// ReplaceShifts swaps the worker's whole schedule in one step.
	ReplaceShifts(ctx context.Context, workerID, organizationID string, shifts []model.ScheduledShift) ([]model.ScheduledShift, error)
}

// OrganizationStore holds worksites.
type OrganizationStore interface {
	GetOrganization(ctx context.Context, id string) (model.Organization, error)
	SaveOrganization(ctx context.Context, org model.Organization) (model.Organization, error)
	// DeleteOrganization removes the organization with its memberships,
	// shifts, events and incidents.
	DeleteOrganization(ctx context.Context, id string) error
	// ListOrganizationsFor returns the organizations workerID belongs to,
	// ordered by name.
	ListOrganizationsFor(ctx context.Context, workerID string) ([]model.Organization, error)
}

// MemberStore holds organization memberships.
type MemberStore interface {
	ListMembers(ctx context.Context, organizationID string) ([]model.Member, error)
	GetMember(ctx context.Context, organizationID, workerID string) (model.Member, error)
	SaveMember(ctx context.Context, m model.Member) (model.Member, error)
}

// WorkerStore holds people.
type WorkerStore interface {
	GetWorker(ctx context.Context, id string) (model.Worker, error)
	SaveWorker(ctx context.Context, w model.Worker) (model.Worker, error)
	// DeleteWorker removes the worker with their memberships, shifts,
	// events and incidents.
	DeleteWorker(ctx context.Context, id string) error
}

// IncidentStore holds worker-submitted incidents.
type IncidentStore interface {
	CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error)
	GetIncident(ctx context.Context, id string) (model.Incident, error)
	ListIncidents(ctx context.Context, f IncidentFilter) ([]model.Incident, error)
	UpdateIncident(ctx context.Context, inc model.Incident) (model.Incident, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	EventStore
	ScheduleStore
	OrganizationStore
	MemberStore
	WorkerStore
	IncidentStore

	// Driver names the backend, e.g. "memory" or "sqlite".
	Driver() string
	Close() error
}
