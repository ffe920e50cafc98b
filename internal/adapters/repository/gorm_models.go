package repository

import (
	"time"

	"github.com/okian/timeclock/internal/domain/model"
)

// eventRow carries an autoincrement Seq so rows with equal timestamps keep
// their insertion order.
type eventRow struct {
	Seq            uint64    `gorm:"primaryKey;autoIncrement"`
	ID             string    `gorm:"size:36;uniqueIndex;not null"`
	OrganizationID string    `gorm:"size:36;not null;index:idx_clock_events_scope,priority:1"`
	WorkerID       string    `gorm:"size:36;not null;index:idx_clock_events_scope,priority:2"`
	Kind           string    `gorm:"size:8;not null"`
	Timestamp      time.Time `gorm:"column:occurred_at;not null;index:idx_clock_events_scope,priority:3"`
	Latitude       *float64
	Longitude      *float64
	DeviceInfo     string
	CreatedAt      time.Time `gorm:"not null"`
}

func (eventRow) TableName() string { return "clock_events" }

func newEventRow(e model.ClockEvent) eventRow {
	return eventRow{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		WorkerID:       e.WorkerID,
		Kind:           string(e.Kind),
		Timestamp:      e.Timestamp.UTC(),
		Latitude:       e.Latitude,
		Longitude:      e.Longitude,
		DeviceInfo:     e.DeviceInfo,
		CreatedAt:      e.CreatedAt.UTC(),
	}
}

func (r eventRow) toModel() model.ClockEvent {
	return model.ClockEvent{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		WorkerID:       r.WorkerID,
		Kind:           model.Kind(r.Kind),
		Timestamp:      r.Timestamp.UTC(),
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		DeviceInfo:     r.DeviceInfo,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type shiftRow struct {
	ID             string    `gorm:"primaryKey;size:36"`
	WorkerID       string    `gorm:"size:36;not null;index:idx_shifts_scope,priority:2"`
	OrganizationID string    `gorm:"size:36;not null;index:idx_shifts_scope,priority:1"`
	DayOfWeek      int       `gorm:"not null"`
	EntryTime      string    `gorm:"size:8;not null"`
	IsActive       bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (shiftRow) TableName() string { return "scheduled_shifts" }

func newShiftRow(s model.ScheduledShift) shiftRow {
	return shiftRow{
		ID:             s.ID,
		WorkerID:       s.WorkerID,
		OrganizationID: s.OrganizationID,
		DayOfWeek:      int(s.DayOfWeek),
		EntryTime:      s.EntryTime,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt.UTC(),
	}
}

func (r shiftRow) toModel() model.ScheduledShift {
	return model.ScheduledShift{
		ID:             r.ID,
		WorkerID:       r.WorkerID,
		OrganizationID: r.OrganizationID,
		DayOfWeek:      time.Weekday(r.DayOfWeek),
		EntryTime:      r.EntryTime,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type organizationRow struct {
	ID                  string `gorm:"primaryKey;size:36"`
	Name                string `gorm:"not null"`
	Address             string
	Latitude            *float64
	Longitude           *float64
	AllowedRadiusMeters float64
	Timezone            string    `gorm:"size:64"`
	CreatedAt           time.Time `gorm:"not null"`
	CreatedBy           string    `gorm:"size:36"`
}

func (organizationRow) TableName() string { return "organizations" }

func newOrganizationRow(o model.Organization) organizationRow {
	return organizationRow{
		ID:                  o.ID,
		Name:                o.Name,
		Address:             o.Address,
		Latitude:            o.Latitude,
		Longitude:           o.Longitude,
		AllowedRadiusMeters: o.AllowedRadiusMeters,
		Timezone:            o.Timezone,
		CreatedAt:           o.CreatedAt.UTC(),
		CreatedBy:           o.CreatedBy,
	}
}

func (r organizationRow) toModel() model.Organization {
	return model.Organization{
		ID:                  r.ID,
		Name:                r.Name,
		Address:             r.Address,
		Latitude:            r.Latitude,
		Longitude:           r.Longitude,
		AllowedRadiusMeters: r.AllowedRadiusMeters,
		Timezone:            r.Timezone,
		CreatedAt:           r.CreatedAt.UTC(),
		CreatedBy:           r.CreatedBy,
	}
}

type workerRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Email     string `gorm:"index"`
	FullName  string
	CreatedAt time.Time `gorm:"not null"`
}

func (workerRow) TableName() string { return "workers" }

type memberRow struct {
	OrganizationID string    `gorm:"primaryKey;size:36"`
	WorkerID       string    `gorm:"primaryKey;size:36;index"`
	Role           string    `gorm:"size:16;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (memberRow) TableName() string { return "organization_members" }

func (r memberRow) toModel() model.Member {
	return model.Member{
		OrganizationID: r.OrganizationID,
		WorkerID:       r.WorkerID,
		Role:           model.Role(r.Role),
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

type incidentRow struct {
	ID             string `gorm:"primaryKey;size:36"`
	OrganizationID string `gorm:"size:36;not null;index"`
	WorkerID       string `gorm:"size:36;not null;index"`
	Kind           string `gorm:"size:16;not null"`
	Status         string `gorm:"size:16;not null;index"`
	Date           string `gorm:"size:10;not null"`
	Description    string `gorm:"not null"`
	ClockEventID   *string
	ReviewedBy     *string
	ReviewedAt     *time.Time
	CreatedAt      time.Time `gorm:"not null"`
}

func (incidentRow) TableName() string { return "incidents" }

func newIncidentRow(i model.Incident) incidentRow {
	return incidentRow{
		ID:             i.ID,
		OrganizationID: i.OrganizationID,
		WorkerID:       i.WorkerID,
		Kind:           string(i.Kind),
		Status:         string(i.Status),
		Date:           i.Date,
		Description:    i.Description,
		ClockEventID:   i.ClockEventID,
		ReviewedBy:     i.ReviewedBy,
		ReviewedAt:     i.ReviewedAt,
		CreatedAt:      i.CreatedAt.UTC(),
	}
}

func (r incidentRow) toModel() model.Incident {
	inc := model.Incident{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		WorkerID:       r.WorkerID,
		Kind:           model.IncidentKind(r.Kind),
		Status:         model.IncidentStatus(r.Status),
		Date:           r.Date,
		Description:    r.Description,
		ClockEventID:   r.ClockEventID,
		ReviewedBy:     r.ReviewedBy,
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if r.ReviewedAt != nil {
		t := r.ReviewedAt.UTC()
		inc.ReviewedAt = &t
	}
	return inc
}

func allModels() []any {
	return []any{
		&organizationRow{},
		&workerRow{},
		&memberRow{},
		&shiftRow{},
		&eventRow{},
		&incidentRow{},
	}
}
