// Package types contains read models shared by the service and the API.
package types

import "github.com/okian/timeclock/internal/domain/model"

// ClockState is a worker's current position in the in/out state machine.
type ClockState struct {
	OrganizationID string            `json:"organization_id"`
	WorkerID       string            `json:"worker_id"`
	LastEvent      *model.ClockEvent `json:"last_event"`
	CanClockIn     bool              `json:"can_clock_in"`
	CanClockOut    bool              `json:"can_clock_out"`
}

// TeamDay is the attendance of every member of an organization on one date.
type TeamDay struct {
	OrganizationID string            `json:"organization_id"`
	Date           string            `json:"date"`
	Records        []model.DayRecord `json:"records"`
}
