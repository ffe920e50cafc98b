package model

import "time"

// ScheduledShift is a recurring expected entry time for a worker.
type ScheduledShift struct {
	ID             string       `json:"id"`
	WorkerID       string       `json:"worker_id"`
	OrganizationID string       `json:"organization_id"`
	DayOfWeek      time.Weekday `json:"day_of_week"` // 0 = Sunday
	EntryTime      string       `json:"entry_time"`  // local wall clock "HH:MM"
	IsActive       bool         `json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
}
