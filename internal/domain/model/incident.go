package model

import "time"

// IncidentKind classifies a worker-submitted explanation.
type IncidentKind string

// Incident kinds.
const (
	IncidentForgotEntry IncidentKind = "FORGOT_ENTRY"
	IncidentLateArrival IncidentKind = "LATE_ARRIVAL"
	IncidentNotWorking  IncidentKind = "NOT_WORKING"
)

// Valid reports whether k is a known incident kind.
func (k IncidentKind) Valid() bool {
	switch k {
	case IncidentForgotEntry, IncidentLateArrival, IncidentNotWorking:
		return true
	}
	return false
}

// IncidentStatus is the review state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentPending  IncidentStatus = "PENDING"
	IncidentApproved IncidentStatus = "APPROVED"
	IncidentRejected IncidentStatus = "REJECTED"
)

// Valid reports whether s is a known review state.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentPending, IncidentApproved, IncidentRejected:
		return true
	}
	return false
}

// Incident is subject to manager or admin approval.
type Incident struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	WorkerID       string         `json:"worker_id"`
	Kind           IncidentKind   `json:"kind"`
	Status         IncidentStatus `json:"status"`
	Date           string         `json:"date"` // YYYY-MM-DD
	Description    string         `json:"description"`
	ClockEventID   *string        `json:"clock_event_id"`
	ReviewedBy     *string        `json:"reviewed_by"`
	ReviewedAt     *time.Time     `json:"reviewed_at"`
	CreatedAt      time.Time      `json:"created_at"`
}
