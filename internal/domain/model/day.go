package model

// DayStatus classifies the completeness of a worker's day.
type DayStatus string

// Day statuses.
const (
	DayComplete   DayStatus = "complete"
	DayIncomplete DayStatus = "incomplete"
	DayNoEntry    DayStatus = "no-entry"
)

// DateLayout is the calendar-date key format.
const DateLayout = "2006-01-02"

// DayRecord is the derived per-worker, per-day summary. It is rebuilt from
// raw events on every read.
type DayRecord struct {
	WorkerID         string       `json:"worker_id"`
	Date             string       `json:"date"`
	Events           []ClockEvent `json:"events"`
	Status           DayStatus    `json:"status"`
	TotalHours       *float64     `json:"total_hours"`
	UnmatchedPunches int          `json:"unmatched_punches"`
}
