package api

import (
	"context"
	"net/http"

	"github.com/okian/timeclock/internal/domain/compliance"
	"github.com/okian/timeclock/internal/domain/daily"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/internal/domain/types"
)

// AttendanceDependencies defines the derived attendance reads.
type AttendanceDependencies interface {
	DayRecord(ctx context.Context, workerID, date string) (model.DayRecord, error)
	WorkerReport(ctx context.Context, workerID, from, to string) (daily.Report, error)
	OrgDayView(ctx context.Context, date string) (types.TeamDay, error)
	Compliance(ctx context.Context) (compliance.Result, error)
}

// AttendanceHandler serves day records, reports and compliance.
type AttendanceHandler struct {
	deps AttendanceDependencies
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps AttendanceDependencies) *AttendanceHandler {
	return &AttendanceHandler{deps: deps}
}

// HandleDay handles GET /v1/day?worker_id&date requests.
func (h *AttendanceHandler) HandleDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rec, err := h.deps.DayRecord(r.Context(), q.Get("worker_id"), q.Get("date"))
	if err != nil {
		writeServiceError(w, "api.day", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleDays handles GET /v1/days?worker_id&from&to requests.
func (h *AttendanceHandler) HandleDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := h.deps.WorkerReport(r.Context(), q.Get("worker_id"), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, "api.days", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleTeamDay handles GET /v1/team-day?date requests.
func (h *AttendanceHandler) HandleTeamDay(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.OrgDayView(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, "api.team_day", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleCompliance handles GET /v1/compliance requests.
func (h *AttendanceHandler) HandleCompliance(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Compliance(r.Context())
	if err != nil {
		writeServiceError(w, "api.compliance", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
