package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/timeclock/internal/domain/model"
)

// ScheduleDependencies defines schedule reads and edits.
type ScheduleDependencies interface {
	Schedule(ctx context.Context, workerID string) ([]model.ScheduledShift, error)
	ReplaceSchedule(ctx context.Context, workerID string, shifts []model.ScheduledShift) ([]model.ScheduledShift, error)
}

// ScheduleHandler handles schedule requests.
type ScheduleHandler struct {
	deps ScheduleDependencies
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(deps ScheduleDependencies) *ScheduleHandler {
	return &ScheduleHandler{deps: deps}
}

// HandleGet handles GET /v1/schedules?worker_id requests.
func (h *ScheduleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.deps.Schedule(r.Context(), r.URL.Query().Get("worker_id"))
	if err != nil {
		writeServiceError(w, "api.get_schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

// HandleReplace handles PUT /v1/schedules?worker_id requests.
func (h *ScheduleHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_schedule"
	var req scheduleRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	shifts := make([]model.ScheduledShift, len(req.Shifts))
	for i, s := range req.Shifts {
		active := true
		if s.IsActive != nil {
			active = *s.IsActive
		}
		shifts[i] = model.ScheduledShift{
			DayOfWeek: time.Weekday(s.DayOfWeek),
			EntryTime: s.EntryTime,
			IsActive:  active,
		}
	}
	out, err := h.deps.ReplaceSchedule(r.Context(), r.URL.Query().Get("worker_id"), shifts)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
