package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/timeclock/internal/app"
	"github.com/okian/timeclock/internal/domain/model"
)

// IncidentDependencies defines incident reporting and review.
type IncidentDependencies interface {
	ReportIncident(ctx context.Context, req service.IncidentRequest) (model.Incident, error)
	ListIncidents(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error)
	ReviewIncident(ctx context.Context, id string, status model.IncidentStatus) (model.Incident, error)
}

// IncidentHandler handles incident requests.
type IncidentHandler struct {
	deps IncidentDependencies
}

// NewIncidentHandler creates a new incident handler.
func NewIncidentHandler(deps IncidentDependencies) *IncidentHandler {
	return &IncidentHandler{deps: deps}
}

// HandleCreate handles POST /v1/incidents requests.
func (h *IncidentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_incident"
	var req incidentRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	inc, err := h.deps.ReportIncident(r.Context(), service.IncidentRequest{
		Kind:         model.IncidentKind(req.Kind),
		Date:         req.Date,
		Description:  req.Description,
		ClockEventID: req.ClockEventID,
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, inc)
}

// HandleList handles GET /v1/incidents?status requests.
func (h *IncidentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_incidents"
	status := model.IncidentStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	list, err := h.deps.ListIncidents(r.Context(), status)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleReview handles POST /v1/incidents/{id}/review requests.
func (h *IncidentHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.review_incident"
	var req reviewRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	inc, err := h.deps.ReviewIncident(r.Context(), r.PathValue("id"), model.IncidentStatus(req.Status))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}
