package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/timeclock/internal/app"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/internal/domain/types"
)

// ClockDependencies defines the clock-in/out operations.
type ClockDependencies interface {
	ClockAction(ctx context.Context, req service.ClockRequest) (model.ClockEvent, error)
	State(ctx context.Context) (types.ClockState, error)
}

// ClockHandler handles punches and state reads.
type ClockHandler struct {
	deps ClockDependencies
}

// NewClockHandler creates a new clock handler.
func NewClockHandler(deps ClockDependencies) *ClockHandler {
	return &ClockHandler{deps: deps}
}

// HandleClock handles POST /v1/clock requests.
func (h *ClockHandler) HandleClock(w http.ResponseWriter, r *http.Request) {
	const op = "api.clock"
	var req clockRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	ev, err := h.deps.ClockAction(r.Context(), service.ClockRequest{
		Kind:           model.Kind(req.Kind),
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		DeviceInfo:     req.DeviceInfo,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)),
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleState handles GET /v1/state requests.
func (h *ClockHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.State(r.Context())
	if err != nil {
		writeServiceError(w, "api.state", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
