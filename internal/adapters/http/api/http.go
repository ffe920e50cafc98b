// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	repository "github.com/okian/timeclock/internal/adapters/repository"
	service "github.com/okian/timeclock/internal/app"
	"github.com/okian/timeclock/internal/domain/clockstate"
	"github.com/okian/timeclock/internal/session"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ClockDependencies
	AttendanceDependencies
	IncidentDependencies
	ScheduleDependencies
	DirectoryDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	clockHandler      *ClockHandler
	attendanceHandler *AttendanceHandler
	incidentHandler   *IncidentHandler
	scheduleHandler   *ScheduleHandler
	directoryHandler  *DirectoryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		clockHandler:      NewClockHandler(deps),
		attendanceHandler: NewAttendanceHandler(deps),
		incidentHandler:   NewIncidentHandler(deps),
		scheduleHandler:   NewScheduleHandler(deps),
		directoryHandler:  NewDirectoryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(SessionMiddleware(h), endpoint))
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	route("POST /v1/clock", "clock", s.clockHandler.HandleClock)
	route("GET /v1/state", "state", s.clockHandler.HandleState)

	route("GET /v1/day", "day", s.attendanceHandler.HandleDay)
	route("GET /v1/days", "days", s.attendanceHandler.HandleDays)
	route("GET /v1/team-day", "team_day", s.attendanceHandler.HandleTeamDay)
	route("GET /v1/compliance", "compliance", s.attendanceHandler.HandleCompliance)

	route("POST /v1/incidents", "incidents", s.incidentHandler.HandleCreate)
	route("GET /v1/incidents", "incidents", s.incidentHandler.HandleList)
	route("POST /v1/incidents/{id}/review", "incident_review", s.incidentHandler.HandleReview)

	route("GET /v1/schedules", "schedules", s.scheduleHandler.HandleGet)
	route("PUT /v1/schedules", "schedules", s.scheduleHandler.HandleReplace)

	route("GET /v1/organizations", "organizations", s.directoryHandler.HandleListOrganizations)
	route("POST /v1/organizations", "organizations", s.directoryHandler.HandleCreateOrganization)
	route("GET /v1/organizations/{id}", "organization", s.directoryHandler.HandleGetOrganization)
	route("PUT /v1/organizations/{id}", "organization", s.directoryHandler.HandleUpdateOrganization)
	route("DELETE /v1/organizations/{id}", "organization", s.directoryHandler.HandleDeleteOrganization)
	route("GET /v1/organizations/{id}/members", "members", s.directoryHandler.HandleListMembers)
	route("POST /v1/organizations/{id}/members", "members", s.directoryHandler.HandleAddMember)
	route("POST /v1/workers", "workers", s.directoryHandler.HandleCreateWorker)
	route("DELETE /v1/workers/{id}", "worker", s.directoryHandler.HandleDeleteWorker)
}

type errorResponse struct {
	Code           string   `json:"code"`
	Message        string   `json:"message"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	RadiusMeters   *float64 `json:"radius_meters,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps domain and store errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var oor *clockstate.OutOfRangeError
	switch {
	case errors.As(err, &oor):
		d, r := oor.DistanceMeters, oor.RadiusMeters
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:           "out_of_range",
			Message:        Wrap(op, err).Error(),
			DistanceMeters: &d,
			RadiusMeters:   &r,
		})
	case errors.Is(err, session.ErrNoPrincipal):
		writeError(w, http.StatusUnauthorized, "unauthorized", Wrap(op, err))
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", Wrap(op, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, clockstate.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", Wrap(op, err))
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", Wrap(op, err))
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return WrapKind(op, ErrBadRequest, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
