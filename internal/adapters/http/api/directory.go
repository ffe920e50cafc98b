package api

import (
	"context"
	"net/http"

	"github.com/okian/timeclock/internal/domain/model"
)

// DirectoryDependencies defines organization, member and worker management.
type DirectoryDependencies interface {
	CreateOrganization(ctx context.Context, org model.Organization) (model.Organization, error)
	Organization(ctx context.Context, id string) (model.Organization, error)
	UpdateOrganization(ctx context.Context, org model.Organization) (model.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
	Organizations(ctx context.Context) ([]model.Organization, error)
	Members(ctx context.Context, organizationID string) ([]model.Member, error)
	AddMember(ctx context.Context, organizationID, workerID string, role model.Role) (model.Member, error)
	CreateWorker(ctx context.Context, w model.Worker) (model.Worker, error)
	DeleteWorker(ctx context.Context, workerID string) error
}

// DirectoryHandler handles organization and worker administration.
type DirectoryHandler struct {
	deps DirectoryDependencies
}

// NewDirectoryHandler creates a new directory handler.
func NewDirectoryHandler(deps DirectoryDependencies) *DirectoryHandler {
	return &DirectoryHandler{deps: deps}
}

func (req organizationRequest) toModel(id string) model.Organization {
	return model.Organization{
		ID:                  id,
		Name:                req.Name,
		Address:             req.Address,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		AllowedRadiusMeters: req.AllowedRadiusMeters,
		Timezone:            req.Timezone,
	}
}

// HandleCreateOrganization handles POST /v1/organizations requests.
func (h *DirectoryHandler) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_organization"
	var req organizationRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	org, err := h.deps.CreateOrganization(r.Context(), req.toModel(""))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// HandleGetOrganization handles GET /v1/organizations/{id} requests.
func (h *DirectoryHandler) HandleGetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.deps.Organization(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "api.get_organization", err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// HandleUpdateOrganization handles PUT /v1/organizations/{id} requests.
func (h *DirectoryHandler) HandleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_organization"
	var req organizationRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	org, err := h.deps.UpdateOrganization(r.Context(), req.toModel(r.PathValue("id")))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// HandleListOrganizations handles GET /v1/organizations requests. It lists
// the caller's worksites.
func (h *DirectoryHandler) HandleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.deps.Organizations(r.Context())
	if err != nil {
		writeServiceError(w, "api.list_organizations", err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

// HandleDeleteOrganization handles DELETE /v1/organizations/{id} requests.
func (h *DirectoryHandler) HandleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteOrganization(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "api.delete_organization", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListMembers handles GET /v1/organizations/{id}/members requests.
func (h *DirectoryHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	ms, err := h.deps.Members(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "api.list_members", err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// HandleAddMember handles POST /v1/organizations/{id}/members requests.
func (h *DirectoryHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_member"
	var req memberRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	m, err := h.deps.AddMember(r.Context(), r.PathValue("id"), req.WorkerID, model.Role(req.Role))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleCreateWorker handles POST /v1/workers requests.
func (h *DirectoryHandler) HandleCreateWorker(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_worker"
	var req workerRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	wk, err := h.deps.CreateWorker(r.Context(), model.Worker{Email: req.Email, FullName: req.FullName})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, wk)
}

// HandleDeleteWorker handles DELETE /v1/workers/{id} requests.
func (h *DirectoryHandler) HandleDeleteWorker(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteWorker(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "api.delete_worker", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
