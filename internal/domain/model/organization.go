package model

import (
	"time"

	"github.com/okian/timeclock/internal/domain/geo"
)

// Role is a member's role within one organization.
type Role string

// Member roles.
const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManageOrganization reports whether r sees every member's attendance.
func (r Role) CanManageOrganization() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanApproveIncidents reports whether r may review incidents.
func (r Role) CanApproveIncidents() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanCreateOrganization reports whether r may register new worksites.
func (r Role) CanCreateOrganization() bool {
	return r == RoleAdmin
}

// Organization is a physical worksite with a registered geofence.
type Organization struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Address             string    `json:"address"`
	Latitude            *float64  `json:"latitude"`
	Longitude           *float64  `json:"longitude"`
	AllowedRadiusMeters float64   `json:"allowed_radius_meters"`
	Timezone            string    `json:"timezone"`
	CreatedAt           time.Time `json:"created_at"`
	CreatedBy           string    `json:"created_by"`
}

// Location returns the registered coordinates. ok is false when the
// organization has not set up its location yet.
func (o Organization) Location() (geo.Point, bool) {
	if o.Latitude == nil || o.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: *o.Latitude, Longitude: *o.Longitude}, true
}

// LoadLocation resolves the organization's timezone, falling back to UTC
// when it is empty or unknown.
func (o Organization) LoadLocation() *time.Location {
	if o.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Worker is a person who can belong to organizations.
type Worker struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member binds a worker to an organization with a role.
type Member struct {
	OrganizationID string    `json:"organization_id"`
	WorkerID       string    `json:"worker_id"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}
