// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/timeclock/internal/domain/geo"
)

// Kind is the direction of a clock punch.
type Kind string

// Punch kinds.
const (
	KindEntry Kind = "ENTRY"
	KindExit  Kind = "EXIT"
)

// Valid reports whether k is a known punch kind.
func (k Kind) Valid() bool {
	return k == KindEntry || k == KindExit
}

// ClockEvent is a single immutable ENTRY or EXIT punch.
type ClockEvent struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	WorkerID       string    `json:"worker_id"`
	Kind           Kind      `json:"kind"`
	Timestamp      time.Time `json:"timestamp"`  // ordering key for every derivation
	Latitude       *float64  `json:"latitude"`   // nil when geolocation was unavailable
	Longitude      *float64  `json:"longitude"`  // nil when geolocation was unavailable
	DeviceInfo     string    `json:"device_info"`
	CreatedAt      time.Time `json:"created_at"` // assigned by the store
}

// Location returns the reported position, if any.
func (e ClockEvent) Location() (geo.Point, bool) {
	if e.Latitude == nil || e.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: *e.Latitude, Longitude: *e.Longitude}, true
}
