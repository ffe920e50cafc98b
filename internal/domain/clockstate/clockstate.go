// Package clockstate resolves a worker's current in/out state and decides
// whether a new clock action is legal.
package clockstate

import (
	"github.com/okian/timeclock/internal/domain/geo"
	"github.com/okian/timeclock/internal/domain/model"
)

// LastEvent returns the event with the greatest timestamp, or nil when
// events is empty. On equal timestamps the later element wins, so callers
// pass events in insertion order.
func LastEvent(events []model.ClockEvent) *model.ClockEvent {
	var last *model.ClockEvent
	for i := range events {
		if last == nil || !events[i].Timestamp.Before(last.Timestamp) {
			last = &events[i]
		}
	}
	if last == nil {
		return nil
	}
	ev := *last
	return &ev
}

// CanClockIn reports whether an ENTRY may follow last.
func CanClockIn(last *model.ClockEvent) bool {
	return last == nil || last.Kind == model.KindExit
}

// CanClockOut reports whether an EXIT may follow last.
func CanClockOut(last *model.ClockEvent) bool {
	return last != nil && last.Kind == model.KindEntry
}

// ValidateClockAction checks kind against the two-state machine
// OUT -(ENTRY)-> IN -(EXIT)-> OUT.
func ValidateClockAction(kind model.Kind, last *model.ClockEvent) error {
	ok := false
	switch kind {
	case model.KindEntry:
		ok = CanClockIn(last)
	case model.KindExit:
		ok = CanClockOut(last)
	}
	if ok {
		return nil
	}

	e := &InvalidTransitionError{Requested: kind}
	if last != nil {
		k := last.Kind
		e.Last = &k
	}
	return e
}

// ValidateGeofence rejects positions strictly farther than radius meters
// from site. A distance equal to the radius is accepted.
func ValidateGeofence(site geo.Point, radiusMeters float64, at geo.Point) error {
	d := geo.Distance(site, at)
	if d > radiusMeters {
		return &OutOfRangeError{DistanceMeters: d, RadiusMeters: radiusMeters}
	}
	return nil
}

// ValidateOrganizationGeofence applies ValidateGeofence with the
// organization's site. Organizations without coordinates are not checked.
func ValidateOrganizationGeofence(org model.Organization, at geo.Point) error {
	site, ok := org.Location()
	if !ok {
		return nil
	}
	return ValidateGeofence(site, org.AllowedRadiusMeters, at)
}
