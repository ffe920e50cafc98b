package clockstate

import (
	"errors"
	"fmt"

	"github.com/okian/timeclock/internal/domain/model"
)

// Sentinel kinds for clock action errors.
var (
	ErrInvalidTransition = errors.New("invalid clock transition")
	ErrOutOfRange        = errors.New("outside allowed radius")
)

// InvalidTransitionError reports a punch that does not follow the last one.
type InvalidTransitionError struct {
	Requested model.Kind
	Last      *model.Kind // nil when the worker has no events
}

func (e *InvalidTransitionError) Error() string {
	last := "none"
	if e.Last != nil {
		last = string(*e.Last)
	}
	return fmt.Sprintf("%s: %s after %s", ErrInvalidTransition, e.Requested, last)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// OutOfRangeError reports a punch made too far from the worksite.
type OutOfRangeError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %.0fm from worksite, limit %.0fm", ErrOutOfRange, e.DistanceMeters, e.RadiusMeters)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }
