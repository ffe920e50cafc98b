// Package compliance decides whether a worker has missed or been late for
// today's first scheduled shift.
package compliance

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/timeclock/internal/domain/model"
)

// ErrMalformedEntryTime reports an EntryTime that is not HH:MM.
var ErrMalformedEntryTime = errors.New("malformed entry time")

// Result is the advisory outcome of a check.
type Result struct {
	Missing bool               `json:"missing"`
	Kind    model.IncidentKind `json:"kind,omitempty"`
	// Scheduled is the instant of the shift that was checked, if any.
	Scheduled *time.Time `json:"scheduled,omitempty"`
}

// ParseEntryTime parses "HH:MM" (a trailing ":SS" is tolerated) into hour
// and minute.
func ParseEntryTime(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedEntryTime, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedEntryTime, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedEntryTime, s)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, 0, fmt.Errorf("%w: %q", ErrMalformedEntryTime, s)
		}
	}
	return hour, minute, nil
}

// NormalizeEntryTime returns s as zero-padded "HH:MM".
func NormalizeEntryTime(s string) (string, error) {
	hour, minute, err := ParseEntryTime(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// entryMinutes orders shifts by time of day. Malformed times sort first so
// Check reports them instead of skipping past them.
func entryMinutes(s string) int {
	hour, minute, err := ParseEntryTime(s)
	if err != nil {
		return -1
	}
	return hour*60 + minute
}

// FirstShift returns the earliest active shift scheduled for weekday.
func FirstShift(shifts []model.ScheduledShift, weekday time.Weekday) (model.ScheduledShift, bool) {
	var today []model.ScheduledShift
	for _, s := range shifts {
		if s.IsActive && s.DayOfWeek == weekday {
			today = append(today, s)
		}
	}
	if len(today) == 0 {
		return model.ScheduledShift{}, false
	}
	sort.SliceStable(today, func(i, j int) bool {
		return entryMinutes(today[i].EntryTime) < entryMinutes(today[j].EntryTime)
	})
	return today[0], true
}

// Check evaluates today's first shift against today's events. Events from
// other local dates are ignored. A malformed entry time yields a zero Result
// together with an error wrapping ErrMalformedEntryTime; callers treat it
// as not missing.
func Check(shifts []model.ScheduledShift, todayEvents []model.ClockEvent, now time.Time, loc *time.Location) (Result, error) {
	if len(shifts) == 0 {
		return Result{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	shift, ok := FirstShift(shifts, local.Weekday())
	if !ok {
		return Result{}, nil
	}

	hour, minute, err := ParseEntryTime(shift.EntryTime)
	if err != nil {
		return Result{}, err
	}

	scheduled := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if now.Before(scheduled) {
		return Result{}, nil
	}

	today := local.Format(model.DateLayout)
	var sawEntry bool
	for _, e := range todayEvents {
		if e.Kind != model.KindEntry || e.Timestamp.In(loc).Format(model.DateLayout) != today {
			continue
		}
		sawEntry = true
		if !e.Timestamp.After(scheduled) {
			return Result{Scheduled: &scheduled}, nil
		}
	}

	if !sawEntry {
		return Result{Missing: true, Kind: model.IncidentForgotEntry, Scheduled: &scheduled}, nil
	}
	return Result{Missing: true, Kind: model.IncidentLateArrival, Scheduled: &scheduled}, nil
}
