// Package daily groups clock events into calendar days and derives worked
// hours and completeness for each day.
package daily

import (
	"sort"
	"time"

	"github.com/okian/timeclock/internal/domain/model"
)

// Pair is one matched ENTRY/EXIT span.
type Pair struct {
	Entry model.ClockEvent
	Exit  model.ClockEvent
}

// Duration returns the span length.
func (p Pair) Duration() time.Duration {
	return p.Exit.Timestamp.Sub(p.Entry.Timestamp)
}

// Pairing is the result of scanning a day's events in time order.
type Pairing struct {
	Pairs            []Pair
	TotalDuration    time.Duration
	UnmatchedEntries int // ENTRY overwritten by a later ENTRY, or still open
	UnmatchedExits   int // EXIT with no open ENTRY
}

// Unmatched returns the total number of punches that did not pair.
func (p Pairing) Unmatched() int {
	return p.UnmatchedEntries + p.UnmatchedExits
}

// Sorted returns a copy of events ordered by timestamp. Equal timestamps
// keep their input order.
func Sorted(events []model.ClockEvent) []model.ClockEvent {
	out := make([]model.ClockEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// DateKey returns the YYYY-MM-DD key for t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(model.DateLayout)
}

// GroupByLocalDate buckets events by the calendar date of their timestamp
// in loc. Each bucket keeps the input order.
func GroupByLocalDate(events []model.ClockEvent, loc *time.Location) map[string][]model.ClockEvent {
	out := make(map[string][]model.ClockEvent)
	for _, e := range events {
		k := DateKey(e.Timestamp, loc)
		out[k] = append(out[k], e)
	}
	return out
}

// PairEvents walks events chronologically with a single open-entry pointer.
// An ENTRY replaces any open entry. An EXIT closes the open entry, or is
// ignored if there is none.
func PairEvents(events []model.ClockEvent) Pairing {
	var (
		res  Pairing
		open *model.ClockEvent
	)
	for _, e := range Sorted(events) {
		switch e.Kind {
		case model.KindEntry:
			if open != nil {
				res.UnmatchedEntries++
			}
			ev := e
			open = &ev
		case model.KindExit:
			if open == nil {
				res.UnmatchedExits++
				continue
			}
			p := Pair{Entry: *open, Exit: e}
			res.Pairs = append(res.Pairs, p)
			res.TotalDuration += p.Duration()
			open = nil
		}
	}
	if open != nil {
		res.UnmatchedEntries++
	}
	return res
}

// ComputeWorkedHours returns the summed paired duration in hours, or nil
// when no pair was formed.
func ComputeWorkedHours(events []model.ClockEvent) *float64 {
	p := PairEvents(events)
	if len(p.Pairs) == 0 {
		return nil
	}
	h := p.TotalDuration.Hours()
	return &h
}

// ClassifyDayStatus reports no-entry for an empty day, complete when there is
// at least one ENTRY and one EXIT, and incomplete otherwise.
func ClassifyDayStatus(events []model.ClockEvent) model.DayStatus {
	if len(events) == 0 {
		return model.DayNoEntry
	}
	var hasEntry, hasExit bool
	for _, e := range events {
		switch e.Kind {
		case model.KindEntry:
			hasEntry = true
		case model.KindExit:
			hasExit = true
		}
	}
	if hasEntry && hasExit {
		return model.DayComplete
	}
	return model.DayIncomplete
}

// BuildDayRecord derives the summary for one worker and day. Calling it
// twice with the same inputs yields equal records.
func BuildDayRecord(workerID, date string, events []model.ClockEvent) model.DayRecord {
	sorted := Sorted(events)
	p := PairEvents(sorted)

	rec := model.DayRecord{
		WorkerID:         workerID,
		Date:             date,
		Events:           sorted,
		Status:           ClassifyDayStatus(sorted),
		UnmatchedPunches: p.Unmatched(),
	}
	if len(p.Pairs) > 0 {
		h := p.TotalDuration.Hours()
		rec.TotalHours = &h
	}
	return rec
}

// Report is a per-day breakdown over a date range.
type Report struct {
	WorkerID   string            `json:"worker_id"`
	Days       []model.DayRecord `json:"days"` // newest first
	TotalHours float64           `json:"total_hours"`
}

// BuildRange builds one record per day that has events, newest day first,
// and sums their worked hours.
func BuildRange(workerID string, events []model.ClockEvent, loc *time.Location) Report {
	groups := GroupByLocalDate(events, loc)
	dates := make([]string, 0, len(groups))
	for d := range groups {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	r := Report{WorkerID: workerID, Days: make([]model.DayRecord, 0, len(dates))}
	for _, d := range dates {
		rec := BuildDayRecord(workerID, d, groups[d])
		if rec.TotalHours != nil {
			r.TotalHours += *rec.TotalHours
		}
		r.Days = append(r.Days, rec)
	}
	return r
}

// DayBounds returns the first and last instant of the calendar date in loc.
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end, nil
}
