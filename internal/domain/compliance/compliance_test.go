package compliance_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeclock/internal/domain/compliance"
	"github.com/okian/timeclock/internal/domain/model"
)

// 2024-03-04 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, time.UTC)
}

func entry(ts time.Time) model.ClockEvent {
	return model.ClockEvent{Kind: model.KindEntry, Timestamp: ts}
}

func TestCheck(t *testing.T) {
	shifts := []model.ScheduledShift{{
		DayOfWeek: time.Monday,
		EntryTime: "09:00",
		IsActive:  true,
	}}

	Convey("Given a Monday 09:00 shift", t, func() {
		Convey("When it is 09:05 and there is no ENTRY", func() {
			res, err := compliance.Check(shifts, nil, monday(9, 5), time.UTC)

			Convey("Then the entry was forgotten", func() {
				So(err, ShouldBeNil)
				So(res.Missing, ShouldBeTrue)
				So(res.Kind, ShouldEqual, model.IncidentForgotEntry)
				So(res.Scheduled.Equal(monday(9, 0)), ShouldBeTrue)
			})
		})

		Convey("When the worker clocked in at 09:10", func() {
			res, err := compliance.Check(shifts, []model.ClockEvent{entry(monday(9, 10))}, monday(9, 15), time.UTC)

			Convey("Then it is a late arrival", func() {
				So(err, ShouldBeNil)
				So(res.Missing, ShouldBeTrue)
				So(res.Kind, ShouldEqual, model.IncidentLateArrival)
			})
		})

		Convey("When the worker clocked in at 08:55", func() {
			res, err := compliance.Check(shifts, []model.ClockEvent{entry(monday(8, 55))}, monday(9, 15), time.UTC)

			Convey("Then nothing is missing", func() {
				So(err, ShouldBeNil)
				So(res.Missing, ShouldBeFalse)
			})
		})

		Convey("When the worker clocked in exactly at 09:00", func() {
			res, _ := compliance.Check(shifts, []model.ClockEvent{entry(monday(9, 0))}, monday(9, 15), time.UTC)
			So(res.Missing, ShouldBeFalse)
		})

		Convey("When it is still before the shift", func() {
			res, _ := compliance.Check(shifts, nil, monday(8, 59), time.UTC)
			So(res.Missing, ShouldBeFalse)
		})

		Convey("When only an EXIT exists today", func() {
			exit := model.ClockEvent{Kind: model.KindExit, Timestamp: monday(8, 0)}
			res, _ := compliance.Check(shifts, []model.ClockEvent{exit}, monday(9, 5), time.UTC)
			So(res.Kind, ShouldEqual, model.IncidentForgotEntry)
		})

		Convey("When the only ENTRY is from yesterday", func() {
			res, _ := compliance.Check(shifts, []model.ClockEvent{entry(monday(8, 0).AddDate(0, 0, -1))}, monday(9, 5), time.UTC)
			So(res.Kind, ShouldEqual, model.IncidentForgotEntry)
		})

		Convey("When it is Tuesday", func() {
			res, _ := compliance.Check(shifts, nil, monday(10, 0).AddDate(0, 0, 1), time.UTC)
			So(res.Missing, ShouldBeFalse)
		})
	})

	Convey("Given no shifts", t, func() {
		res, err := compliance.Check(nil, nil, monday(12, 0), time.UTC)
		So(err, ShouldBeNil)
		So(res.Missing, ShouldBeFalse)
	})

	Convey("Given an inactive shift", t, func() {
		inactive := []model.ScheduledShift{{DayOfWeek: time.Monday, EntryTime: "09:00"}}
		res, _ := compliance.Check(inactive, nil, monday(12, 0), time.UTC)
		So(res.Missing, ShouldBeFalse)
	})

	Convey("Given split shifts", t, func() {
		split := []model.ScheduledShift{
			{DayOfWeek: time.Monday, EntryTime: "17:00", IsActive: true},
			{DayOfWeek: time.Monday, EntryTime: "09:00", IsActive: true},
		}

		Convey("Then the earliest one is checked", func() {
			res, _ := compliance.Check(split, nil, monday(10, 0), time.UTC)
			So(res.Kind, ShouldEqual, model.IncidentForgotEntry)
		})
	})

	Convey("Given shifts written without a leading zero", t, func() {
		loose := []model.ScheduledShift{
			{DayOfWeek: time.Monday, EntryTime: "10:00", IsActive: true},
			{DayOfWeek: time.Monday, EntryTime: "9:00", IsActive: true},
		}

		Convey("Then 9:00 is still the first shift", func() {
			first, ok := compliance.FirstShift(loose, time.Monday)
			So(ok, ShouldBeTrue)
			So(first.EntryTime, ShouldEqual, "9:00")

			res, err := compliance.Check(loose, nil, monday(9, 30), time.UTC)
			So(err, ShouldBeNil)
			So(res.Missing, ShouldBeTrue)
			So(res.Kind, ShouldEqual, model.IncidentForgotEntry)
		})
	})

	Convey("Given a malformed entry time", t, func() {
		bad := []model.ScheduledShift{{DayOfWeek: time.Monday, EntryTime: "9am", IsActive: true}}
		res, err := compliance.Check(bad, nil, monday(12, 0), time.UTC)

		Convey("Then the check fails open", func() {
			So(errors.Is(err, compliance.ErrMalformedEntryTime), ShouldBeTrue)
			So(res.Missing, ShouldBeFalse)
		})
	})

	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	Convey("Given an organization timezone", t, func() {
		Convey("Then 08:30 UTC is after a 09:00 shift in Madrid", func() {
			res, _ := compliance.Check(shifts, nil, monday(8, 30), madrid)
			So(res.Missing, ShouldBeTrue)
			So(res.Scheduled.Equal(monday(8, 0)), ShouldBeTrue)
		})
	})
}

func TestParseEntryTime(t *testing.T) {
	Convey("Given entry times", t, func() {
		h, m, err := compliance.ParseEntryTime("07:45")
		So(err, ShouldBeNil)
		So(h, ShouldEqual, 7)
		So(m, ShouldEqual, 45)

		h, m, err = compliance.ParseEntryTime("09:30:00")
		So(err, ShouldBeNil)
		So(h, ShouldEqual, 9)
		So(m, ShouldEqual, 30)

		for _, bad := range []string{"", "24:00", "12:60", "ab:cd", "0900", "1:2:3:4", "09:30:zz", "09:30:60"} {
			_, _, err = compliance.ParseEntryTime(bad)
			So(err, ShouldNotBeNil)
		}
	})
}

func TestNormalizeEntryTime(t *testing.T) {
	Convey("Given loosely written entry times", t, func() {
		for in, want := range map[string]string{
			"9:00":     "09:00",
			" 07:5 ":   "07:05",
			"09:30:15": "09:30",
			"23:59":    "23:59",
		} {
			got, err := compliance.NormalizeEntryTime(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		_, err := compliance.NormalizeEntryTime("9am")
		So(errors.Is(err, compliance.ErrMalformedEntryTime), ShouldBeTrue)
	})
}
