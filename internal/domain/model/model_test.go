package model_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeclock/internal/domain/model"
)

func TestKind(t *testing.T) {
	Convey("Given punch kinds", t, func() {
		So(model.KindEntry.Valid(), ShouldBeTrue)
		So(model.KindExit.Valid(), ShouldBeTrue)
		So(model.Kind("BREAK").Valid(), ShouldBeFalse)
		So(model.Kind("entry").Valid(), ShouldBeFalse)
	})
}

func TestRole(t *testing.T) {
	Convey("Given member roles", t, func() {
		Convey("Then admins can do everything", func() {
			So(model.RoleAdmin.CanManageOrganization(), ShouldBeTrue)
			So(model.RoleAdmin.CanApproveIncidents(), ShouldBeTrue)
			So(model.RoleAdmin.CanCreateOrganization(), ShouldBeTrue)
		})

		Convey("Then managers manage but do not create organizations", func() {
			So(model.RoleManager.CanManageOrganization(), ShouldBeTrue)
			So(model.RoleManager.CanApproveIncidents(), ShouldBeTrue)
			So(model.RoleManager.CanCreateOrganization(), ShouldBeFalse)
		})

		Convey("Then employees only see themselves", func() {
			So(model.RoleEmployee.Valid(), ShouldBeTrue)
			So(model.RoleEmployee.CanManageOrganization(), ShouldBeFalse)
			So(model.RoleEmployee.CanApproveIncidents(), ShouldBeFalse)
			So(model.Role("OWNER").Valid(), ShouldBeFalse)
		})
	})
}

func TestOrganizationLocation(t *testing.T) {
	Convey("Given an organization", t, func() {
		lat, lon := 40.4168, -3.7038

		Convey("When coordinates are missing", func() {
			_, ok := model.Organization{Latitude: &lat}.Location()
			So(ok, ShouldBeFalse)
		})

		Convey("When both coordinates are set", func() {
			p, ok := model.Organization{Latitude: &lat, Longitude: &lon}.Location()
			So(ok, ShouldBeTrue)
			So(p.Latitude, ShouldEqual, lat)
			So(p.Longitude, ShouldEqual, lon)
		})

		Convey("When the timezone is empty or unknown", func() {
			So(model.Organization{}.LoadLocation(), ShouldEqual, time.UTC)
			So(model.Organization{Timezone: "Mars/Olympus"}.LoadLocation(), ShouldEqual, time.UTC)
		})
	})
}

func TestIncidentEnums(t *testing.T) {
	Convey("Given incident kinds and statuses", t, func() {
		So(model.IncidentForgotEntry.Valid(), ShouldBeTrue)
		So(model.IncidentKind("SICK").Valid(), ShouldBeFalse)
		So(model.IncidentPending.Valid(), ShouldBeTrue)
		So(model.IncidentStatus("LOST").Valid(), ShouldBeFalse)
	})
}

func TestClockEventLocation(t *testing.T) {
	Convey("Given a punch without coordinates", t, func() {
		_, ok := model.ClockEvent{}.Location()
		So(ok, ShouldBeFalse)
	})
}
