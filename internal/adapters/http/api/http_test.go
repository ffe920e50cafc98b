package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeclock/internal/adapters/http/api"
	repository "github.com/okian/timeclock/internal/adapters/repository"
	service "github.com/okian/timeclock/internal/app"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/internal/session"
	"github.com/okian/timeclock/pkg/clock"
)

var monday = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

type harness struct {
	mux   *http.ServeMux
	clock *clock.FakeClock
	org   model.Organization
	admin model.Worker
	ana   model.Worker
}

func newHarness() harness {
	ctx := context.Background()
	c := clock.Fake(monday)
	store := repository.NewMemoryStore(repository.WithClock(c))
	svc := service.New(service.WithStore(store), service.WithClock(c))

	h := harness{mux: http.NewServeMux(), clock: c}
	var err error
	h.admin, err = store.SaveWorker(ctx, model.Worker{Email: "admin@example.com", FullName: "Admin"})
	So(err, ShouldBeNil)
	h.ana, err = store.SaveWorker(ctx, model.Worker{Email: "ana@example.com", FullName: "Ana"})
	So(err, ShouldBeNil)

	lat, lon := 40.4168, -3.7038
	h.org, err = svc.CreateOrganization(session.WithPrincipal(ctx, session.Principal{WorkerID: h.admin.ID}), model.Organization{
		Name: "Bar Central", Latitude: &lat, Longitude: &lon, AllowedRadiusMeters: 75, Timezone: "UTC",
	})
	So(err, ShouldBeNil)
	adminCtx := session.WithPrincipal(ctx, session.Principal{OrganizationID: h.org.ID, WorkerID: h.admin.ID})
	_, err = svc.AddMember(adminCtx, h.org.ID, h.ana.ID, model.RoleEmployee)
	So(err, ShouldBeNil)

	api.NewServer(svc, svc).Register(ctx, h.mux)
	return h
}

func (h harness) do(method, path string, as *model.Worker, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if as != nil {
		req.Header.Set(api.HeaderOrganizationID, h.org.ID)
		req.Header.Set(api.HeaderWorkerID, as.ID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(rec *httptest.ResponseRecorder, dst any) {
	So(json.Unmarshal(rec.Body.Bytes(), dst), ShouldBeNil)
}

func atSite() map[string]any {
	return map[string]any{"latitude": 40.4168, "longitude": -3.7038}
}

func clockBody(kind string) map[string]any {
	b := atSite()
	b["kind"] = kind
	return b
}

func TestClockEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		h := newHarness()

		Convey("When clocking in without identity headers", func() {
			rec := h.do(http.MethodPost, "/v1/clock", nil, clockBody("ENTRY"))

			Convey("Then the request is unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When clocking in at the worksite", func() {
			rec := h.do(http.MethodPost, "/v1/clock", &h.ana, clockBody("ENTRY"))

			Convey("Then the event is created", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var ev model.ClockEvent
				decodeBody(rec, &ev)
				So(ev.Kind, ShouldEqual, model.KindEntry)
				So(ev.WorkerID, ShouldEqual, h.ana.ID)
			})

			Convey("And the state reflects the open entry", func() {
				rec := h.do(http.MethodGet, "/v1/state", &h.ana, nil)
				So(rec.Code, ShouldEqual, http.StatusOK)
				var st map[string]any
				decodeBody(rec, &st)
				So(st["can_clock_in"], ShouldEqual, false)
				So(st["can_clock_out"], ShouldEqual, true)
			})

			Convey("And a second entry conflicts", func() {
				rec := h.do(http.MethodPost, "/v1/clock", &h.ana, clockBody("ENTRY"))
				So(rec.Code, ShouldEqual, http.StatusConflict)
				So(rec.Body.String(), ShouldContainSubstring, "invalid_transition")
			})
		})

		Convey("When clocking in far from the worksite", func() {
			rec := h.do(http.MethodPost, "/v1/clock", &h.ana, map[string]any{
				"kind": "ENTRY", "latitude": 40.4268, "longitude": -3.7038,
			})

			Convey("Then the distance is reported", func() {
				So(rec.Code, ShouldEqual, http.StatusUnprocessableEntity)
				var body map[string]any
				decodeBody(rec, &body)
				So(body["code"], ShouldEqual, "out_of_range")
				So(body["distance_meters"], ShouldBeGreaterThan, 1000)
				So(body["radius_meters"], ShouldEqual, 75)
			})
		})

		Convey("When the same idempotency key is retried", func() {
			first := h.do(http.MethodPost, "/v1/clock", &h.ana, clockBody("ENTRY"), api.HeaderIdempotencyKey, "k-1")
			second := h.do(http.MethodPost, "/v1/clock", &h.ana, clockBody("ENTRY"), api.HeaderIdempotencyKey, "k-1")

			Convey("Then the original event is replayed", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusCreated)
				var a, b model.ClockEvent
				decodeBody(first, &a)
				decodeBody(second, &b)
				So(b.ID, ShouldEqual, a.ID)
			})
		})

		Convey("When the body is invalid", func() {
			unknown := h.do(http.MethodPost, "/v1/clock", &h.ana, `{"kind":"ENTRY","extra":1}`)
			badKind := h.do(http.MethodPost, "/v1/clock", &h.ana, map[string]any{"kind": "LUNCH"})
			badLat := h.do(http.MethodPost, "/v1/clock", &h.ana, map[string]any{"kind": "ENTRY", "latitude": 123.0, "longitude": 0.0})

			Convey("Then each is a bad request", func() {
				So(unknown.Code, ShouldEqual, http.StatusBadRequest)
				So(badKind.Code, ShouldEqual, http.StatusBadRequest)
				So(badKind.Body.String(), ShouldContainSubstring, "kind must satisfy oneof")
				So(badLat.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAttendanceEndpoints(t *testing.T) {
	Convey("Given a worker with a full shift", t, func() {
		h := newHarness()
		So(h.do(http.MethodPost, "/v1/clock", &h.ana, clockBody("ENTRY")).Code, ShouldEqual, http.StatusCreated)
		h.clock.Advance(8 * time.Hour)
		So(h.do(http.MethodPost, "/v1/clock", &h.ana, clockBody("EXIT")).Code, ShouldEqual, http.StatusCreated)

		Convey("When reading the day record", func() {
			rec := h.do(http.MethodGet, "/v1/day?date=2024-03-04", &h.ana, nil)

			Convey("Then the day is complete with eight hours", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var day model.DayRecord
				decodeBody(rec, &day)
				So(day.Status, ShouldEqual, model.DayComplete)
				So(*day.TotalHours, ShouldAlmostEqual, 8, 1e-9)
			})
		})

		Convey("When reading a range", func() {
			rec := h.do(http.MethodGet, "/v1/days?from=2024-03-03&to=2024-03-04", &h.ana, nil)

			Convey("Then only worked days are listed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var rep map[string]any
				decodeBody(rec, &rep)
				So(rep["days"], ShouldHaveLength, 1)
			})
		})

		Convey("When reading a malformed range", func() {
			rec := h.do(http.MethodGet, "/v1/days?from=yesterday&to=2024-03-04", &h.ana, nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an employee reads the team view", func() {
			rec := h.do(http.MethodGet, "/v1/team-day?date=2024-03-04", &h.ana, nil)
			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When an admin reads the team view", func() {
			rec := h.do(http.MethodGet, "/v1/team-day?date=2024-03-04", &h.admin, nil)

			Convey("Then every member is listed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var view map[string]any
				decodeBody(rec, &view)
				So(view["records"], ShouldHaveLength, 2)
			})
		})

		Convey("When checking compliance without shifts", func() {
			rec := h.do(http.MethodGet, "/v1/compliance", &h.ana, nil)

			Convey("Then nothing is missing", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var res map[string]any
				decodeBody(rec, &res)
				So(res["missing"], ShouldEqual, false)
			})
		})
	})
}

func TestScheduleEndpoints(t *testing.T) {
	Convey("Given an admin editing a schedule", t, func() {
		h := newHarness()
		path := "/v1/schedules?worker_id=" + h.ana.ID

		Convey("When replacing the shifts", func() {
			rec := h.do(http.MethodPut, path, &h.admin, map[string]any{
				"shifts": []map[string]any{{"day_of_week": 1, "entry_time": "09:00"}},
			})

			Convey("Then the schedule is stored active by default", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var shifts []model.ScheduledShift
				decodeBody(rec, &shifts)
				So(shifts, ShouldHaveLength, 1)
				So(shifts[0].IsActive, ShouldBeTrue)
				So(shifts[0].DayOfWeek, ShouldEqual, time.Monday)

				got := h.do(http.MethodGet, path, &h.ana, nil)
				So(got.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And compliance flags the missing entry after the shift starts", func() {
				h.clock.Advance(2 * time.Hour)
				rec := h.do(http.MethodGet, "/v1/compliance", &h.ana, nil)
				var res map[string]any
				decodeBody(rec, &res)
				So(res["missing"], ShouldEqual, true)
			})
		})

		Convey("When an employee edits a schedule", func() {
			rec := h.do(http.MethodPut, path, &h.ana, map[string]any{"shifts": []map[string]any{}})
			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the weekday is out of range", func() {
			rec := h.do(http.MethodPut, path, &h.admin, map[string]any{
				"shifts": []map[string]any{{"day_of_week": 9, "entry_time": "09:00"}},
			})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestIncidentEndpoints(t *testing.T) {
	Convey("Given a worker reporting an incident", t, func() {
		h := newHarness()
		rec := h.do(http.MethodPost, "/v1/incidents", &h.ana, map[string]any{
			"kind": "FORGOT_ENTRY", "description": "badge at home",
		})
		So(rec.Code, ShouldEqual, http.StatusCreated)
		var inc model.Incident
		decodeBody(rec, &inc)

		Convey("Then it is pending", func() {
			So(inc.Status, ShouldEqual, model.IncidentPending)
			So(inc.Date, ShouldEqual, "2024-03-04")
		})

		Convey("When the admin lists pending incidents", func() {
			rec := h.do(http.MethodGet, "/v1/incidents?status=pending", &h.admin, nil)
			var list []model.Incident
			decodeBody(rec, &list)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(list, ShouldHaveLength, 1)
		})

		Convey("When listing with an unknown status", func() {
			rec := h.do(http.MethodGet, "/v1/incidents?status=lost", &h.admin, nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the worker reviews their own incident", func() {
			rec := h.do(http.MethodPost, "/v1/incidents/"+inc.ID+"/review", &h.ana, map[string]any{"status": "APPROVED"})
			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the admin approves it twice", func() {
			first := h.do(http.MethodPost, "/v1/incidents/"+inc.ID+"/review", &h.admin, map[string]any{"status": "APPROVED"})
			second := h.do(http.MethodPost, "/v1/incidents/"+inc.ID+"/review", &h.admin, map[string]any{"status": "REJECTED"})

			Convey("Then the second review conflicts", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When reviewing an unknown incident", func() {
			rec := h.do(http.MethodPost, "/v1/incidents/nope/review", &h.admin, map[string]any{"status": "APPROVED"})
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestDirectoryEndpoints(t *testing.T) {
	Convey("Given an admin managing the directory", t, func() {
		h := newHarness()

		Convey("When reading and updating the organization", func() {
			path := "/v1/organizations/" + h.org.ID
			got := h.do(http.MethodGet, path, &h.ana, nil)
			upd := h.do(http.MethodPut, path, &h.admin, map[string]any{
				"name": "Bar Norte", "allowed_radius_meters": 120, "timezone": "Europe/Madrid",
			})
			denied := h.do(http.MethodPut, path, &h.ana, map[string]any{"name": "Mine"})

			Convey("Then members read and admins write", func() {
				So(got.Code, ShouldEqual, http.StatusOK)
				So(upd.Code, ShouldEqual, http.StatusOK)
				var org model.Organization
				decodeBody(upd, &org)
				So(org.Name, ShouldEqual, "Bar Norte")
				So(org.AllowedRadiusMeters, ShouldEqual, 120)
				So(denied.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When creating a worker and adding them", func() {
			rec := h.do(http.MethodPost, "/v1/workers", &h.admin, map[string]any{"email": "luis@example.com", "full_name": "Luis"})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			var wk model.Worker
			decodeBody(rec, &wk)

			add := h.do(http.MethodPost, "/v1/organizations/"+h.org.ID+"/members", &h.admin, map[string]any{
				"worker_id": wk.ID, "role": "MANAGER",
			})
			list := h.do(http.MethodGet, "/v1/organizations/"+h.org.ID+"/members", &h.admin, nil)

			Convey("Then the member is listed", func() {
				So(add.Code, ShouldEqual, http.StatusOK)
				var ms []model.Member
				decodeBody(list, &ms)
				So(ms, ShouldHaveLength, 3)
			})

			Convey("And deleting the worker removes them", func() {
				del := h.do(http.MethodDelete, "/v1/workers/"+wk.ID, &h.admin, nil)
				So(del.Code, ShouldEqual, http.StatusNoContent)
				again := h.do(http.MethodDelete, "/v1/workers/"+wk.ID, &h.admin, nil)
				So(again.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When listing the caller's organizations", func() {
			mine := h.do(http.MethodGet, "/v1/organizations", nil, nil, api.HeaderWorkerID, h.ana.ID)
			anon := h.do(http.MethodGet, "/v1/organizations", nil, nil)

			Convey("Then Ana sees her worksite", func() {
				So(mine.Code, ShouldEqual, http.StatusOK)
				var orgs []model.Organization
				decodeBody(mine, &orgs)
				So(orgs, ShouldHaveLength, 1)
				So(orgs[0].ID, ShouldEqual, h.org.ID)
				So(anon.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When deleting the organization", func() {
			path := "/v1/organizations/" + h.org.ID
			denied := h.do(http.MethodDelete, path, &h.ana, nil)
			del := h.do(http.MethodDelete, path, &h.admin, nil)
			after := h.do(http.MethodGet, "/v1/organizations", nil, nil, api.HeaderWorkerID, h.admin.ID)
			again := h.do(http.MethodDelete, path, &h.admin, nil)

			Convey("Then only the admin can, and it is gone", func() {
				So(denied.Code, ShouldEqual, http.StatusForbidden)
				So(del.Code, ShouldEqual, http.StatusNoContent)
				var orgs []model.Organization
				decodeBody(after, &orgs)
				So(orgs, ShouldBeEmpty)
				So(again.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When the worker email is invalid", func() {
			rec := h.do(http.MethodPost, "/v1/workers", &h.admin, map[string]any{"email": "nope", "full_name": "X"})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "email must satisfy email")
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		h := newHarness()

		Convey("When reading stats", func() {
			rec := h.do(http.MethodGet, "/stats", nil, nil)

			Convey("Then JSON stats are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var stats map[string]any
				decodeBody(rec, &stats)
				So(rec.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(stats, ShouldContainKey, "store")
				So(stats["store"], ShouldEqual, "memory")
				So(stats, ShouldContainKey, "idempotencyKeys")
				So(stats, ShouldContainKey, "geolocationTimeoutMs")
			})
		})

		Convey("When probing health", func() {
			rec := h.do(http.MethodGet, "/healthz", nil, nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}
