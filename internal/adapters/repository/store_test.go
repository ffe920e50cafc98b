package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeclock/internal/adapters/repository"
	"github.com/okian/timeclock/internal/domain/clockstate"
	"github.com/okian/timeclock/internal/domain/model"
	"github.com/okian/timeclock/pkg/clock"
)

var base = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

type factory func(t *testing.T) repository.Store

func memoryFactory(*testing.T) repository.Store {
	return repository.NewMemoryStore(repository.WithClock(clock.Fake(base)))
}

func sqliteFactory(t *testing.T) repository.Store {
	path := filepath.Join(t.TempDir(), "timeclock.db")
	s, err := repository.Open(context.Background(), repository.Config{Driver: repository.DriverSQLite, SQLitePath: path},
		repository.WithClock(clock.Fake(base)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStore(t *testing.T) { runStoreContract(t, memoryFactory) }
func TestSQLiteStore(t *testing.T) { runStoreContract(t, sqliteFactory) }

func guardFor(kind model.Kind) repository.Guard {
	return func(last *model.ClockEvent) error {
		return clockstate.ValidateClockAction(kind, last)
	}
}

func seed(ctx context.Context, s repository.Store) (model.Organization, model.Worker) {
	org, err := s.SaveOrganization(ctx, model.Organization{Name: "Bar Central", AllowedRadiusMeters: 75, Timezone: "Europe/Madrid"})
	So(err, ShouldBeNil)
	w, err := s.SaveWorker(ctx, model.Worker{Email: "ana@example.com", FullName: "Ana"})
	So(err, ShouldBeNil)
	_, err = s.SaveMember(ctx, model.Member{OrganizationID: org.ID, WorkerID: w.ID, Role: model.RoleEmployee})
	So(err, ShouldBeNil)
	return org, w
}

func runStoreContract(t *testing.T, newStore factory) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := newStore(t)
		org, w := seed(ctx, s)

		Convey("When events are appended", func() {
			in, err := s.AppendEvent(ctx, model.ClockEvent{
				OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindEntry, Timestamp: base,
			}, guardFor(model.KindEntry))
			So(err, ShouldBeNil)
			out, err := s.AppendEvent(ctx, model.ClockEvent{
				OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindExit, Timestamp: base.Add(8 * time.Hour),
			}, guardFor(model.KindExit))
			So(err, ShouldBeNil)

			Convey("Then ids and creation times are assigned", func() {
				So(in.ID, ShouldNotBeEmpty)
				So(out.ID, ShouldNotEqual, in.ID)
				So(in.CreatedAt.Equal(base), ShouldBeTrue)
			})

			Convey("Then they are listed in time order", func() {
				events, err := s.ListEvents(ctx, repository.EventQuery{OrganizationID: org.ID, WorkerID: w.ID})
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0].Kind, ShouldEqual, model.KindEntry)
				So(events[1].Timestamp.Equal(base.Add(8*time.Hour)), ShouldBeTrue)
			})

			Convey("Then time bounds are inclusive", func() {
				from, to := base, base
				events, err := s.ListEvents(ctx, repository.EventQuery{OrganizationID: org.ID, From: &from, To: &to})
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0].ID, ShouldEqual, in.ID)
			})

			Convey("Then a guard rejection is returned unchanged and nothing is stored", func() {
				_, err := s.AppendEvent(ctx, model.ClockEvent{
					OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindExit, Timestamp: base.Add(9 * time.Hour),
				}, guardFor(model.KindExit))
				So(errors.Is(err, clockstate.ErrInvalidTransition), ShouldBeTrue)

				events, _ := s.ListEvents(ctx, repository.EventQuery{WorkerID: w.ID})
				So(events, ShouldHaveLength, 2)
			})
		})

		Convey("When events share a timestamp", func() {
			_, err := s.AppendEvent(ctx, model.ClockEvent{OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindEntry, Timestamp: base}, nil)
			So(err, ShouldBeNil)
			second, err := s.AppendEvent(ctx, model.ClockEvent{OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindExit, Timestamp: base}, nil)
			So(err, ShouldBeNil)

			Convey("Then insertion order breaks the tie", func() {
				events, _ := s.ListEvents(ctx, repository.EventQuery{WorkerID: w.ID})
				So(clockstate.LastEvent(events).ID, ShouldEqual, second.ID)

				var seen *model.ClockEvent
				_, err := s.AppendEvent(ctx, model.ClockEvent{OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindEntry, Timestamp: base},
					func(last *model.ClockEvent) error { seen = last; return nil })
				So(err, ShouldBeNil)
				So(seen.ID, ShouldEqual, second.ID)
			})
		})

		Convey("When many clock-ins race", func() {
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := s.AppendEvent(ctx, model.ClockEvent{
						OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindEntry, Timestamp: base.Add(time.Duration(i) * time.Second),
					}, guardFor(model.KindEntry))
					if err == nil {
						mu.Lock()
						accepted++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one is accepted", func() {
				So(accepted, ShouldEqual, 1)
			})
		})

		Convey("When an event lacks its scope", func() {
			_, err := s.AppendEvent(ctx, model.ClockEvent{Kind: model.KindEntry, Timestamp: base}, nil)
			So(errors.Is(err, repository.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When shifts are replaced", func() {
			_, err := s.ReplaceShifts(ctx, w.ID, org.ID, []model.ScheduledShift{
				{DayOfWeek: time.Monday, EntryTime: "09:00", IsActive: true},
				{DayOfWeek: time.Tuesday, EntryTime: "10:00", IsActive: false},
			})
			So(err, ShouldBeNil)

			active, err := s.ListActiveShifts(ctx, w.ID, org.ID)
			So(err, ShouldBeNil)
			So(active, ShouldHaveLength, 1)
			So(active[0].EntryTime, ShouldEqual, "09:00")
			So(active[0].OrganizationID, ShouldEqual, org.ID)

			Convey("Then a second replace swaps the whole schedule", func() {
				_, err := s.ReplaceShifts(ctx, w.ID, org.ID, []model.ScheduledShift{
					{DayOfWeek: time.Friday, EntryTime: "07:30", IsActive: true},
				})
				So(err, ShouldBeNil)
				all, _ := s.ListShifts(ctx, w.ID, org.ID)
				So(all, ShouldHaveLength, 1)
				So(all[0].DayOfWeek, ShouldEqual, time.Friday)
			})

			Convey("Then an empty replace clears it", func() {
				_, err := s.ReplaceShifts(ctx, w.ID, org.ID, nil)
				So(err, ShouldBeNil)
				all, _ := s.ListShifts(ctx, w.ID, org.ID)
				So(all, ShouldBeEmpty)
			})
		})

		Convey("When organizations and workers are looked up", func() {
			got, err := s.GetOrganization(ctx, org.ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "Bar Central")
			So(got.Timezone, ShouldEqual, "Europe/Madrid")

			_, err = s.GetOrganization(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.GetWorker(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			Convey("Then updates keep the creation time", func() {
				lat, lon := 40.4168, -3.7038
				got.Latitude, got.Longitude = &lat, &lon
				got.Name = "Bar Central II"
				updated, err := s.SaveOrganization(ctx, got)
				So(err, ShouldBeNil)
				So(updated.Name, ShouldEqual, "Bar Central II")
				So(*updated.Latitude, ShouldEqual, lat)
				So(updated.CreatedAt.Equal(org.CreatedAt), ShouldBeTrue)
			})
		})

		Convey("When memberships change", func() {
			boss, err := s.SaveWorker(ctx, model.Worker{Email: "boss@example.com", FullName: "Boss"})
			So(err, ShouldBeNil)
			_, err = s.SaveMember(ctx, model.Member{OrganizationID: org.ID, WorkerID: boss.ID, Role: model.RoleManager})
			So(err, ShouldBeNil)

			members, err := s.ListMembers(ctx, org.ID)
			So(err, ShouldBeNil)
			So(members, ShouldHaveLength, 2)

			_, err = s.SaveMember(ctx, model.Member{OrganizationID: org.ID, WorkerID: w.ID, Role: model.RoleAdmin})
			So(err, ShouldBeNil)
			m, err := s.GetMember(ctx, org.ID, w.ID)
			So(err, ShouldBeNil)
			So(m.Role, ShouldEqual, model.RoleAdmin)

			_, err = s.SaveMember(ctx, model.Member{OrganizationID: org.ID, WorkerID: "ghost", Role: model.RoleAdmin})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When incidents are filed and reviewed", func() {
			inc, err := s.CreateIncident(ctx, model.Incident{
				OrganizationID: org.ID, WorkerID: w.ID, Kind: model.IncidentForgotEntry,
				Status: model.IncidentPending, Date: "2024-03-04", Description: "phone died",
			})
			So(err, ShouldBeNil)
			So(inc.ID, ShouldNotBeEmpty)

			pending, err := s.ListIncidents(ctx, repository.IncidentFilter{OrganizationID: org.ID, Status: model.IncidentPending})
			So(err, ShouldBeNil)
			So(pending, ShouldHaveLength, 1)

			reviewer := "boss"
			at := base.Add(time.Hour)
			inc.Status = model.IncidentApproved
			inc.ReviewedBy = &reviewer
			inc.ReviewedAt = &at
			updated, err := s.UpdateIncident(ctx, inc)
			So(err, ShouldBeNil)
			So(updated.Status, ShouldEqual, model.IncidentApproved)
			So(*updated.ReviewedBy, ShouldEqual, "boss")
			So(updated.ReviewedAt.Equal(at), ShouldBeTrue)

			pending, _ = s.ListIncidents(ctx, repository.IncidentFilter{OrganizationID: org.ID, Status: model.IncidentPending})
			So(pending, ShouldBeEmpty)

			_, err = s.UpdateIncident(ctx, model.Incident{ID: "nope"})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the worker is deleted", func() {
			_, err := s.AppendEvent(ctx, model.ClockEvent{OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindEntry, Timestamp: base}, nil)
			So(err, ShouldBeNil)
			_, err = s.CreateIncident(ctx, model.Incident{OrganizationID: org.ID, WorkerID: w.ID, Kind: model.IncidentNotWorking, Status: model.IncidentPending, Date: "2024-03-04", Description: "sick"})
			So(err, ShouldBeNil)

			So(s.DeleteWorker(ctx, w.ID), ShouldBeNil)

			Convey("Then everything owned by the worker is gone", func() {
				events, _ := s.ListEvents(ctx, repository.EventQuery{WorkerID: w.ID})
				So(events, ShouldBeEmpty)
				members, _ := s.ListMembers(ctx, org.ID)
				So(members, ShouldBeEmpty)
				incidents, _ := s.ListIncidents(ctx, repository.IncidentFilter{WorkerID: w.ID})
				So(incidents, ShouldBeEmpty)
				So(errors.Is(s.DeleteWorker(ctx, w.ID), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the worker belongs to two organizations", func() {
			other, err := s.SaveOrganization(ctx, model.Organization{Name: "Almacén Norte", AllowedRadiusMeters: 100})
			So(err, ShouldBeNil)
			_, err = s.SaveMember(ctx, model.Member{OrganizationID: other.ID, WorkerID: w.ID, Role: model.RoleManager})
			So(err, ShouldBeNil)
			_, err = s.SaveOrganization(ctx, model.Organization{Name: "Elsewhere"})
			So(err, ShouldBeNil)

			Convey("Then both are listed by name", func() {
				orgs, err := s.ListOrganizationsFor(ctx, w.ID)
				So(err, ShouldBeNil)
				So(orgs, ShouldHaveLength, 2)
				So(orgs[0].ID, ShouldEqual, other.ID)
				So(orgs[1].ID, ShouldEqual, org.ID)
			})

			Convey("Then a stranger has none", func() {
				orgs, err := s.ListOrganizationsFor(ctx, "nobody")
				So(err, ShouldBeNil)
				So(orgs, ShouldBeEmpty)
			})
		})

		Convey("When the organization is deleted", func() {
			_, err := s.AppendEvent(ctx, model.ClockEvent{OrganizationID: org.ID, WorkerID: w.ID, Kind: model.KindEntry, Timestamp: base}, nil)
			So(err, ShouldBeNil)
			_, err = s.ReplaceShifts(ctx, w.ID, org.ID, []model.ScheduledShift{{DayOfWeek: time.Monday, EntryTime: "09:00", IsActive: true}})
			So(err, ShouldBeNil)

			So(s.DeleteOrganization(ctx, org.ID), ShouldBeNil)

			Convey("Then its events, members and shifts are gone but the worker stays", func() {
				events, _ := s.ListEvents(ctx, repository.EventQuery{OrganizationID: org.ID})
				So(events, ShouldBeEmpty)
				shifts, _ := s.ListShifts(ctx, w.ID, org.ID)
				So(shifts, ShouldBeEmpty)
				_, err := s.GetWorker(ctx, w.ID)
				So(err, ShouldBeNil)
				orgs, _ := s.ListOrganizationsFor(ctx, w.ID)
				So(orgs, ShouldBeEmpty)
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given store configurations", t, func() {
		s, err := repository.Open(context.Background(), repository.Config{})
		So(err, ShouldBeNil)
		So(s.Driver(), ShouldEqual, repository.DriverMemory)

		_, err = repository.Open(context.Background(), repository.Config{Driver: "mongo"})
		So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)

		_, err = repository.Open(context.Background(), repository.Config{Driver: repository.DriverPostgres})
		So(errors.Is(err, repository.ErrInvalidInput), ShouldBeTrue)
	})
}
