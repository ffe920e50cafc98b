package service_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/timeclock/internal/app"
	"github.com/okian/timeclock/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it uses the memory store and is not started", func() {
			stats := svc.GetStats()
			So(stats["store"], ShouldEqual, "memory")
			So(stats["started"], ShouldEqual, false)
			So(stats["naiveDateBuckets"], ShouldEqual, false)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithLogger(logger.Get()),
			service.WithIdempotencySize(10),
			service.WithNaiveDateBuckets(true),
			service.WithTeamConcurrency(2),
		)

		Convey("Then the options are applied", func() {
			So(svc.GetStats()["naiveDateBuckets"], ShouldEqual, true)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When starting it twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			Convey("Then it is marked as started", func() {
				So(svc.GetStats()["started"], ShouldEqual, true)
			})

			Convey("And stopping it marks it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Stop, ShouldNotPanic)
			})
		})
	})
}
