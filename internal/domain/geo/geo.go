// Package geo holds coordinate math and geolocation acquisition.
package geo

import (
	"context"
	"errors"
	"math"
	"time"
)

// EarthRadiusMeters is the mean earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// ErrUnavailable reports that no position could be acquired.
var ErrUnavailable = errors.New("geolocation unavailable")

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	dPhi := (b.Latitude - a.Latitude) * math.Pi / 180
	dLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Locator acquires the device position.
type Locator interface {
	Locate(ctx context.Context) (Point, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Point, error)

// Locate implements Locator.
func (f LocatorFunc) Locate(ctx context.Context) (Point, error) { return f(ctx) }

// Static always reports the same point.
func Static(p Point) Locator {
	return LocatorFunc(func(context.Context) (Point, error) { return p, nil })
}

// Locate asks l for a position within timeout. On any failure it returns
// fallback with usedFallback set and the underlying error.
func Locate(ctx context.Context, l Locator, timeout time.Duration, fallback Point) (p Point, usedFallback bool, err error) {
	if l == nil {
		return fallback, true, ErrUnavailable
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		p   Point
		err error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := l.Locate(ctx)
		ch <- result{p, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return fallback, true, errors.Join(ErrUnavailable, r.err)
		}
		return r.p, false, nil
	case <-ctx.Done():
		return fallback, true, errors.Join(ErrUnavailable, ctx.Err())
	}
}
