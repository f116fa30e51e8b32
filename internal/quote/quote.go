// Package quote talks to the external routing and pricing collaborators and
// assembles the opaque quotation attached to a ride at creation time.
package quote

import (
	"context"
	"log/slog"
	"math"

	"github.com/example/ride-dispatch/internal/models"
)

// Router produces route geometry, distance, and duration for a trip.
type Router interface {
	Route(ctx context.Context, from, to models.Coord) ([]models.Coord, float64, float64, error)
}

// Pricer produces the fare for a measured trip.
type Pricer interface {
	Fare(ctx context.Context, origin, dest models.Coord, distance, duration float64) (float64, error)
}

// Service builds ride quotes. Router and Pricer are optional: without a
// router it falls back to a straight-line estimate, and without a pricer the
// fare stays zero and is carried opaquely.
type Service struct {
	Router Router
	Pricer Pricer
	Cache  *Cache
	Logger *slog.Logger

	// DefaultSpeedMps drives the duration estimate when no router is
	// reachable.
	DefaultSpeedMps float64
}

func (s *Service) Quote(ctx context.Context, origin, dest models.Coord) (models.Quote, error) {
	if s.Cache != nil {
		if q, ok := s.Cache.Get(origin, dest); ok {
			return q, nil
		}
	}

	q := s.route(ctx, origin, dest)

	if s.Pricer != nil {
		fare, err := s.Pricer.Fare(ctx, origin, dest, q.Distance, q.Duration)
		if err != nil {
			s.Logger.Warn("fare lookup failed", "error", err)
		} else {
			q.Fare = fare
		}
	}

	if s.Cache != nil {
		s.Cache.Set(origin, dest, q)
	}
	return q, nil
}

func (s *Service) route(ctx context.Context, origin, dest models.Coord) models.Quote {
	if s.Router != nil {
		route, dist, dur, err := s.Router.Route(ctx, origin, dest)
		if err == nil {
			return models.Quote{Route: route, Distance: dist, Duration: dur}
		}
		s.Logger.Warn("route lookup failed, using straight-line estimate", "error", err)
	}

	speed := s.DefaultSpeedMps
	if speed <= 0 {
		speed = 8.0 // ~28.8 km/h default city speed
	}
	dist := Haversine(origin.Lat, origin.Lon, dest.Lat, dest.Lon)
	return models.Quote{
		Route:    []models.Coord{origin, dest},
		Distance: dist,
		Duration: dist / speed,
	}
}

// Haversine distance in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
