// Package trip implements the ride-dispatch coordination protocol: offer
// broadcast, single-winner acceptance, status propagation, and the
// timeout/disconnect supervision around a ride's lifecycle.
package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/registry"
	"github.com/example/ride-dispatch/internal/store"
)

// RideStore is the slice of the ride store the coordinator depends on.
type RideStore interface {
	Create(passengerID string, origin, dest models.Coord, q models.Quote) (models.Ride, error)
	Get(id string) (models.Ride, error)
	Transition(id string, expected, next models.Status, apply func(*models.Ride)) (models.Ride, error)
	ActiveForDriver(driverID string) (models.Ride, bool)
	ActiveForPassenger(passengerID string) (models.Ride, bool)
}

// Sessions is the slice of the connection registry the coordinator uses.
type Sessions interface {
	Get(role registry.Role, id string) (*registry.Session, bool)
	EligibleDrivers() []*registry.Session
}

// Quoter supplies route geometry and fare data for a requested trip.
type Quoter interface {
	Quote(ctx context.Context, origin, dest models.Coord) (models.Quote, error)
}

// Archive receives terminal rides for durable history.
type Archive interface {
	Save(ctx context.Context, r models.Ride) error
}

// Payments manages the fare hold attached to an assigned ride.
type Payments interface {
	Hold(ctx context.Context, r models.Ride) error
	Capture(ctx context.Context, rideID string) error
	Release(ctx context.Context, rideID string) error
}

// PositionSink publishes driver position samples to the ingest stream.
type PositionSink interface {
	PublishPosition(ctx context.Context, p models.PositionUpdate) error
}

// SnapshotMirror mirrors ride snapshots into an external cache.
type SnapshotMirror interface {
	Store(ctx context.Context, r models.Ride) error
}

// Service coordinates a ride through its full lifecycle. Store, Sessions,
// Quoter, and Logger are required; the rest are optional collaborators.
type Service struct {
	Store    RideStore
	Sessions Sessions
	Quoter   Quoter
	Logger   *slog.Logger

	Archive   Archive
	Payments  Payments
	Positions PositionSink
	Mirror    SnapshotMirror

	// OfferTimeout is how long a ride may stay in broadcasting before it
	// expires unclaimed.
	OfferTimeout time.Duration

	timers timerSet
	offers offerLog
}

// Request creates a ride for the passenger, quotes it, and starts the offer
// broadcast. It fails with store.ErrDuplicateActiveRide if the passenger
// already has a non-terminal ride.
func (s *Service) Request(ctx context.Context, passengerID string, origin, dest models.Coord) (models.Ride, error) {
	q, err := s.Quoter.Quote(ctx, origin, dest)
	if err != nil {
		return models.Ride{}, fmt.Errorf("quote trip: %w", err)
	}

	ride, err := s.Store.Create(passengerID, origin, dest, q)
	if err != nil {
		return models.Ride{}, err
	}
	observability.RidesRequested.Inc()
	s.mirror(ctx, ride)
	s.Logger.Info("ride requested", "ride_id", ride.ID, "passenger_id", passengerID)

	if snap, ok := s.Broadcast(ctx, ride); ok {
		ride = snap
		s.scheduleExpiry(ride.ID)
	}
	return ride, nil
}

// Cancel is a passenger-initiated cancellation. It succeeds from requested,
// broadcasting, or assigned; an in-progress or terminal ride returns
// store.ErrStaleTransition.
func (s *Service) Cancel(ctx context.Context, rideID string) (models.Ride, error) {
	for _, from := range []models.Status{models.StatusRequested, models.StatusBroadcasting, models.StatusAssigned} {
		ride, err := s.Store.Transition(rideID, from, models.StatusCancelled, func(r *models.Ride) {
			r.CancelReason = models.CancelByPassenger
		})
		if errors.Is(err, store.ErrNotFound) {
			return models.Ride{}, err
		}
		if err != nil {
			continue
		}
		observability.RidesCancelled.WithLabelValues(models.CancelByPassenger).Inc()
		s.Logger.Info("ride cancelled by passenger", "ride_id", rideID, "was", string(from))
		s.withdrawOffers(rideID)
		s.notifyStatus(ride)
		s.onTerminal(ctx, ride)
		return ride, nil
	}
	return models.Ride{}, store.ErrStaleTransition
}

// Start moves an assigned ride to in_progress when the assigned driver
// begins the trip.
func (s *Service) Start(ctx context.Context, rideID, driverID string) (models.Ride, error) {
	cur, err := s.Store.Get(rideID)
	if err != nil {
		return models.Ride{}, err
	}
	if cur.DriverID != driverID {
		return models.Ride{}, ErrWrongDriver
	}

	ride, err := s.Store.Transition(rideID, models.StatusAssigned, models.StatusInProgress, nil)
	if err != nil {
		return models.Ride{}, err
	}
	s.mirror(ctx, ride)
	s.notifyStatus(ride)
	s.Logger.Info("trip started", "ride_id", rideID, "driver_id", driverID)
	return ride, nil
}

// Finish finalizes an in-progress ride. A second call observes
// store.ErrStaleTransition and triggers no second notification.
func (s *Service) Finish(ctx context.Context, rideID string) (models.Ride, error) {
	now := time.Now().UTC()
	ride, err := s.Store.Transition(rideID, models.StatusInProgress, models.StatusFinalized, func(r *models.Ride) {
		r.FinalizedAt = now
	})
	if err != nil {
		return models.Ride{}, err
	}
	observability.RidesFinalized.Inc()
	s.Logger.Info("trip finalized", "ride_id", rideID, "driver_id", ride.DriverID)
	s.notifyStatus(ride)
	s.onTerminal(ctx, ride)
	return ride, nil
}

// Get returns a snapshot of the ride.
func (s *Service) Get(rideID string) (models.Ride, error) {
	return s.Store.Get(rideID)
}

// SetDriverAvailability toggles a connected driver in or out of the
// dispatch pool. A driver holding an active ride cannot rejoin the pool.
func (s *Service) SetDriverAvailability(driverID string, available bool) bool {
	sess, ok := s.Sessions.Get(registry.RoleDriver, driverID)
	if !ok {
		return false
	}
	if available {
		if _, busy := s.Store.ActiveForDriver(driverID); busy {
			return false
		}
	}
	sess.SetAvailable(available)
	return true
}

// PositionUpdate records a driver GPS sample: session state, the ingest
// stream, and a best-effort push to the passenger of the driver's active
// ride. Drops and reordering are acceptable here.
func (s *Service) PositionUpdate(ctx context.Context, driverID string, loc models.Coord) {
	if sess, ok := s.Sessions.Get(registry.RoleDriver, driverID); ok {
		sess.UpdateLocation(loc)
	}
	if s.Positions != nil {
		p := models.PositionUpdate{DriverID: driverID, Loc: loc, At: time.Now().UTC()}
		if err := s.Positions.PublishPosition(ctx, p); err != nil {
			s.Logger.Warn("position publish failed", "driver_id", driverID, "error", err)
		}
	}
	if ride, ok := s.Store.ActiveForDriver(driverID); ok {
		s.push(registry.RolePassenger, ride.PassengerID, models.DriverPosition{
			Type:     models.MsgDriverPosition,
			RideID:   ride.ID,
			DriverID: driverID,
			Loc:      loc,
		})
	}
}

// onTerminal runs the bookkeeping shared by every terminal transition:
// timer teardown, releasing the driver back to the pool, snapshot mirror,
// archive, and the payment-hold outcome.
func (s *Service) onTerminal(ctx context.Context, ride models.Ride) {
	s.cancelExpiry(ride.ID)
	s.offers.take(ride.ID)

	if ride.DriverID != "" {
		if sess, ok := s.Sessions.Get(registry.RoleDriver, ride.DriverID); ok {
			sess.SetAvailable(true)
		}
	}

	s.mirror(ctx, ride)

	if s.Archive != nil {
		if err := s.Archive.Save(ctx, ride); err != nil {
			s.Logger.Error("ride archive failed", "ride_id", ride.ID, "error", err)
		}
	}

	if s.Payments != nil {
		var err error
		switch ride.Status {
		case models.StatusFinalized:
			err = s.Payments.Capture(ctx, ride.ID)
		default:
			err = s.Payments.Release(ctx, ride.ID)
		}
		if err != nil {
			s.Logger.Error("payment settlement failed", "ride_id", ride.ID, "status", string(ride.Status), "error", err)
		}
	}
}

func (s *Service) mirror(ctx context.Context, ride models.Ride) {
	if s.Mirror == nil {
		return
	}
	if err := s.Mirror.Store(ctx, ride); err != nil {
		s.Logger.Warn("snapshot mirror failed", "ride_id", ride.ID, "error", err)
	}
}
