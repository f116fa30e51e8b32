package trip

import (
	"context"
	"sync"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
)

// Broadcast moves the ride into broadcasting and fans the offer out to every
// eligible driver. Delivery is fire-and-forget per recipient; one failed
// send never blocks or fails the rest. If the ride already left requested
// (e.g. cancelled first), the broadcast aborts silently.
func (s *Service) Broadcast(ctx context.Context, ride models.Ride) (models.Ride, bool) {
	snap, err := s.Store.Transition(ride.ID, models.StatusRequested, models.StatusBroadcasting, nil)
	if err != nil {
		s.Logger.Debug("broadcast aborted", "ride_id", ride.ID, "error", err)
		return ride, false
	}
	observability.BroadcastsTotal.Inc()
	s.mirror(ctx, snap)

	offer := models.NewRideOffer(snap)
	drivers := s.Sessions.EligibleDrivers()
	offered := make([]string, 0, len(drivers))
	for _, d := range drivers {
		if err := d.Send(offer); err != nil {
			observability.DeliveryFailures.Inc()
			s.Logger.Warn("offer delivery failed", "ride_id", snap.ID, "driver_id", d.ID(), "error", err)
			continue
		}
		observability.OffersSent.Inc()
		offered = append(offered, d.ID())
	}
	s.offers.record(snap.ID, offered)

	s.Logger.Info("ride broadcast", "ride_id", snap.ID, "offers", len(offered))
	return snap, true
}

// offerLog remembers which drivers received the offer for a still-open ride
// so a cancellation can withdraw it.
type offerLog struct {
	mu     sync.Mutex
	byRide map[string][]string
}

func (l *offerLog) record(rideID string, driverIDs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.byRide == nil {
		l.byRide = make(map[string][]string)
	}
	l.byRide[rideID] = driverIDs
}

// take removes and returns the offered-driver set for a ride.
func (l *offerLog) take(rideID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.byRide[rideID]
	delete(l.byRide, rideID)
	return ids
}
