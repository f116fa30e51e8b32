package trip

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/store"
)

// scheduleExpiry arms the per-ride offer timer. The timer fires at most
// once; any terminal transition disarms it first via onTerminal.
func (s *Service) scheduleExpiry(rideID string) {
	if s.OfferTimeout <= 0 {
		return
	}
	s.timers.set(rideID, time.AfterFunc(s.OfferTimeout, func() {
		s.expire(rideID)
	}))
}

func (s *Service) cancelExpiry(rideID string) {
	s.timers.cancel(rideID)
}

// expire moves an unclaimed ride from broadcasting to expired and notifies
// the passenger. If the ride moved on in the meantime the compare-and-set
// fails and nothing happens.
func (s *Service) expire(rideID string) {
	ride, err := s.Store.Transition(rideID, models.StatusBroadcasting, models.StatusExpired, nil)
	if err != nil {
		return
	}
	observability.RidesExpired.Inc()
	s.Logger.Info("ride expired unclaimed", "ride_id", rideID)
	s.notifyStatus(ride)
	s.onTerminal(context.Background(), ride)
}

// DriverDisconnected reacts to the assigned driver's connection dropping:
// the ride is cancelled with reason driver_lost and the passenger notified.
// No automatic re-broadcast happens; re-requesting is a new passenger
// action.
func (s *Service) DriverDisconnected(driverID string) {
	ride, ok := s.Store.ActiveForDriver(driverID)
	if !ok {
		return
	}
	for _, from := range []models.Status{models.StatusAssigned, models.StatusInProgress} {
		snap, err := s.Store.Transition(ride.ID, from, models.StatusCancelled, func(r *models.Ride) {
			r.CancelReason = models.CancelDriverLost
		})
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			continue
		}
		observability.RidesCancelled.WithLabelValues(models.CancelDriverLost).Inc()
		s.Logger.Warn("assigned driver lost", "ride_id", snap.ID, "driver_id", driverID)
		s.notifyStatus(snap)
		s.onTerminal(context.Background(), snap)
		return
	}
}

// PassengerDisconnected cancels a ride that is still looking for a driver
// when its passenger drops, and withdraws any outstanding offers so stale
// ones are not actionable. Assigned and in-progress rides survive a
// passenger reconnect window.
func (s *Service) PassengerDisconnected(passengerID string) {
	ride, ok := s.Store.ActiveForPassenger(passengerID)
	if !ok {
		return
	}
	for _, from := range []models.Status{models.StatusRequested, models.StatusBroadcasting} {
		snap, err := s.Store.Transition(ride.ID, from, models.StatusCancelled, func(r *models.Ride) {
			r.CancelReason = models.CancelPassengerLost
		})
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			continue
		}
		observability.RidesCancelled.WithLabelValues(models.CancelPassengerLost).Inc()
		s.Logger.Warn("passenger lost while unassigned", "ride_id", snap.ID, "passenger_id", passengerID)
		s.withdrawOffers(snap.ID)
		s.notifyStatus(snap)
		s.onTerminal(context.Background(), snap)
		return
	}
}

// timerSet tracks the scheduled expiry per ride id.
type timerSet struct {
	mu     sync.Mutex
	byRide map[string]*time.Timer
}

func (t *timerSet) set(rideID string, timer *time.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byRide == nil {
		t.byRide = make(map[string]*time.Timer)
	}
	if old, ok := t.byRide[rideID]; ok {
		old.Stop()
	}
	t.byRide[rideID] = timer
}

func (t *timerSet) cancel(rideID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.byRide[rideID]; ok {
		timer.Stop()
		delete(t.byRide, rideID)
	}
}
