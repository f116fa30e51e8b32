package trip

import (
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/registry"
)

// notifyStatus pushes the current ride snapshot to the passenger and, once
// assigned, the driver. Delivery is at-most-once: sessions that are not
// connected are silently skipped, and a failed write is logged and dropped.
func (s *Service) notifyStatus(ride models.Ride) {
	msg := models.NewRideStatus(ride)
	s.push(registry.RolePassenger, ride.PassengerID, msg)
	if ride.DriverID != "" {
		s.push(registry.RoleDriver, ride.DriverID, msg)
	}
}

// withdrawOffers tells every driver who received the offer that the ride is
// no longer actionable, and forgets the offered set.
func (s *Service) withdrawOffers(rideID string) {
	for _, driverID := range s.offers.take(rideID) {
		s.push(registry.RoleDriver, driverID, models.NewOfferWithdrawn(rideID))
	}
}

func (s *Service) push(role registry.Role, id string, msg interface{}) {
	sess, ok := s.Sessions.Get(role, id)
	if !ok {
		return
	}
	if err := sess.Send(msg); err != nil {
		observability.DeliveryFailures.Inc()
		s.Logger.Warn("push delivery failed", "role", string(role), "actor_id", id, "error", err)
	}
}
