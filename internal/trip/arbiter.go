package trip

import (
	"context"
	"errors"
	"time"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/registry"
	"github.com/example/ride-dispatch/internal/store"
)

var (
	// ErrAlreadyTaken means another driver won the claim race.
	ErrAlreadyTaken = errors.New("ride already taken")
	// ErrRideClosed means the ride reached a terminal status before the
	// accept arrived; the caller was too late rather than outraced.
	ErrRideClosed = errors.New("ride no longer active")
	// ErrWrongDriver means the caller is not the ride's assigned driver.
	ErrWrongDriver = errors.New("ride assigned to another driver")
)

// RejectReason maps an accept/start rejection to its wire reason.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyTaken):
		return "already_taken"
	case errors.Is(err, ErrRideClosed):
		return "ride_closed"
	case errors.Is(err, ErrWrongDriver):
		return "wrong_driver"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// Accept resolves a driver's claim on a broadcasting ride. The transition is
// an atomic compare-and-set, so exactly one of any number of concurrent
// claims succeeds; the rest observe ErrAlreadyTaken. A claim against a ride
// that already reached a terminal status gets ErrRideClosed instead, so
// clients can tell "too late" from "lost the race". There is no ranking or
// queueing among claimants: first committed compare-and-set wins.
func (s *Service) Accept(ctx context.Context, rideID, driverID string) (models.Ride, error) {
	now := time.Now().UTC()
	ride, err := s.Store.Transition(rideID, models.StatusBroadcasting, models.StatusAssigned, func(r *models.Ride) {
		r.DriverID = driverID
		r.AssignedAt = now
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		observability.AcceptsRejected.WithLabelValues(RejectReason(err)).Inc()
		return models.Ride{}, err
	case errors.Is(err, store.ErrStaleTransition):
		reason := error(ErrAlreadyTaken)
		if cur, gerr := s.Store.Get(rideID); gerr == nil && cur.Status.Terminal() {
			reason = ErrRideClosed
		}
		observability.AcceptsRejected.WithLabelValues(RejectReason(reason)).Inc()
		return models.Ride{}, reason
	case err != nil:
		return models.Ride{}, err
	}

	// Winner only from here on. The loser paths above have no side effects,
	// so a rejected driver stays available for other offers.
	if sess, ok := s.Sessions.Get(registry.RoleDriver, driverID); ok {
		sess.SetAvailable(false)
	}
	s.cancelExpiry(rideID)
	observability.AcceptsWon.Inc()
	s.mirror(ctx, ride)

	if s.Payments != nil {
		if err := s.Payments.Hold(ctx, ride); err != nil {
			s.Logger.Warn("payment hold failed", "ride_id", rideID, "error", err)
		}
	}

	s.notifyStatus(ride)
	s.Logger.Info("ride assigned", "ride_id", rideID, "driver_id", driverID)
	return ride, nil
}
