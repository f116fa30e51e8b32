package trip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

func waitForStatus(t *testing.T, e *env, rideID string, want models.Status) models.Ride {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r, err := e.rides.Get(rideID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if r.Status == want {
			return r
		}
		time.Sleep(5 * time.Millisecond)
	}
	r, _ := e.rides.Get(rideID)
	t.Fatalf("ride never reached %s, still %s", want, r.Status)
	return models.Ride{}
}

func TestUnclaimedRideExpires(t *testing.T) {
	e := newEnv(t)
	e.svc.OfferTimeout = 20 * time.Millisecond
	passenger := e.connectPassenger("p1")
	// zero eligible drivers

	ride, err := e.svc.Request(context.Background(), "p1", models.Coord{}, models.Coord{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	waitForStatus(t, e, ride.ID, models.StatusExpired)

	// give any stray duplicate notification a moment to show up
	time.Sleep(50 * time.Millisecond)
	if n := passenger.statusEvents(models.StatusExpired); n != 1 {
		t.Fatalf("passenger got %d expired events, want exactly 1", n)
	}

	// expired is terminal: no later claim can assign it
	e.connectDriver("d1", true)
	if _, err := e.svc.Accept(context.Background(), ride.ID, "d1"); !errors.Is(err, ErrRideClosed) {
		t.Fatalf("expected ErrRideClosed on expired ride, got %v", err)
	}
	if e.archived.count() != 1 {
		t.Fatalf("expired ride not archived")
	}
}

func TestAcceptDisarmsExpiryTimer(t *testing.T) {
	e := newEnv(t)
	e.svc.OfferTimeout = 20 * time.Millisecond
	passenger := e.connectPassenger("p1")
	e.connectDriver("d1", true)

	ride, _ := e.svc.Request(context.Background(), "p1", models.Coord{}, models.Coord{})
	if _, err := e.svc.Accept(context.Background(), ride.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	cur, _ := e.rides.Get(ride.ID)
	if cur.Status != models.StatusAssigned {
		t.Fatalf("assigned ride moved to %s after timeout window", cur.Status)
	}
	if n := passenger.statusEvents(models.StatusExpired); n != 0 {
		t.Fatalf("passenger got %d expired events, want 0", n)
	}
}

func TestAssignedDriverDisconnectCancelsRide(t *testing.T) {
	e := newEnv(t)
	passenger := e.connectPassenger("p1")
	e.connectDriver("d1", true)
	other := e.connectDriver("d2", true)

	ride, _ := e.svc.Request(context.Background(), "p1", models.Coord{}, models.Coord{})
	if _, err := e.svc.Accept(context.Background(), ride.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	offersBefore := other.offers()
	e.svc.DriverDisconnected("d1")

	cur, _ := e.rides.Get(ride.ID)
	if cur.Status != models.StatusCancelled || cur.CancelReason != models.CancelDriverLost {
		t.Fatalf("expected cancelled/driver_lost, got %s/%s", cur.Status, cur.CancelReason)
	}
	if n := passenger.statusEvents(models.StatusCancelled); n != 1 {
		t.Fatalf("passenger got %d cancelled events, want 1", n)
	}
	// conservative fail-safe: no automatic re-broadcast
	if other.offers() != offersBefore {
		t.Fatal("ride was re-broadcast after driver loss")
	}
}

func TestDriverDisconnectWithoutRideIsNoop(t *testing.T) {
	e := newEnv(t)
	e.connectDriver("d1", true)
	e.svc.DriverDisconnected("d1") // must not panic or touch anything
}

func TestInProgressDriverDisconnectCancels(t *testing.T) {
	e := newEnv(t)
	e.connectPassenger("p1")
	e.connectDriver("d1", true)

	ride, _ := e.svc.Request(context.Background(), "p1", models.Coord{}, models.Coord{})
	e.svc.Accept(context.Background(), ride.ID, "d1")
	if _, err := e.svc.Start(context.Background(), ride.ID, "d1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	e.svc.DriverDisconnected("d1")
	cur, _ := e.rides.Get(ride.ID)
	if cur.Status != models.StatusCancelled || cur.CancelReason != models.CancelDriverLost {
		t.Fatalf("expected cancelled/driver_lost, got %s/%s", cur.Status, cur.CancelReason)
	}
}

func TestPassengerCancelWithdrawsOffers(t *testing.T) {
	e := newEnv(t)
	e.connectPassenger("p1")
	d1 := e.connectDriver("d1", true)
	d2 := e.connectDriver("d2", true)

	ride, _ := e.svc.Request(context.Background(), "p1", models.Coord{}, models.Coord{})
	if d1.offers() != 1 || d2.offers() != 1 {
		t.Fatalf("offers not delivered: d1=%d d2=%d", d1.offers(), d2.offers())
	}

	if _, err := e.svc.Cancel(context.Background(), ride.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if d1.withdrawals() != 1 || d2.withdrawals() != 1 {
		t.Fatalf("withdrawals not delivered: d1=%d d2=%d", d1.withdrawals(), d2.withdrawals())
	}

	// a late accept is rejected with a terminal-state reason
	if _, err := e.svc.Accept(context.Background(), ride.ID, "d1"); !errors.Is(err, ErrRideClosed) {
		t.Fatalf("expected ErrRideClosed, got %v", err)
	}
}

func TestPassengerDisconnectCancelsUnassignedRide(t *testing.T) {
	e := newEnv(t)
	e.connectPassenger("p1")
	d1 := e.connectDriver("d1", true)

	ride, _ := e.svc.Request(context.Background(), "p1", models.Coord{}, models.Coord{})
	e.svc.PassengerDisconnected("p1")

	cur, _ := e.rides.Get(ride.ID)
	if cur.Status != models.StatusCancelled || cur.CancelReason != models.CancelPassengerLost {
		t.Fatalf("expected cancelled/passenger_lost, got %s/%s", cur.Status, cur.CancelReason)
	}
	if d1.withdrawals() != 1 {
		t.Fatalf("driver got %d withdrawals, want 1", d1.withdrawals())
	}
}

func TestPassengerDisconnectLeavesAssignedRideAlone(t *testing.T) {
	e := newEnv(t)
	e.connectPassenger("p1")
	e.connectDriver("d1", true)

	ride, _ := e.svc.Request(context.Background(), "p1", models.Coord{}, models.Coord{})
	if _, err := e.svc.Accept(context.Background(), ride.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	e.svc.PassengerDisconnected("p1")
	cur, _ := e.rides.Get(ride.ID)
	if cur.Status != models.StatusAssigned {
		t.Fatalf("assigned ride cancelled by passenger disconnect: %s", cur.Status)
	}
}
