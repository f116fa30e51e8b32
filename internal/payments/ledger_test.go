package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/example/ride-dispatch/internal/models"
)

type fakeHolder struct {
	mu       sync.Mutex
	next     int
	holds    []int64
	captured []string
	canceled []string
	failHold bool
}

func (f *fakeHolder) Hold(ctx context.Context, amount int64, currency string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failHold {
		return "", errors.New("card declined")
	}
	f.next++
	f.holds = append(f.holds, amount)
	return fmt.Sprintf("pi_%d", f.next), nil
}

func (f *fakeHolder) Capture(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, id)
	return nil
}

func (f *fakeHolder) Cancel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, id)
	return nil
}

func fareRide(id string, fare float64) models.Ride {
	return models.Ride{ID: id, Quote: models.Quote{Fare: fare}}
}

func TestHoldThenCapture(t *testing.T) {
	backend := &fakeHolder{}
	l := NewLedger(backend, "brl")
	ctx := context.Background()

	if err := l.Hold(ctx, fareRide("r1", 23.5)); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if len(backend.holds) != 1 || backend.holds[0] != 2350 {
		t.Fatalf("expected one hold of 2350 minor units, got %v", backend.holds)
	}

	if err := l.Capture(ctx, "r1"); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(backend.captured) != 1 || backend.captured[0] != "pi_1" {
		t.Fatalf("capture not forwarded: %v", backend.captured)
	}

	// the hold is consumed: a second settle is a no-op
	if err := l.Capture(ctx, "r1"); err != nil {
		t.Fatalf("second capture: %v", err)
	}
	if err := l.Release(ctx, "r1"); err != nil {
		t.Fatalf("release after capture: %v", err)
	}
	if len(backend.captured) != 1 || len(backend.canceled) != 0 {
		t.Fatalf("consumed hold settled twice: captured=%v canceled=%v", backend.captured, backend.canceled)
	}
}

func TestHoldThenRelease(t *testing.T) {
	backend := &fakeHolder{}
	l := NewLedger(backend, "brl")
	ctx := context.Background()

	l.Hold(ctx, fareRide("r1", 10))
	if err := l.Release(ctx, "r1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(backend.canceled) != 1 {
		t.Fatalf("cancel not forwarded: %v", backend.canceled)
	}
}

func TestZeroFareSkipsBackend(t *testing.T) {
	backend := &fakeHolder{}
	l := NewLedger(backend, "brl")
	ctx := context.Background()

	if err := l.Hold(ctx, fareRide("r1", 0)); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if len(backend.holds) != 0 {
		t.Fatalf("zero fare reached the backend: %v", backend.holds)
	}
	// no hold recorded, settling stays a no-op
	if err := l.Capture(ctx, "r1"); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(backend.captured) != 0 {
		t.Fatal("capture forwarded without a hold")
	}
}

func TestHoldFailureIsReported(t *testing.T) {
	backend := &fakeHolder{failHold: true}
	l := NewLedger(backend, "brl")
	if err := l.Hold(context.Background(), fareRide("r1", 10)); err == nil {
		t.Fatal("expected hold failure to propagate")
	}
	// nothing was recorded, so release is a no-op
	if err := l.Release(context.Background(), "r1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(backend.canceled) != 0 {
		t.Fatal("cancel forwarded for a failed hold")
	}
}
