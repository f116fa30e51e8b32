package payments

import (
	"context"
	"math"
	"sync"

	"github.com/example/ride-dispatch/internal/models"
)

// Holder is the payment backend the ledger settles against.
type Holder interface {
	Hold(ctx context.Context, amount int64, currency string) (string, error)
	Capture(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
}

// Ledger ties payment holds to ride ids: a hold is placed when a ride is
// assigned, captured on finalize, and released on cancel or expiry. Rides
// with a zero fare (no pricing collaborator configured) are skipped.
type Ledger struct {
	backend  Holder
	currency string

	mu    sync.Mutex
	holds map[string]string // ride id -> payment intent id
}

func NewLedger(backend Holder, currency string) *Ledger {
	return &Ledger{backend: backend, currency: currency, holds: make(map[string]string)}
}

func (l *Ledger) Hold(ctx context.Context, r models.Ride) error {
	amount := toMinorUnits(r.Quote.Fare)
	if amount <= 0 {
		return nil
	}
	id, err := l.backend.Hold(ctx, amount, l.currency)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.holds[r.ID] = id
	l.mu.Unlock()
	return nil
}

func (l *Ledger) Capture(ctx context.Context, rideID string) error {
	id, ok := l.takeHold(rideID)
	if !ok {
		return nil
	}
	return l.backend.Capture(ctx, id)
}

func (l *Ledger) Release(ctx context.Context, rideID string) error {
	id, ok := l.takeHold(rideID)
	if !ok {
		return nil
	}
	return l.backend.Cancel(ctx, id)
}

func (l *Ledger) takeHold(rideID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.holds[rideID]
	delete(l.holds, rideID)
	return id, ok
}

func toMinorUnits(fare float64) int64 {
	return int64(math.Round(fare * 100))
}
