// Package archive persists rides that reached a terminal status and serves
// the passenger history listing. The active lifecycle never reads from here.
package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ride-dispatch/internal/models"
)

// Store is the durable side of the ride lifecycle.
type Store interface {
	Save(ctx context.Context, r models.Ride) error
	ListByPassenger(ctx context.Context, passengerID string, limit int) ([]models.Ride, error)
}

// MemoryStore keeps terminal rides in process memory. It backs local runs
// and tests when no Postgres DSN is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	rides []models.Ride
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Save(ctx context.Context, r models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides = append(m.rides, r)
	return nil
}

func (m *MemoryStore) ListByPassenger(ctx context.Context, passengerID string, limit int) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0, limit)
	for _, r := range m.rides {
		if r.PassengerID == passengerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
