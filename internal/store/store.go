package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

var (
	// ErrDuplicateActiveRide rejects a request from a passenger who already
	// has a non-terminal ride.
	ErrDuplicateActiveRide = errors.New("passenger already has an active ride")
	// ErrStaleTransition means a compare-and-set lost a race or the target
	// ride is already terminal. The record is left untouched.
	ErrStaleTransition = errors.New("ride status changed since read")
	// ErrNotFound means the ride id is unknown.
	ErrNotFound = errors.New("ride not found")
)

// record pairs a ride with its own mutex so mutations to a single ride are
// serialized without a store-wide write lock.
type record struct {
	mu   sync.Mutex
	ride models.Ride
}

// defaultTerminalRetention is how long a terminal ride stays readable before
// eviction. The window lets a late accept observe the terminal status instead
// of an unknown-ride error.
const defaultTerminalRetention = 5 * time.Minute

// MemoryStore owns all active RideRequest records. Terminal rides stay
// readable for a retention window and are then evicted; durable history lives
// in the archive.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]*record

	// active indexes non-terminal rides by actor so the one-active-ride
	// invariant and driver-disconnect lookups stay O(1).
	activePassenger map[string]string
	activeDriver    map[string]string

	retention time.Duration
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithRetention(defaultTerminalRetention)
}

// NewMemoryStoreWithRetention overrides how long terminal rides remain
// readable before eviction.
func NewMemoryStoreWithRetention(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = defaultTerminalRetention
	}
	return &MemoryStore{
		rides:           make(map[string]*record),
		activePassenger: make(map[string]string),
		activeDriver:    make(map[string]string),
		retention:       retention,
	}
}

// Create registers a new ride in status "requested". It fails with
// ErrDuplicateActiveRide if the passenger already has a non-terminal ride.
func (s *MemoryStore) Create(passengerID string, origin, dest models.Coord, q models.Quote) (models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.activePassenger[passengerID]; busy {
		return models.Ride{}, ErrDuplicateActiveRide
	}

	r := models.Ride{
		ID:          newID(),
		PassengerID: passengerID,
		Origin:      origin,
		Destination: dest,
		Quote:       q,
		Status:      models.StatusRequested,
		CreatedAt:   time.Now().UTC(),
	}
	s.rides[r.ID] = &record{ride: r}
	s.activePassenger[passengerID] = r.ID
	return r, nil
}

// Get returns a snapshot of the ride.
func (s *MemoryStore) Get(id string) (models.Ride, error) {
	s.mu.RLock()
	rec, ok := s.rides[id]
	s.mu.RUnlock()
	if !ok {
		return models.Ride{}, ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.ride, nil
}

// Transition atomically moves a ride from expected to next, applying extra
// field mutations while the record lock is held. Exactly one of any set of
// concurrent callers with the same expected status succeeds; the rest get
// ErrStaleTransition and the record is unchanged.
func (s *MemoryStore) Transition(id string, expected, next models.Status, apply func(*models.Ride)) (models.Ride, error) {
	s.mu.RLock()
	rec, ok := s.rides[id]
	s.mu.RUnlock()
	if !ok {
		return models.Ride{}, ErrNotFound
	}

	rec.mu.Lock()
	if rec.ride.Status != expected {
		rec.mu.Unlock()
		return models.Ride{}, ErrStaleTransition
	}
	rec.ride.Status = next
	if apply != nil {
		apply(&rec.ride)
	}
	snap := rec.ride
	rec.mu.Unlock()

	s.reindex(rec)
	return snap, nil
}

// ActiveForDriver returns the driver's current assigned/in-progress ride.
func (s *MemoryStore) ActiveForDriver(driverID string) (models.Ride, bool) {
	s.mu.RLock()
	id, ok := s.activeDriver[driverID]
	s.mu.RUnlock()
	if !ok {
		return models.Ride{}, false
	}
	r, err := s.Get(id)
	if err != nil {
		return models.Ride{}, false
	}
	return r, true
}

// ActiveForPassenger returns the passenger's current non-terminal ride.
func (s *MemoryStore) ActiveForPassenger(passengerID string) (models.Ride, bool) {
	s.mu.RLock()
	id, ok := s.activePassenger[passengerID]
	s.mu.RUnlock()
	if !ok {
		return models.Ride{}, false
	}
	r, err := s.Get(id)
	if err != nil {
		return models.Ride{}, false
	}
	return r, true
}

// reindex keeps the per-actor indexes in step with a committed transition.
// It re-reads the record's current state under its lock rather than trusting
// the committing caller's snapshot: two back-to-back transitions on the same
// ride may reach this point in either order, and a stale snapshot could
// re-add an index entry for a ride that already went terminal.
func (s *MemoryStore) reindex(rec *record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.mu.Lock()
	r := rec.ride
	rec.mu.Unlock()

	if r.Status.Terminal() {
		if s.activePassenger[r.PassengerID] == r.ID {
			delete(s.activePassenger, r.PassengerID)
		}
		if r.DriverID != "" && s.activeDriver[r.DriverID] == r.ID {
			delete(s.activeDriver, r.DriverID)
		}
		time.AfterFunc(s.retention, func() { s.evict(r.ID, rec) })
		return
	}
	if r.DriverID != "" {
		s.activeDriver[r.DriverID] = r.ID
	}
}

// evict drops a terminal ride once its retention window passed. The pointer
// compare keeps a later record under a recycled id safe.
func (s *MemoryStore) evict(id string, rec *record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rides[id] == rec {
		delete(s.rides, id)
	}
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
