package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

func TestCreateRejectsSecondActiveRide(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{}); !errors.Is(err, ErrDuplicateActiveRide) {
		t.Fatalf("expected ErrDuplicateActiveRide, got %v", err)
	}
	// a different passenger is unaffected
	if _, err := s.Create("p2", models.Coord{}, models.Coord{}, models.Quote{}); err != nil {
		t.Fatalf("other passenger create: %v", err)
	}
}

func TestCreateAllowedAgainAfterTerminal(t *testing.T) {
	s := NewMemoryStore()
	r, _ := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{})
	if _, err := s.Transition(r.ID, models.StatusRequested, models.StatusCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{}); err != nil {
		t.Fatalf("create after terminal: %v", err)
	}
}

func TestTransitionCompareAndSet(t *testing.T) {
	s := NewMemoryStore()
	r, _ := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{})

	got, err := s.Transition(r.ID, models.StatusRequested, models.StatusBroadcasting, nil)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Status != models.StatusBroadcasting {
		t.Fatalf("expected broadcasting, got %s", got.Status)
	}

	// stale expected status leaves the record untouched
	if _, err := s.Transition(r.ID, models.StatusRequested, models.StatusCancelled, nil); !errors.Is(err, ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}
	cur, _ := s.Get(r.ID)
	if cur.Status != models.StatusBroadcasting {
		t.Fatalf("record mutated on failed transition: %s", cur.Status)
	}
}

func TestTransitionUnknownRide(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Transition("nope", models.StatusRequested, models.StatusBroadcasting, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentTransitionSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	r, _ := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{})
	if _, err := s.Transition(r.ID, models.StatusRequested, models.StatusBroadcasting, nil); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wins := make(chan string, n)
	for i := 0; i < n; i++ {
		driverID := string(rune('a' + i))
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			_, err := s.Transition(r.ID, models.StatusBroadcasting, models.StatusAssigned, func(rr *models.Ride) {
				rr.DriverID = d
			})
			if err == nil {
				wins <- d
			} else if !errors.Is(err, ErrStaleTransition) {
				t.Errorf("unexpected error: %v", err)
			}
		}(driverID)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for d := range wins {
		winners = append(winners, d)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", len(winners))
	}
	cur, _ := s.Get(r.ID)
	if cur.DriverID != winners[0] || cur.Status != models.StatusAssigned {
		t.Fatalf("winner not recorded: driver=%s status=%s", cur.DriverID, cur.Status)
	}
}

func TestExpiredIsTerminal(t *testing.T) {
	s := NewMemoryStore()
	r, _ := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{})
	s.Transition(r.ID, models.StatusRequested, models.StatusBroadcasting, nil)
	if _, err := s.Transition(r.ID, models.StatusBroadcasting, models.StatusExpired, nil); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := s.Transition(r.ID, models.StatusBroadcasting, models.StatusAssigned, nil); !errors.Is(err, ErrStaleTransition) {
		t.Fatalf("expired ride accepted a transition: %v", err)
	}
}

func TestBackToBackTransitionsKeepIndexesConsistent(t *testing.T) {
	// An assign and an immediate cancel may interleave their index updates
	// in either order; the driver must never stay indexed against a ride
	// that already went terminal, or they could be locked out of the pool.
	s := NewMemoryStore()
	for i := 0; i < 2000; i++ {
		r, err := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.Transition(r.ID, models.StatusRequested, models.StatusBroadcasting, nil); err != nil {
			t.Fatalf("broadcast: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Transition(r.ID, models.StatusBroadcasting, models.StatusAssigned, func(rr *models.Ride) {
				rr.DriverID = "d1"
			})
		}()
		go func() {
			defer wg.Done()
			// spin until the assign committed, then cancel right behind it
			for {
				if _, err := s.Transition(r.ID, models.StatusAssigned, models.StatusCancelled, nil); err == nil {
					return
				}
			}
		}()
		wg.Wait()

		if _, ok := s.ActiveForDriver("d1"); ok {
			t.Fatalf("iteration %d: driver indexed against a terminal ride", i)
		}
		if _, ok := s.ActiveForPassenger("p1"); ok {
			t.Fatalf("iteration %d: passenger indexed against a terminal ride", i)
		}
	}
}

func TestTerminalRideEvictedAfterRetention(t *testing.T) {
	s := NewMemoryStoreWithRetention(20 * time.Millisecond)
	r, _ := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{})
	if _, err := s.Transition(r.ID, models.StatusRequested, models.StatusCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// inside the retention window the terminal ride is still readable
	if cur, err := s.Get(r.ID); err != nil || cur.Status != models.StatusCancelled {
		t.Fatalf("terminal ride unreadable inside retention: %v %v", cur.Status, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := s.Get(r.ID); errors.Is(err, ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("terminal ride never evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestActiveRideIsNotEvicted(t *testing.T) {
	s := NewMemoryStoreWithRetention(10 * time.Millisecond)
	r, _ := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{})
	s.Transition(r.ID, models.StatusRequested, models.StatusBroadcasting, nil)

	time.Sleep(50 * time.Millisecond)
	if _, err := s.Get(r.ID); err != nil {
		t.Fatalf("active ride evicted: %v", err)
	}
}

func TestActiveDriverIndex(t *testing.T) {
	s := NewMemoryStore()
	r, _ := s.Create("p1", models.Coord{}, models.Coord{}, models.Quote{})
	s.Transition(r.ID, models.StatusRequested, models.StatusBroadcasting, nil)

	if _, ok := s.ActiveForDriver("d1"); ok {
		t.Fatal("driver indexed before assignment")
	}
	s.Transition(r.ID, models.StatusBroadcasting, models.StatusAssigned, func(rr *models.Ride) { rr.DriverID = "d1" })

	got, ok := s.ActiveForDriver("d1")
	if !ok || got.ID != r.ID {
		t.Fatalf("expected active ride %s for d1, got %v ok=%v", r.ID, got.ID, ok)
	}

	s.Transition(r.ID, models.StatusAssigned, models.StatusCancelled, nil)
	if _, ok := s.ActiveForDriver("d1"); ok {
		t.Fatal("driver still indexed after terminal transition")
	}
	if _, ok := s.ActiveForPassenger("p1"); ok {
		t.Fatal("passenger still indexed after terminal transition")
	}
}
