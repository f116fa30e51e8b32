package archive

import (
	"context"
	"testing"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

func rideAt(id, passenger string, created time.Time) models.Ride {
	return models.Ride{
		ID:          id,
		PassengerID: passenger,
		Status:      models.StatusFinalized,
		CreatedAt:   created,
	}
}

func TestListByPassengerNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s.Save(ctx, rideAt("r1", "p1", base))
	s.Save(ctx, rideAt("r2", "p1", base.Add(time.Hour)))
	s.Save(ctx, rideAt("r3", "p2", base.Add(2*time.Hour)))
	s.Save(ctx, rideAt("r4", "p1", base.Add(3*time.Hour)))

	got, err := s.ListByPassenger(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rides for p1, got %d", len(got))
	}
	if got[0].ID != "r4" || got[1].ID != "r2" || got[2].ID != "r1" {
		t.Fatalf("wrong order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestListByPassengerHonorsLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Save(ctx, rideAt(string(rune('a'+i)), "p1", base.Add(time.Duration(i)*time.Minute)))
	}

	got, err := s.ListByPassenger(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(got))
	}
	if got[0].ID != "e" {
		t.Fatalf("expected newest first, got %s", got[0].ID)
	}
}

func TestListUnknownPassengerIsEmpty(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.ListByPassenger(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
}
