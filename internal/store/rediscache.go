package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dispatch/internal/models"
)

// RedisCache mirrors active-ride snapshots into Redis so operational tooling
// can inspect live state without reaching into the coordinator process.
// Writes are best-effort; the in-memory store stays authoritative.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, ttl time.Duration) *RedisCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisCache{client: c, ttl: ttl}
}

// Store writes the ride snapshot as a hash under ride:<id>.
func (r *RedisCache) Store(ctx context.Context, ride models.Ride) error {
	key := rideKey(ride.ID)
	fields := map[string]interface{}{
		"passenger_id": ride.PassengerID,
		"driver_id":    ride.DriverID,
		"status":       string(ride.Status),
		"fare":         fmt.Sprintf("%.2f", ride.Quote.Fare),
		"updated":      time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, r.ttl).Err()
}

func (r *RedisCache) Close() error { return r.client.Close() }

func rideKey(id string) string { return "ride:" + id }
