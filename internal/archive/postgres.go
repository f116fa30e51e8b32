package archive

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/ride-dispatch/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Save(ctx context.Context, r models.Ride) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO rides(id, passenger_id, driver_id, origin_lat, origin_lon, dest_lat, dest_lon,
		                   fare, distance_meters, duration_seconds, status, cancel_reason,
		                   created_at, assigned_at, finalized_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 ON CONFLICT (id) DO NOTHING`,
		r.ID, r.PassengerID, nullStr(r.DriverID),
		r.Origin.Lat, r.Origin.Lon, r.Destination.Lat, r.Destination.Lon,
		r.Quote.Fare, r.Quote.Distance, r.Quote.Duration,
		string(r.Status), nullStr(r.CancelReason),
		r.CreatedAt, nullTime(r.AssignedAt), nullTime(r.FinalizedAt))
	return err
}

func (p *PostgresStore) ListByPassenger(ctx context.Context, passengerID string, limit int) ([]models.Ride, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, passenger_id, COALESCE(driver_id, ''), origin_lat, origin_lon, dest_lat, dest_lon,
		        fare, distance_meters, duration_seconds, status, COALESCE(cancel_reason, ''),
		        created_at, assigned_at, finalized_at
		 FROM rides WHERE passenger_id = $1
		 ORDER BY created_at DESC LIMIT $2`, passengerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ride
	for rows.Next() {
		var r models.Ride
		var status string
		var assigned, finalized sql.NullTime
		if err := rows.Scan(&r.ID, &r.PassengerID, &r.DriverID,
			&r.Origin.Lat, &r.Origin.Lon, &r.Destination.Lat, &r.Destination.Lon,
			&r.Quote.Fare, &r.Quote.Distance, &r.Quote.Duration,
			&status, &r.CancelReason, &r.CreatedAt, &assigned, &finalized); err != nil {
			return nil, err
		}
		r.Status = models.Status(status)
		if assigned.Valid {
			r.AssignedAt = assigned.Time
		}
		if finalized.Valid {
			r.FinalizedAt = finalized.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
