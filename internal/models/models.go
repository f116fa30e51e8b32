package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Quote carries the externally computed pricing and routing data attached to a
// ride at creation time. The coordinator treats every field as opaque.
type Quote struct {
	Fare     float64 `json:"fare"`
	Distance float64 `json:"distance_meters"`
	Duration float64 `json:"duration_seconds"`
	Route    []Coord `json:"route,omitempty"`
}

type Status string

const (
	StatusRequested    Status = "requested"
	StatusBroadcasting Status = "broadcasting"
	StatusAssigned     Status = "assigned"
	StatusInProgress   Status = "in_progress"
	StatusFinalized    Status = "finalized"
	StatusCancelled    Status = "cancelled"
	StatusExpired      Status = "expired"
)

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusCancelled || s == StatusExpired
}

// Cancellation reasons recorded on a cancelled ride.
const (
	CancelByPassenger   = "passenger_cancelled"
	CancelDriverLost    = "driver_lost"
	CancelPassengerLost = "passenger_lost"
)

// Ride is the single source-of-truth record for one requested trip.
// DriverID is empty until the ride is assigned. Route inside Quote is never
// mutated after creation, so value copies of a Ride are safe snapshots.
type Ride struct {
	ID           string    `json:"id"`
	PassengerID  string    `json:"passenger_id"`
	DriverID     string    `json:"driver_id,omitempty"`
	Origin       Coord     `json:"origin"`
	Destination  Coord     `json:"destination"`
	Quote        Quote     `json:"quote"`
	Status       Status    `json:"status"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	AssignedAt   time.Time `json:"assigned_at,omitzero"`
	FinalizedAt  time.Time `json:"finalized_at,omitzero"`
}

// PositionUpdate is a driver GPS sample as published to the ingest stream.
type PositionUpdate struct {
	DriverID string    `json:"driver_id"`
	Loc      Coord     `json:"loc"`
	At       time.Time `json:"at"`
}
