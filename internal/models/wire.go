package models

// Message types pushed to connected sessions.
const (
	MsgRideOffer      = "ride_offer"
	MsgRideStatus     = "ride_status"
	MsgOfferWithdrawn = "offer_withdrawn"
	MsgDriverPosition = "driver_position"
)

// RideOffer is fanned out to every eligible driver when a ride starts
// broadcasting.
type RideOffer struct {
	Type        string `json:"type"`
	RideID      string `json:"ride_id"`
	Origin      Coord  `json:"origin"`
	Destination Coord  `json:"destination"`
	Quote       Quote  `json:"quote"`
}

// RideStatus is pushed to the passenger and the assigned driver on every
// status transition.
type RideStatus struct {
	Type string `json:"type"`
	Ride Ride   `json:"ride"`
}

// OfferWithdrawn tells a driver that a previously offered ride is no longer
// actionable.
type OfferWithdrawn struct {
	Type   string `json:"type"`
	RideID string `json:"ride_id"`
}

// DriverPosition is a best-effort position push to the passenger of an
// active ride. It carries no ordering guarantee relative to status events.
type DriverPosition struct {
	Type     string `json:"type"`
	RideID   string `json:"ride_id"`
	DriverID string `json:"driver_id"`
	Loc      Coord  `json:"loc"`
}

func NewRideOffer(r Ride) RideOffer {
	return RideOffer{
		Type:        MsgRideOffer,
		RideID:      r.ID,
		Origin:      r.Origin,
		Destination: r.Destination,
		Quote:       r.Quote,
	}
}

func NewRideStatus(r Ride) RideStatus {
	return RideStatus{Type: MsgRideStatus, Ride: r}
}

func NewOfferWithdrawn(rideID string) OfferWithdrawn {
	return OfferWithdrawn{Type: MsgOfferWithdrawn, RideID: rideID}
}
