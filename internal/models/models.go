package models

import "time"

// Provider operates routes
type Provider struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"userId,omitempty"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Route is a source/destination pair served by a provider
type Route struct {
	ID          string    `db:"id" json:"id"`
	ProviderID  string    `db:"provider_id" json:"providerId"`
	Source      string    `db:"source" json:"source"`
	Destination string    `db:"destination" json:"destination"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Trip is a scheduled departure on a route with a fixed seat capacity
type Trip struct {
	ID        string    `db:"id" json:"id"`
	RouteID   string    `db:"route_id" json:"routeId"`
	Departure time.Time `db:"departure" json:"departure"`
	Capacity  int       `db:"capacity" json:"capacity"`
	BasePrice int64     `db:"base_price" json:"basePrice"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// TripListing is a trip with its route endpoints and current availability
type TripListing struct {
	Trip
	Source         string `db:"source" json:"source"`
	Destination    string `db:"destination" json:"destination"`
	SeatsAvailable int    `db:"seats_available" json:"seatsAvailable"`
}

// Seat is identified by (TripID, SeatNo)
type Seat struct {
	TripID string `db:"trip_id" json:"tripId"`
	SeatNo string `db:"seat_no" json:"seatNo"`
	Status string `db:"status" json:"status"`
}

// Booking reserves one seat on one trip for one user
type Booking struct {
	ID             string    `db:"id" json:"id"`
	TripID         string    `db:"trip_id" json:"tripId"`
	UserID         string    `db:"user_id" json:"userId"`
	SeatNo         string    `db:"seat_no" json:"seatNo"`
	PriceApplied   int64     `db:"price_applied" json:"priceApplied"`
	State          string    `db:"state" json:"state"`
	PaymentState   string    `db:"payment_state" json:"paymentState"`
	IdempotencyKey *string   `db:"idempotency_key" json:"idempotencyKey,omitempty"`
	PassengerName  *string   `db:"passenger_name" json:"passengerName,omitempty"`
	PassengerEmail *string   `db:"passenger_email" json:"passengerEmail,omitempty"`
	PassengerPhone *string   `db:"passenger_phone" json:"passengerPhone,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// BookingDetail is a booking joined with its trip and route for display
type BookingDetail struct {
	Booking
	Trip TripSummary `db:"trip" json:"trip"`
}

// TripSummary is the trip/route projection embedded in BookingDetail
type TripSummary struct {
	ID          string    `db:"id" json:"id"`
	Departure   time.Time `db:"departure" json:"departure"`
	BasePrice   int64     `db:"base_price" json:"basePrice"`
	RouteID     string    `db:"route_id" json:"routeId"`
	Source      string    `db:"source" json:"source"`
	Destination string    `db:"destination" json:"destination"`
}

// SeatCounts is a per-status seat tally for a trip
type SeatCounts struct {
	TripID    string `db:"trip_id" json:"tripId"`
	Capacity  int    `db:"capacity" json:"capacity"`
	Available int    `db:"available" json:"available"`
	Held      int    `db:"held" json:"held"`
	Sold      int    `db:"sold" json:"sold"`
}

// Seat statuses
const (
	SeatStatusAvailable = "AVAILABLE"
	SeatStatusHeld      = "HELD"
	SeatStatusSold      = "SOLD"
)

// Booking states
const (
	BookingStatePending     = "PENDING"
	BookingStateConfirmed   = "CONFIRMED"
	BookingStateCancelled   = "CANCELLED"
	BookingStateRescheduled = "RESCHEDULED"
)

// Payment states
const (
	PaymentStatePending  = "PENDING"
	PaymentStatePaid     = "PAID"
	PaymentStateFailed   = "FAILED"
	PaymentStateRefunded = "REFUNDED"
)

// Provider statuses
const (
	ProviderStatusActive   = "ACTIVE"
	ProviderStatusDisabled = "DISABLED"
)

// Caller roles
const (
	RoleUser     = "USER"
	RoleProvider = "PROVIDER"
)

// IsActive reports whether the booking currently occupies its seat.
func (b *Booking) IsActive() bool {
	switch b.State {
	case BookingStatePending, BookingStateConfirmed, BookingStateRescheduled:
		return true
	}
	return false
}
