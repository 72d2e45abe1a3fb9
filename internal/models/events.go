package models

import "time"

// Event types
const (
	EventTypeBookingCreated       = "BOOKING_CREATED"
	EventTypeBookingConfirmed     = "BOOKING_CONFIRMED"
	EventTypeBookingPaymentFailed = "BOOKING_PAYMENT_FAILED"
	EventTypeBookingCancelled     = "BOOKING_CANCELLED"
	EventTypeBookingExpired       = "BOOKING_EXPIRED"
	EventTypeBookingRescheduled   = "BOOKING_RESCHEDULED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingEvent describes a lifecycle transition of a single booking.
// OldTripID/OldSeatNo are only set for BOOKING_RESCHEDULED.
type BookingEvent struct {
	BaseEvent
	BookingID    string `json:"booking_id"`
	UserID       string `json:"user_id"`
	TripID       string `json:"trip_id"`
	SeatNo       string `json:"seat_no"`
	State        string `json:"state"`
	PaymentState string `json:"payment_state"`
	PriceApplied int64  `json:"price_applied"`
	OldTripID    string `json:"old_trip_id,omitempty"`
	OldSeatNo    string `json:"old_seat_no,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// TripIDs returns every trip whose seat counts the event touched.
func (e *BookingEvent) TripIDs() []string {
	if e.OldTripID != "" && e.OldTripID != e.TripID {
		return []string{e.TripID, e.OldTripID}
	}
	return []string{e.TripID}
}
