package service

import (
	"context"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/payment"
	"booking-service/internal/pricing"
	"booking-service/internal/store"
)

// BookingStore is the transactional persistence used by the booking lifecycle
type BookingStore interface {
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	CountAvailableSeats(ctx context.Context, tripID string) (int, error)
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	HasActiveBooking(ctx context.Context, tripID, seatNo string) (bool, error)
	CreateBookingTx(ctx context.Context, booking *models.Booking) error
	CancelBookingTx(ctx context.Context, id string) (*models.Booking, bool, error)
	ConfirmPaymentTx(ctx context.Context, id string) (*models.Booking, error)
	MarkPaymentFailed(ctx context.Context, id string) (*models.Booking, error)
	RescheduleBookingTx(ctx context.Context, id, newTripID, newSeatNo string, price int64) (*models.Booking, *models.Booking, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
	ExpireBookingTx(ctx context.Context, id string, cutoff time.Time) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]models.BookingDetail, error)
	GetBookingDetail(ctx context.Context, id string) (*models.BookingDetail, error)
	UpdatePassenger(ctx context.Context, id string, name, email, phone *string) (*models.Booking, error)
}

// CatalogStore persists providers, routes, trips and seats
type CatalogStore interface {
	CreateProvider(ctx context.Context, provider *models.Provider) error
	ListProviders(ctx context.Context) ([]models.Provider, error)
	UpdateProviderStatus(ctx context.Context, id, status string) (*models.Provider, error)
	CreateRoute(ctx context.Context, route *models.Route) error
	ListRoutes(ctx context.Context) ([]models.Route, error)
	CreateTripWithSeats(ctx context.Context, trip *models.Trip, seatNos []string) error
	GetTripListing(ctx context.Context, id string) (*models.TripListing, error)
	SearchTrips(ctx context.Context, filter store.TripFilter) ([]models.TripListing, error)
	ListSeats(ctx context.Context, tripID string) ([]models.Seat, error)
}

// AvailabilityStore is the authoritative source of seat counts
type AvailabilityStore interface {
	SeatCounts(ctx context.Context, tripID string) (*models.SeatCounts, error)
	ListUpcomingTripIDs(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// HoldCache is the distributed cache backing seat holds, payment window
// markers and the idempotency fast path
type HoldCache interface {
	AcquireSeatHold(ctx context.Context, tripID, seatNo, owner string, ttl time.Duration) (bool, error)
	ReleaseSeatHold(ctx context.Context, tripID, seatNo, owner string) (bool, error)
	MarkPaymentWindow(ctx context.Context, bookingID string, ttl time.Duration) error
	ClearPaymentWindow(ctx context.Context, bookingID string) error
	RememberIdempotencyKey(ctx context.Context, key, bookingID string, ttl time.Duration) error
	LookupIdempotencyKey(ctx context.Context, key string) (string, error)
}

// AvailabilityCache holds the display projection of seat counts
type AvailabilityCache interface {
	SetTripAvailability(ctx context.Context, counts *models.SeatCounts, ttl time.Duration) error
	GetTripAvailability(ctx context.Context, tripID string) (*models.SeatCounts, bool, error)
}

// PricingOracle quotes a price for a trip
type PricingOracle interface {
	Price(ctx context.Context, q pricing.Quote) (int64, error)
}

// PaymentGateway charges a payment instrument
type PaymentGateway interface {
	Charge(ctx context.Context, c payment.Charge) (*payment.Receipt, error)
}

// EventPublisher emits booking lifecycle events
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event *models.BookingEvent) error
}

// Caller is the authenticated principal of a request
type Caller struct {
	UserID string
	Role   string
}

// IsProvider reports whether the caller holds the provider capability
func (c Caller) IsProvider() bool {
	return c.Role == models.RoleProvider
}
