package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/pricing"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BookingConfig holds the timing and penalty rules of the booking lifecycle
type BookingConfig struct {
	HoldTTL        time.Duration
	PaymentWindow  time.Duration
	PenaltyPercent int
	PenaltyWindow  time.Duration
	IdempotencyTTL time.Duration
}

// DefaultBookingConfig returns the production lifecycle rules
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		HoldTTL:        120 * time.Second,
		PaymentWindow:  15 * time.Minute,
		PenaltyPercent: 20,
		PenaltyWindow:  24 * time.Hour,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// BookingService implements the seat and booking lifecycle
type BookingService struct {
	store     BookingStore
	cache     HoldCache
	oracle    PricingOracle
	publisher EventPublisher
	cfg       BookingConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	store BookingStore,
	cache HoldCache,
	oracle PricingOracle,
	publisher EventPublisher,
	cfg BookingConfig,
) *BookingService {
	return &BookingService{
		store:     store,
		cache:     cache,
		oracle:    oracle,
		publisher: publisher,
		cfg:       cfg,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// CreateBookingInput is the request to reserve one seat
type CreateBookingInput struct {
	TripID         string
	SeatNo         string
	IdempotencyKey string
	Price          *int64
	PassengerName  *string
	PassengerEmail *string
	PassengerPhone *string
}

// RescheduleInput moves a booking to another seat, possibly on another trip
type RescheduleInput struct {
	NewTripID string
	NewSeatNo string
}

// PassengerPatch updates passenger details; nil fields are left unchanged
type PassengerPatch struct {
	Name  *string
	Email *string
	Phone *string
}

// CreateBooking reserves (TripID, SeatNo) for the caller. created is false when
// an earlier booking with the same idempotency key is returned instead.
func (s *BookingService) CreateBooking(ctx context.Context, caller Caller, in CreateBookingInput) (booking *models.Booking, created bool, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateBooking",
		attribute.String("trip_id", in.TripID),
		attribute.String("seat_no", in.SeatNo))
	defer span.End()
	defer func() { util.RecordError(span, err) }()

	if err := requireCaller(caller); err != nil {
		return nil, false, err
	}
	in.TripID = strings.TrimSpace(in.TripID)
	in.SeatNo = strings.TrimSpace(in.SeatNo)
	if in.TripID == "" || in.SeatNo == "" {
		return nil, false, validationError("tripId and seatNo are required")
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, false, validationError("price must not be negative")
	}

	if in.IdempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, false, internalError("failed to check idempotency", err)
		}
		if existing != nil {
			util.BookingsReplayedTotal.Inc()
			s.logger.Info("Duplicate booking request detected",
				zap.String("idempotency_key", in.IdempotencyKey),
				zap.String("booking_id", existing.ID))
			return existing, false, nil
		}
	}

	trip, err := s.store.GetTrip(ctx, in.TripID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, notFoundError("trip not found")
	}
	if err != nil {
		return nil, false, internalError("failed to load trip", err)
	}

	active, err := s.store.HasActiveBooking(ctx, trip.ID, in.SeatNo)
	if err != nil {
		return nil, false, internalError("failed to check seat", err)
	}
	if active {
		util.BookingConflictsTotal.WithLabelValues("active_booking").Inc()
		return nil, false, conflictError("seat already has active booking")
	}

	release, ok := s.acquireHold(ctx, trip.ID, in.SeatNo, caller.UserID)
	if !ok {
		util.BookingConflictsTotal.WithLabelValues("held").Inc()
		return nil, false, conflictError("seat temporarily held")
	}
	defer release()

	price := s.createPrice(ctx, trip, in.Price)

	booking = &models.Booking{
		ID:             uuid.NewString(),
		TripID:         trip.ID,
		UserID:         caller.UserID,
		SeatNo:         in.SeatNo,
		PriceApplied:   price,
		State:          models.BookingStatePending,
		PaymentState:   models.PaymentStatePending,
		PassengerName:  in.PassengerName,
		PassengerEmail: in.PassengerEmail,
		PassengerPhone: in.PassengerPhone,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		booking.IdempotencyKey = &key
	}

	if err := s.store.CreateBookingTx(ctx, booking); err != nil {
		if errors.Is(err, store.ErrDuplicateIdempotencyKey) {
			winner, lookupErr := s.store.GetBookingByIdempotencyKey(ctx, in.IdempotencyKey)
			if lookupErr == nil && winner != nil {
				util.BookingsReplayedTotal.Inc()
				return winner, false, nil
			}
		}

		util.BookingConflictsTotal.WithLabelValues("taken").Inc()
		if errors.Is(err, store.ErrSeatTaken) {
			s.logger.Info("Seat taken by concurrent booking",
				zap.String("trip_id", trip.ID),
				zap.String("seat_no", in.SeatNo))
		} else {
			s.logger.Error("Failed to create booking",
				zap.String("trip_id", trip.ID),
				zap.String("seat_no", in.SeatNo),
				zap.Error(err))
		}
		return nil, false, &Error{Kind: ErrConflict, Message: "seat already taken", cause: err}
	}

	if err := s.cache.MarkPaymentWindow(ctx, booking.ID, s.cfg.PaymentWindow); err != nil {
		s.logger.Warn("Failed to mark payment window",
			zap.String("booking_id", booking.ID),
			zap.Error(err))
	}
	if booking.IdempotencyKey != nil {
		if err := s.cache.RememberIdempotencyKey(ctx, *booking.IdempotencyKey, booking.ID, s.cfg.IdempotencyTTL); err != nil {
			s.logger.Warn("Failed to cache idempotency key",
				zap.String("booking_id", booking.ID),
				zap.Error(err))
		}
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Booking created",
		zap.String("booking_id", booking.ID),
		zap.String("trip_id", booking.TripID),
		zap.String("seat_no", booking.SeatNo),
		zap.Int64("price_applied", booking.PriceApplied))

	publishEvent(ctx, s.publisher, s.logger, newBookingEvent(models.EventTypeBookingCreated, booking))

	return booking, true, nil
}

// CancelBooking cancels a booking and frees its seat. Cancelling an already
// cancelled booking returns it unchanged.
func (s *BookingService) CancelBooking(ctx context.Context, caller Caller, id string) (booking *models.Booking, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CancelBooking", attribute.String("booking_id", id))
	defer span.End()
	defer func() { util.RecordError(span, err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	current, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != caller.UserID && !caller.IsProvider() {
		return nil, forbiddenError("forbidden")
	}

	booking, changed, err := s.store.CancelBookingTx(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("booking not found")
	}
	if err != nil {
		return nil, internalError("failed to cancel booking", err)
	}

	if err := s.cache.ClearPaymentWindow(ctx, id); err != nil {
		s.logger.Warn("Failed to clear payment window",
			zap.String("booking_id", id),
			zap.Error(err))
	}

	if !changed {
		return booking, nil
	}

	util.BookingsCancelledTotal.Inc()
	s.logger.Info("Booking cancelled",
		zap.String("booking_id", booking.ID),
		zap.String("cancelled_by", caller.UserID))

	event := newBookingEvent(models.EventTypeBookingCancelled, booking)
	event.Reason = "cancelled_by_caller"
	publishEvent(ctx, s.publisher, s.logger, event)

	return booking, nil
}

// RescheduleBooking moves a booking onto another seat. The new seat is SOLD
// immediately; a penalty is added when the original departure is close.
func (s *BookingService) RescheduleBooking(ctx context.Context, caller Caller, id string, in RescheduleInput) (booking *models.Booking, err error) {
	ctx, span := util.StartSpan(ctx, "BookingService.RescheduleBooking", attribute.String("booking_id", id))
	defer span.End()
	defer func() { util.RecordError(span, err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	in.NewTripID = strings.TrimSpace(in.NewTripID)
	in.NewSeatNo = strings.TrimSpace(in.NewSeatNo)
	if in.NewTripID == "" || in.NewSeatNo == "" {
		return nil, validationError("newTripId and newSeatNo are required")
	}

	current, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != caller.UserID && !caller.IsProvider() {
		return nil, forbiddenError("forbidden")
	}
	if current.State == models.BookingStateCancelled {
		return nil, conflictError("cannot reschedule a cancelled booking")
	}
	if current.PaymentState != models.PaymentStatePaid {
		return nil, conflictError("cannot reschedule an unpaid booking")
	}

	originalTrip, err := s.store.GetTrip(ctx, current.TripID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("original trip not found")
	}
	if err != nil {
		return nil, internalError("failed to load original trip", err)
	}

	newTrip, err := s.store.GetTrip(ctx, in.NewTripID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("new trip not found")
	}
	if err != nil {
		return nil, internalError("failed to load new trip", err)
	}

	sameSeat := current.TripID == newTrip.ID && current.SeatNo == in.NewSeatNo
	if !sameSeat {
		active, err := s.store.HasActiveBooking(ctx, newTrip.ID, in.NewSeatNo)
		if err != nil {
			return nil, internalError("failed to check seat", err)
		}
		if active {
			util.BookingConflictsTotal.WithLabelValues("reschedule_taken").Inc()
			return nil, conflictError("new seat already taken")
		}

		release, ok := s.acquireHold(ctx, newTrip.ID, in.NewSeatNo, caller.UserID)
		if !ok {
			util.BookingConflictsTotal.WithLabelValues("reschedule_held").Inc()
			return nil, conflictError("new seat temporarily held")
		}
		defer release()
	}

	newBase := s.reschedulePrice(ctx, newTrip, current.PriceApplied)
	penalty := s.penalty(originalTrip.Departure, newBase)

	prev, updated, err := s.store.RescheduleBookingTx(ctx, id, newTrip.ID, in.NewSeatNo, newBase+penalty)
	switch {
	case errors.Is(err, store.ErrSeatTaken):
		util.BookingConflictsTotal.WithLabelValues("reschedule_taken").Inc()
		return nil, conflictError("new seat already taken")
	case errors.Is(err, store.ErrStateChanged):
		return nil, conflictError("booking can no longer be rescheduled")
	case errors.Is(err, store.ErrNotFound):
		return nil, notFoundError("booking not found")
	case err != nil:
		return nil, internalError("failed to reschedule booking", err)
	}

	util.BookingsRescheduledTotal.Inc()
	s.logger.Info("Booking rescheduled",
		zap.String("booking_id", updated.ID),
		zap.String("old_trip_id", prev.TripID),
		zap.String("old_seat_no", prev.SeatNo),
		zap.String("new_trip_id", updated.TripID),
		zap.String("new_seat_no", updated.SeatNo),
		zap.Int64("penalty", penalty),
		zap.Int64("price_applied", updated.PriceApplied))

	event := newBookingEvent(models.EventTypeBookingRescheduled, updated)
	event.OldTripID = prev.TripID
	event.OldSeatNo = prev.SeatNo
	publishEvent(ctx, s.publisher, s.logger, event)

	return updated, nil
}

// GetBooking returns a booking with its trip. Only the owner or a provider may view it.
func (s *BookingService) GetBooking(ctx context.Context, caller Caller, id string) (*models.BookingDetail, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.GetBooking", attribute.String("booking_id", id))
	defer span.End()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	detail, err := s.store.GetBookingDetail(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("booking not found")
	}
	if err != nil {
		return nil, internalError("failed to load booking", err)
	}
	if detail.UserID != caller.UserID && !caller.IsProvider() {
		return nil, forbiddenError("forbidden")
	}
	return detail, nil
}

// ListMyBookings returns the caller's bookings, newest first
func (s *BookingService) ListMyBookings(ctx context.Context, caller Caller) ([]models.BookingDetail, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.ListMyBookings")
	defer span.End()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	bookings, err := s.store.ListBookingsByUser(ctx, caller.UserID)
	if err != nil {
		return nil, internalError("failed to list bookings", err)
	}
	return bookings, nil
}

// UpdatePassenger changes passenger details on the caller's booking
func (s *BookingService) UpdatePassenger(ctx context.Context, caller Caller, id string, patch PassengerPatch) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.UpdatePassenger", attribute.String("booking_id", id))
	defer span.End()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if patch.Name == nil && patch.Email == nil && patch.Phone == nil {
		return nil, validationError("at least one field required")
	}

	current, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != caller.UserID {
		return nil, forbiddenError("forbidden")
	}

	updated, err := s.store.UpdatePassenger(ctx, id, patch.Name, patch.Email, patch.Phone)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("booking not found")
	}
	if err != nil {
		return nil, internalError("failed to update passenger", err)
	}
	return updated, nil
}

func (s *BookingService) loadBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.store.GetBookingByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("booking not found")
	}
	if err != nil {
		return nil, internalError("failed to load booking", err)
	}
	return booking, nil
}

// findByIdempotencyKey tries the cache first, then the store
func (s *BookingService) findByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	id, err := s.cache.LookupIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency cache lookup failed", zap.Error(err))
	}
	if id != "" {
		booking, err := s.store.GetBookingByID(ctx, id)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return s.store.GetBookingByIdempotencyKey(ctx, key)
}

// acquireHold takes the advisory seat hold. A cache outage degrades to
// store-only protection rather than rejecting the request.
func (s *BookingService) acquireHold(ctx context.Context, tripID, seatNo, owner string) (release func(), ok bool) {
	start := time.Now()
	acquired, err := s.cache.AcquireSeatHold(ctx, tripID, seatNo, owner, s.cfg.HoldTTL)
	util.SeatHoldLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Warn("Seat hold unavailable, relying on store constraint",
			zap.String("trip_id", tripID),
			zap.String("seat_no", seatNo),
			zap.Error(err))
		return func() {}, true
	}
	if !acquired {
		return nil, false
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if _, err := s.cache.ReleaseSeatHold(releaseCtx, tripID, seatNo, owner); err != nil {
			s.logger.Warn("Failed to release seat hold",
				zap.String("trip_id", tripID),
				zap.String("seat_no", seatNo),
				zap.Error(err))
		}
	}, true
}

func (s *BookingService) createPrice(ctx context.Context, trip *models.Trip, explicit *int64) int64 {
	if explicit != nil {
		return *explicit
	}
	price, ok := s.quote(ctx, trip)
	if !ok {
		util.PricingFallbackTotal.WithLabelValues("create").Inc()
		return trip.BasePrice
	}
	return price
}

func (s *BookingService) reschedulePrice(ctx context.Context, trip *models.Trip, fallback int64) int64 {
	price, ok := s.quote(ctx, trip)
	if !ok {
		util.PricingFallbackTotal.WithLabelValues("reschedule").Inc()
		return fallback
	}
	return price
}

// quote asks the pricing oracle. ok is false when no usable price was returned.
func (s *BookingService) quote(ctx context.Context, trip *models.Trip) (int64, bool) {
	if s.oracle == nil {
		return 0, false
	}

	available, err := s.store.CountAvailableSeats(ctx, trip.ID)
	if err != nil {
		s.logger.Warn("Failed to count available seats", zap.String("trip_id", trip.ID), zap.Error(err))
		return 0, false
	}

	price, err := s.oracle.Price(ctx, pricing.Quote{
		TripID:         trip.ID,
		BasePrice:      trip.BasePrice,
		SeatsAvailable: available,
		TotalSeats:     trip.Capacity,
	})
	if err != nil || price <= 0 {
		s.logger.Warn("Pricing unavailable, using fallback price",
			zap.String("trip_id", trip.ID),
			zap.Error(err))
		return 0, false
	}
	return price, true
}

// penalty applies when the original departure is inside the penalty window
func (s *BookingService) penalty(originalDeparture time.Time, newBase int64) int64 {
	if originalDeparture.Sub(s.now()) >= s.cfg.PenaltyWindow {
		return 0
	}
	return int64(math.Round(float64(newBase) * float64(s.cfg.PenaltyPercent) / 100))
}

func requireCaller(caller Caller) error {
	if caller.UserID == "" {
		return &Error{Kind: ErrUnauthorized, Message: "unauthorized"}
	}
	return nil
}
