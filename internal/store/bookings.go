package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, trip_id, user_id, seat_no, price_applied, state, payment_state,
	idempotency_key, passenger_name, passenger_email, passenger_phone, created_at, updated_at`

const bookingDetailSelect = `
	SELECT b.id, b.trip_id, b.user_id, b.seat_no, b.price_applied, b.state, b.payment_state,
		b.idempotency_key, b.passenger_name, b.passenger_email, b.passenger_phone,
		b.created_at, b.updated_at,
		t.id AS "trip.id", t.departure AS "trip.departure", t.base_price AS "trip.base_price",
		t.route_id AS "trip.route_id", r.source AS "trip.source", r.destination AS "trip.destination"
	FROM bookings b
	JOIN trips t ON t.id = b.trip_id
	JOIN routes r ON r.id = t.route_id`

// CreateBookingTx inserts a PENDING booking and marks its seat HELD in one transaction
func (s *Store) CreateBookingTx(ctx context.Context, booking *models.Booking) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO bookings (id, trip_id, user_id, seat_no, price_applied, state, payment_state,
				idempotency_key, passenger_name, passenger_email, passenger_phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at, updated_at`

		err := tx.QueryRowxContext(ctx, query,
			booking.ID, booking.TripID, booking.UserID, booking.SeatNo, booking.PriceApplied,
			booking.State, booking.PaymentState, booking.IdempotencyKey,
			booking.PassengerName, booking.PassengerEmail, booking.PassengerPhone,
		).Scan(&booking.CreatedAt, &booking.UpdatedAt)
		if err != nil {
			return mapError(err)
		}

		return setSeatStatus(ctx, tx, booking.TripID, booking.SeatNo, models.SeatStatusHeld)
	})
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingByIdempotencyKey returns nil, nil when no booking owns the key
func (s *Store) GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking,
		"SELECT "+bookingColumns+" FROM bookings WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// HasActiveBooking reports whether (tripID, seatNo) is occupied by an active booking
func (s *Store) HasActiveBooking(ctx context.Context, tripID, seatNo string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE trip_id = $1 AND seat_no = $2
			AND state IN ('PENDING', 'CONFIRMED', 'RESCHEDULED'))`,
		tripID, seatNo)
	return exists, err
}

// CancelBookingTx cancels a booking and frees its seat. An already cancelled
// booking is returned unchanged with changed=false and the seat is left alone.
func (s *Store) CancelBookingTx(ctx context.Context, id string) (booking *models.Booking, changed bool, err error) {
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.State == models.BookingStateCancelled {
			booking = current
			return nil
		}

		var updated models.Booking
		err = tx.GetContext(ctx, &updated, `
			UPDATE bookings SET state = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+bookingColumns,
			id, models.BookingStateCancelled)
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		if err := setSeatStatus(ctx, tx, updated.TripID, updated.SeatNo, models.SeatStatusAvailable); err != nil {
			return err
		}

		booking = &updated
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return booking, changed, nil
}

// ConfirmPaymentTx marks an unpaid booking CONFIRMED/PAID and its seat SOLD.
// Returns ErrStateChanged if the booking is no longer payable.
func (s *Store) ConfirmPaymentTx(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &booking, `
			UPDATE bookings SET state = $2, payment_state = $3, updated_at = NOW()
			WHERE id = $1
				AND state IN ('PENDING', 'RESCHEDULED')
				AND payment_state <> 'PAID'
			RETURNING `+bookingColumns,
			id, models.BookingStateConfirmed, models.PaymentStatePaid)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStateChanged
		}
		if err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}

		return setSeatStatus(ctx, tx, booking.TripID, booking.SeatNo, models.SeatStatusSold)
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// MarkPaymentFailed records a declined payment; state and seat are untouched
func (s *Store) MarkPaymentFailed(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, `
		UPDATE bookings SET payment_state = $2, updated_at = NOW()
		WHERE id = $1
			AND state IN ('PENDING', 'RESCHEDULED')
			AND payment_state <> 'PAID'
		RETURNING `+bookingColumns,
		id, models.PaymentStateFailed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateChanged
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// RescheduleBookingTx moves a booking onto (newTripID, newSeatNo). The old seat
// becomes AVAILABLE and the new one SOLD. Returns the row as it was before the
// move together with the updated row. Only paid, non-cancelled bookings move;
// anything else is ErrStateChanged.
func (s *Store) RescheduleBookingTx(ctx context.Context, id, newTripID, newSeatNo string, price int64) (prev, updated *models.Booking, err error) {
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.State == models.BookingStateCancelled || current.PaymentState != models.PaymentStatePaid {
			return ErrStateChanged
		}

		var next models.Booking
		err = tx.GetContext(ctx, &next, `
			UPDATE bookings
			SET trip_id = $2, seat_no = $3, price_applied = $4, state = $5, updated_at = NOW()
			WHERE id = $1
			RETURNING `+bookingColumns,
			id, newTripID, newSeatNo, price, models.BookingStateRescheduled)
		if err != nil {
			return mapError(err)
		}

		if current.TripID != next.TripID || current.SeatNo != next.SeatNo {
			if err := setSeatStatus(ctx, tx, current.TripID, current.SeatNo, models.SeatStatusAvailable); err != nil {
				return err
			}
		}
		if err := setSeatStatus(ctx, tx, next.TripID, next.SeatNo, models.SeatStatusSold); err != nil {
			return err
		}

		prev, updated = current, &next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return prev, updated, nil
}

// ListExpiredPending returns unpaid PENDING bookings created before cutoff, oldest first
func (s *Store) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE state = 'PENDING'
			AND payment_state IN ('PENDING', 'FAILED')
			AND created_at < $1
		ORDER BY created_at
		LIMIT $2`,
		cutoff, limit)
	return bookings, err
}

// ExpireBookingTx cancels a stale unpaid booking and frees its seat. The update
// re-checks the state so a payment committed after ListExpiredPending wins;
// in that case ErrStateChanged is returned.
func (s *Store) ExpireBookingTx(ctx context.Context, id string, cutoff time.Time) (*models.Booking, error) {
	var booking models.Booking
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &booking, `
			UPDATE bookings
			SET state = $2,
				payment_state = CASE WHEN payment_state = 'PENDING' THEN $3 ELSE payment_state END,
				updated_at = NOW()
			WHERE id = $1
				AND state = 'PENDING'
				AND payment_state IN ('PENDING', 'FAILED')
				AND created_at < $4
			RETURNING `+bookingColumns,
			id, models.BookingStateCancelled, models.PaymentStateRefunded, cutoff)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStateChanged
		}
		if err != nil {
			return fmt.Errorf("failed to expire booking: %w", err)
		}

		return setSeatStatus(ctx, tx, booking.TripID, booking.SeatNo, models.SeatStatusAvailable)
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdatePassenger overwrites the non-nil passenger fields
func (s *Store) UpdatePassenger(ctx context.Context, id string, name, email, phone *string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, `
		UPDATE bookings
		SET passenger_name = COALESCE($2, passenger_name),
			passenger_email = COALESCE($3, passenger_email),
			passenger_phone = COALESCE($4, passenger_phone),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+bookingColumns,
		id, name, email, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingDetail retrieves a booking joined with its trip and route
func (s *Store) GetBookingDetail(ctx context.Context, id string) (*models.BookingDetail, error) {
	var detail models.BookingDetail
	err := s.db.GetContext(ctx, &detail, bookingDetailSelect+" WHERE b.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListBookingsByUser retrieves a user's bookings, newest first
func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]models.BookingDetail, error) {
	details := []models.BookingDetail{}
	err := s.db.SelectContext(ctx, &details,
		bookingDetailSelect+" WHERE b.user_id = $1 ORDER BY b.created_at DESC", userID)
	return details, err
}

func lockBooking(ctx context.Context, tx *sqlx.Tx, id string) (*models.Booking, error) {
	var booking models.Booking
	err := tx.GetContext(ctx, &booking,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return &booking, nil
}
