package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goodCard     = "4111 1111 1111 1111"
	declinedCard = "0000 1111 2222 3333"
)

func bookSeat(t *testing.T, h *harness, caller Caller, seatNo string) *models.Booking {
	t.Helper()
	booking, created, err := h.bookings.CreateBooking(context.Background(), caller, CreateBookingInput{TripID: "trip-1", SeatNo: seatNo})
	require.NoError(t, err)
	require.True(t, created)
	return booking
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking := bookSeat(t, h, alice, "A02")

		paid, err := h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard, ExpiryDate: "12/29", CVV: "123"})
		require.NoError(t, err)
		assert.Equal(t, models.BookingStateConfirmed, paid.State)
		assert.Equal(t, models.PaymentStatePaid, paid.PaymentState)
		assert.Equal(t, models.SeatStatusSold, h.store.seatStatus("trip-1", "A02"))
		assert.False(t, h.cache.hasWindow(booking.ID))
		assert.Equal(t, []string{models.EventTypeBookingCreated, models.EventTypeBookingConfirmed}, h.publisher.types())

		_, err = h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "already paid", PublicMessage(err))
	})

	t.Run("Decline Then Retry", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking := bookSeat(t, h, alice, "A01")

		_, err := h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: declinedCard})
		require.ErrorIs(t, err, ErrPaymentDeclined)
		assert.Equal(t, "payment failed", PublicMessage(err))

		var svcErr *Error
		require.True(t, errors.As(err, &svcErr))
		require.NotNil(t, svcErr.Booking)
		assert.Equal(t, models.BookingStatePending, svcErr.Booking.State)
		assert.Equal(t, models.PaymentStateFailed, svcErr.Booking.PaymentState)
		assert.Equal(t, models.SeatStatusHeld, h.store.seatStatus("trip-1", "A01"))

		paid, err := h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatePaid, paid.PaymentState)
		assert.Equal(t, models.SeatStatusSold, h.store.seatStatus("trip-1", "A01"))
		assert.Equal(t, []string{
			models.EventTypeBookingCreated, models.EventTypeBookingPaymentFailed, models.EventTypeBookingConfirmed,
		}, h.publisher.types())
	})

	t.Run("Rejections", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking := bookSeat(t, h, alice, "A01")

		_, err := h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = h.payments.ConfirmPayment(ctx, Caller{}, booking.ID, PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = h.payments.ConfirmPayment(ctx, bob, booking.ID, PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = h.payments.ConfirmPayment(ctx, alice, "missing", PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = h.bookings.CancelBooking(ctx, alice, booking.ID)
		require.NoError(t, err)
		_, err = h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "booking expired", PublicMessage(err))
	})

	t.Run("Gateway Error", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking := bookSeat(t, h, alice, "A01")
		h.payments.gateway = gatewayFunc(func(ctx context.Context, c payment.Charge) (*payment.Receipt, error) {
			return nil, errBoom
		})

		_, err := h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrInternal)
		assert.Equal(t, models.PaymentStatePending, h.store.booking(booking.ID).PaymentState)
	})

	t.Run("Expired During Charge", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking := bookSeat(t, h, alice, "A01")
		h.payments.gateway = gatewayFunc(func(ctx context.Context, c payment.Charge) (*payment.Receipt, error) {
			h.store.age(c.BookingID, time.Hour)
			_, err := h.sweeper.Sweep(ctx)
			require.NoError(t, err)
			return &payment.Receipt{TransactionID: "txn_late", ProcessedAt: time.Now()}, nil
		})

		_, err := h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "booking expired", PublicMessage(err))

		b := h.store.booking(booking.ID)
		assert.Equal(t, models.BookingStateCancelled, b.State)
		assert.Equal(t, models.PaymentStateRefunded, b.PaymentState)
		assert.Equal(t, models.SeatStatusAvailable, h.store.seatStatus("trip-1", "A01"))
	})

	t.Run("Concurrent Payment Won", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking := bookSeat(t, h, alice, "A01")
		h.payments.gateway = gatewayFunc(func(ctx context.Context, c payment.Charge) (*payment.Receipt, error) {
			_, err := h.store.ConfirmPaymentTx(ctx, c.BookingID)
			require.NoError(t, err)
			return &payment.Receipt{TransactionID: "txn_dup"}, nil
		})

		_, err := h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "already paid", PublicMessage(err))
	})

	t.Run("Rescheduled Booking Stays Paid", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking := bookSeat(t, h, alice, "A01")
		_, err := h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard})
		require.NoError(t, err)

		moved, err := h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-1", NewSeatNo: "A04"})
		require.NoError(t, err)
		assert.Equal(t, models.BookingStateRescheduled, moved.State)
		assert.Equal(t, models.PaymentStatePaid, moved.PaymentState)

		_, err = h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: goodCard})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "already paid", PublicMessage(err))
	})
}
