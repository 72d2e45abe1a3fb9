package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice    = Caller{UserID: "user-alice", Role: models.RoleUser}
	bob      = Caller{UserID: "user-bob", Role: models.RoleUser}
	operator = Caller{UserID: "user-operator", Role: models.RoleProvider}
)

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 40, 25000)
		h.oracle.err = nil
		h.oracle.price = 31000

		booking, created, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{
			TripID: "trip-1", SeatNo: "A05", PassengerName: strPtr("Alice"),
		})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, models.BookingStatePending, booking.State)
		assert.Equal(t, models.PaymentStatePending, booking.PaymentState)
		assert.Equal(t, int64(31000), booking.PriceApplied)
		assert.Equal(t, alice.UserID, booking.UserID)

		assert.Equal(t, 40, h.oracle.last.TotalSeats)
		assert.Equal(t, 40, h.oracle.last.SeatsAvailable)
		assert.Equal(t, int64(25000), h.oracle.last.BasePrice)

		assert.Equal(t, models.SeatStatusHeld, h.store.seatStatus("trip-1", "A05"))
		assert.True(t, h.cache.hasWindow(booking.ID))
		assert.Equal(t, 1, h.cache.released, "hold must be released after commit")
		assert.Empty(t, h.cache.holds)
		assert.Equal(t, []string{models.EventTypeBookingCreated}, h.publisher.types())
	})

	t.Run("Explicit Price", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		h.oracle.err = nil
		h.oracle.price = 99999

		booking, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01", Price: int64Ptr(12000)})
		require.NoError(t, err)
		assert.Equal(t, int64(12000), booking.PriceApplied)
	})

	t.Run("Pricing Fallback", func(t *testing.T) {
		tests := []struct {
			name  string
			price int64
			err   error
		}{
			{"oracle down", 0, errBoom},
			{"zero quote", 0, nil},
			{"negative quote", -10, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness()
				h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
				h.oracle.price, h.oracle.err = tt.price, tt.err

				booking, created, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
				require.NoError(t, err)
				assert.True(t, created)
				assert.Equal(t, int64(25000), booking.PriceApplied)
			})
		}
	})

	t.Run("Validation", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)

		_, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1"})
		assert.ErrorIs(t, err, ErrValidation)

		_, _, err = h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01", Price: int64Ptr(-1)})
		assert.ErrorIs(t, err, ErrValidation)

		_, _, err = h.bookings.CreateBooking(ctx, Caller{}, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Zero(t, h.store.count())
	})

	t.Run("Trip Not Found", func(t *testing.T) {
		h := newHarness()

		_, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "missing", SeatNo: "A01"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "trip not found", PublicMessage(err))
	})

	t.Run("Seat Held", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		h.cache.holds[seatKey("trip-1", "A01")] = bob.UserID

		_, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "seat temporarily held", PublicMessage(err))
		assert.Equal(t, bob.UserID, h.cache.holds[seatKey("trip-1", "A01")], "another caller's hold must survive")
		assert.Zero(t, h.store.count())
	})

	t.Run("Active Booking", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)

		_, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)

		_, _, err = h.bookings.CreateBooking(ctx, bob, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "seat already has active booking", PublicMessage(err))
	})

	t.Run("Seat Taken At Commit", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		h.store.beforeCreate = func() {
			h.store.mu.Lock()
			defer h.store.mu.Unlock()
			h.store.bookings["winner"] = models.Booking{
				ID: "winner", TripID: "trip-1", SeatNo: "A01", UserID: bob.UserID,
				State: models.BookingStatePending, PaymentState: models.PaymentStatePending,
			}
		}

		_, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "seat already taken", PublicMessage(err))
		assert.Empty(t, h.cache.holds, "hold must be released on failure")
	})

	t.Run("Cache Down", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		h.cache.holdErr = errBoom

		booking, created, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, models.SeatStatusHeld, h.store.seatStatus("trip-1", booking.SeatNo))
	})

	t.Run("Unknown Seat", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)

		booking, created, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "Z99"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Z99", booking.SeatNo)
		assert.Zero(t, h.store.seatWrites)
	})
}

// Two or more callers racing for one seat: exactly one booking is created.
func TestCreateBookingMutualExclusion(t *testing.T) {
	h := newHarness()
	h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 1, 25000)

	const attempts = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			caller := Caller{UserID: fmt.Sprintf("user-%d", i), Role: models.RoleUser}
			_, ok, err := h.bookings.CreateBooking(context.Background(), caller, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && ok:
				created++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected result: created=%v err=%v", ok, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, h.store.count())
	assert.Equal(t, models.SeatStatusHeld, h.store.seatStatus("trip-1", "A01"))
}

func TestCreateBookingIdempotentReplay(t *testing.T) {
	ctx := context.Background()

	t.Run("Sequential", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		in := CreateBookingInput{TripID: "trip-1", SeatNo: "A01", IdempotencyKey: "k1"}

		first, created, err := h.bookings.CreateBooking(ctx, alice, in)
		require.NoError(t, err)
		assert.True(t, created)
		writes := h.store.seatWrites

		second, created, err := h.bookings.CreateBooking(ctx, alice, in)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, writes, h.store.seatWrites, "replay must not touch seats")
		assert.Equal(t, 1, h.store.count())
		assert.Equal(t, 1, h.cache.acquired, "replay must not take a hold")
	})

	t.Run("Store Fallback", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		in := CreateBookingInput{TripID: "trip-1", SeatNo: "A01", IdempotencyKey: "k1"}

		first, _, err := h.bookings.CreateBooking(ctx, alice, in)
		require.NoError(t, err)
		delete(h.cache.idem, "k1")

		second, created, err := h.bookings.CreateBooking(ctx, alice, in)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("Concurrent Duplicate", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		key := "k1"
		h.store.beforeCreate = func() {
			h.store.mu.Lock()
			defer h.store.mu.Unlock()
			h.store.bookings["winner"] = models.Booking{
				ID: "winner", TripID: "trip-1", SeatNo: "A02", UserID: alice.UserID, IdempotencyKey: &key,
				State: models.BookingStatePending, PaymentState: models.PaymentStatePending,
			}
		}

		booking, created, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01", IdempotencyKey: key})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "winner", booking.ID)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Releases Seat", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)

		cancelled, err := h.bookings.CancelBooking(ctx, alice, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStateCancelled, cancelled.State)
		assert.Equal(t, models.SeatStatusAvailable, h.store.seatStatus("trip-1", "A01"))
		assert.False(t, h.cache.hasWindow(booking.ID))

		rebooked, created, err := h.bookings.CreateBooking(ctx, bob, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, booking.ID, rebooked.ID)
	})

	t.Run("Confirmed Booking", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)
		_, err = h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: "4242424242424242"})
		require.NoError(t, err)
		require.Equal(t, models.SeatStatusSold, h.store.seatStatus("trip-1", "A01"))

		_, err = h.bookings.CancelBooking(ctx, alice, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SeatStatusAvailable, h.store.seatStatus("trip-1", "A01"))

		_, created, err := h.bookings.CreateBooking(ctx, bob, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("Already Cancelled", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)
		_, err = h.bookings.CancelBooking(ctx, alice, booking.ID)
		require.NoError(t, err)

		_, _, err = h.bookings.CreateBooking(ctx, bob, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)

		again, err := h.bookings.CancelBooking(ctx, alice, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStateCancelled, again.State)
		assert.Equal(t, models.SeatStatusHeld, h.store.seatStatus("trip-1", "A01"), "second cancel must not free bob's seat")
		assert.Equal(t, []string{
			models.EventTypeBookingCreated, models.EventTypeBookingCancelled, models.EventTypeBookingCreated,
		}, h.publisher.types())
	})

	t.Run("Authorization", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
		booking, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)

		_, err = h.bookings.CancelBooking(ctx, bob, booking.ID)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = h.bookings.CancelBooking(ctx, operator, booking.ID)
		assert.NoError(t, err)

		_, err = h.bookings.CancelBooking(ctx, alice, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRescheduleBooking(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T, untilDeparture time.Duration) (*harness, *models.Booking) {
		h := newHarness()
		h.bookings.now = func() time.Time { return now }
		h.store.addTrip("trip-1", now.Add(untilDeparture), 4, 25000)
		h.store.addTrip("trip-2", now.Add(96*time.Hour), 4, 30000)

		booking, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01", Price: int64Ptr(25000)})
		require.NoError(t, err)
		_, err = h.payments.ConfirmPayment(ctx, alice, booking.ID, PaymentInput{CardNumber: "4242"})
		require.NoError(t, err)
		return h, booking
	}

	t.Run("Penalty Inside Window", func(t *testing.T) {
		h, booking := setup(t, 10*time.Hour)
		h.oracle.price, h.oracle.err = 30001, nil

		updated, err := h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A03"})
		require.NoError(t, err)
		assert.Equal(t, int64(30001+6000), updated.PriceApplied)
		assert.Equal(t, models.BookingStateRescheduled, updated.State)
		assert.Equal(t, models.PaymentStatePaid, updated.PaymentState)
		assert.Equal(t, models.SeatStatusAvailable, h.store.seatStatus("trip-1", "A01"))
		assert.Equal(t, models.SeatStatusSold, h.store.seatStatus("trip-2", "A03"))
		assert.Empty(t, h.cache.holds)

		last := h.publisher.events[len(h.publisher.events)-1]
		assert.Equal(t, models.EventTypeBookingRescheduled, last.EventType)
		assert.Equal(t, []string{"trip-2", "trip-1"}, last.TripIDs())
	})

	t.Run("No Penalty Outside Window", func(t *testing.T) {
		h, booking := setup(t, 24*time.Hour)
		h.oracle.price, h.oracle.err = 30000, nil

		updated, err := h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A03"})
		require.NoError(t, err)
		assert.Equal(t, int64(30000), updated.PriceApplied)
	})

	t.Run("Oracle Fallback Uses Applied Price", func(t *testing.T) {
		h, booking := setup(t, 2*time.Hour)

		updated, err := h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A02"})
		require.NoError(t, err)
		assert.Equal(t, int64(25000+5000), updated.PriceApplied)
	})

	t.Run("New Seat Taken", func(t *testing.T) {
		h, booking := setup(t, 48*time.Hour)
		_, _, err := h.bookings.CreateBooking(ctx, bob, CreateBookingInput{TripID: "trip-2", SeatNo: "A03"})
		require.NoError(t, err)

		_, err = h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A03"})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, "new seat already taken", PublicMessage(err))
		assert.Equal(t, models.SeatStatusSold, h.store.seatStatus("trip-1", "A01"))
	})

	t.Run("New Seat Held", func(t *testing.T) {
		h, booking := setup(t, 48*time.Hour)
		h.cache.holds[seatKey("trip-2", "A03")] = bob.UserID

		_, err := h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A03"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Same Seat Reprices", func(t *testing.T) {
		h, booking := setup(t, 48*time.Hour)
		h.oracle.price, h.oracle.err = 27000, nil

		updated, err := h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-1", NewSeatNo: "A01"})
		require.NoError(t, err)
		assert.Equal(t, int64(27000), updated.PriceApplied)
		assert.Equal(t, models.SeatStatusSold, h.store.seatStatus("trip-1", "A01"))
	})

	t.Run("Rejections", func(t *testing.T) {
		h, booking := setup(t, 48*time.Hour)

		_, err := h.bookings.RescheduleBooking(ctx, alice, "missing", RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A03"})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-9", NewSeatNo: "A03"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "new trip not found", PublicMessage(err))

		_, err = h.bookings.RescheduleBooking(ctx, bob, booking.ID, RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A03"})
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-2"})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = h.bookings.CancelBooking(ctx, alice, booking.ID)
		require.NoError(t, err)
		_, err = h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A03"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Unpaid Booking Stays Sweepable", func(t *testing.T) {
		h := newHarness()
		h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)

		pending, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
		require.NoError(t, err)
		failed, _, err := h.bookings.CreateBooking(ctx, bob, CreateBookingInput{TripID: "trip-1", SeatNo: "A02"})
		require.NoError(t, err)
		_, err = h.payments.ConfirmPayment(ctx, bob, failed.ID, PaymentInput{CardNumber: declinedCard})
		require.ErrorIs(t, err, ErrPaymentDeclined)

		for _, tc := range []struct {
			caller Caller
			id     string
		}{{alice, pending.ID}, {bob, failed.ID}} {
			_, err = h.bookings.RescheduleBooking(ctx, tc.caller, tc.id, RescheduleInput{NewTripID: "trip-1", NewSeatNo: "A03"})
			assert.ErrorIs(t, err, ErrConflict)
			assert.Equal(t, "cannot reschedule an unpaid booking", PublicMessage(err))
		}
		_, err = h.bookings.RescheduleBooking(ctx, alice, pending.ID, RescheduleInput{NewTripID: "trip-1", NewSeatNo: "A01"})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, models.SeatStatusAvailable, h.store.seatStatus("trip-1", "A03"))

		h.store.age(pending.ID, 2*time.Hour)
		h.store.age(failed.ID, 2*time.Hour)
		result, err := h.sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Expired)
		assert.Equal(t, models.BookingStateCancelled, h.store.booking(pending.ID).State)
		assert.Equal(t, models.SeatStatusAvailable, h.store.seatStatus("trip-1", "A01"))
	})

	t.Run("Original Trip Missing", func(t *testing.T) {
		h, booking := setup(t, 48*time.Hour)
		delete(h.store.trips, "trip-1")

		_, err := h.bookings.RescheduleBooking(ctx, alice, booking.ID, RescheduleInput{NewTripID: "trip-2", NewSeatNo: "A03"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "original trip not found", PublicMessage(err))
	})
}

func TestPenalty(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := &BookingService{cfg: DefaultBookingConfig(), now: func() time.Time { return now }}

	tests := []struct {
		name      string
		departure time.Time
		base      int64
		want      int64
	}{
		{"23h59m before departure", now.Add(23*time.Hour + 59*time.Minute), 1000, 200},
		{"exactly 24h before departure", now.Add(24 * time.Hour), 1000, 0},
		{"a week out", now.Add(7 * 24 * time.Hour), 1000, 0},
		{"already departed", now.Add(-time.Hour), 1000, 200},
		{"rounds up", now.Add(time.Hour), 1234, 247},
		{"rounds down", now.Add(time.Hour), 1231, 246},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.penalty(tt.departure, tt.base))
		})
	}
}

func TestGetAndListBookings(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)

	first, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A02"})
	require.NoError(t, err)
	_, _, err = h.bookings.CreateBooking(ctx, bob, CreateBookingInput{TripID: "trip-1", SeatNo: "A03"})
	require.NoError(t, err)

	detail, err := h.bookings.GetBooking(ctx, alice, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "trip-1", detail.Trip.ID)

	_, err = h.bookings.GetBooking(ctx, bob, first.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.bookings.GetBooking(ctx, operator, first.ID)
	assert.NoError(t, err)

	_, err = h.bookings.GetBooking(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := h.bookings.ListMyBookings(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")
	assert.Equal(t, first.ID, mine[1].ID)
}

func TestUpdatePassenger(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.store.addTrip("trip-1", time.Now().Add(72*time.Hour), 4, 25000)
	booking, _, err := h.bookings.CreateBooking(ctx, alice, CreateBookingInput{TripID: "trip-1", SeatNo: "A01", PassengerName: strPtr("Alice")})
	require.NoError(t, err)

	_, err = h.bookings.UpdatePassenger(ctx, alice, booking.ID, PassengerPatch{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.bookings.UpdatePassenger(ctx, operator, booking.ID, PassengerPatch{Phone: strPtr("+94 77 000 0000")})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := h.bookings.UpdatePassenger(ctx, alice, booking.ID, PassengerPatch{Email: strPtr("alice@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", *updated.PassengerName)
	assert.Equal(t, "alice@example.com", *updated.PassengerEmail)
}
