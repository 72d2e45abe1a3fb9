package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// SweepResult summarizes one expiry pass
type SweepResult struct {
	Scanned int
	Expired int
	Skipped int
	Failed  int
}

// ExpirySweeper cancels unpaid bookings whose payment window has elapsed and
// returns their seats to AVAILABLE
type ExpirySweeper struct {
	store     BookingStore
	cache     HoldCache
	publisher EventPublisher
	window    time.Duration
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// NewExpirySweeper creates a sweeper for bookings older than window
func NewExpirySweeper(store BookingStore, cache HoldCache, publisher EventPublisher, window time.Duration, batchSize int) *ExpirySweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpirySweeper{
		store:     store,
		cache:     cache,
		publisher: publisher,
		window:    window,
		batchSize: batchSize,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// Sweep runs one pass. Failures on individual bookings are logged and counted;
// only a failure to list candidates aborts the pass.
func (es *ExpirySweeper) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := util.StartSpan(ctx, "ExpirySweeper.Sweep")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	var result SweepResult
	cutoff := es.now().Add(-es.window)

	for {
		candidates, err := es.store.ListExpiredPending(ctx, cutoff, es.batchSize)
		if err != nil {
			util.RecordError(span, err)
			return result, fmt.Errorf("failed to list expired bookings: %w", err)
		}

		progressed := 0
		for _, b := range candidates {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Scanned++

			switch err := es.expire(ctx, b, cutoff); {
			case err == nil:
				result.Expired++
				progressed++
			case errors.Is(err, store.ErrStateChanged):
				result.Skipped++
				progressed++
			default:
				result.Failed++
				util.SweepErrorsTotal.Inc()
				es.logger.Error("Failed to expire booking",
					zap.String("booking_id", b.ID),
					zap.Error(err))
			}
		}

		// A full batch where every row failed would be reselected forever
		if len(candidates) < es.batchSize || progressed == 0 {
			break
		}
	}

	if result.Scanned > 0 {
		es.logger.Info("Expiry sweep completed",
			zap.Int("scanned", result.Scanned),
			zap.Int("expired", result.Expired),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

func (es *ExpirySweeper) expire(ctx context.Context, b models.Booking, cutoff time.Time) error {
	expired, err := es.store.ExpireBookingTx(ctx, b.ID, cutoff)
	if err != nil {
		return err
	}

	if err := es.cache.ClearPaymentWindow(ctx, b.ID); err != nil {
		es.logger.Warn("Failed to clear payment window",
			zap.String("booking_id", b.ID),
			zap.Error(err))
	}

	util.BookingsExpiredTotal.Inc()
	es.logger.Info("Booking expired",
		zap.String("booking_id", expired.ID),
		zap.String("trip_id", expired.TripID),
		zap.String("seat_no", expired.SeatNo),
		zap.String("payment_state", expired.PaymentState))

	event := newBookingEvent(models.EventTypeBookingExpired, expired)
	event.Reason = "payment_window_elapsed"
	publishEvent(ctx, es.publisher, es.logger, event)

	return nil
}
