package service

import (
	"context"
	"time"

	"booking-service/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newBookingEvent(eventType string, b *models.Booking) *models.BookingEvent {
	return &models.BookingEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.NewString(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		BookingID:    b.ID,
		UserID:       b.UserID,
		TripID:       b.TripID,
		SeatNo:       b.SeatNo,
		State:        b.State,
		PaymentState: b.PaymentState,
		PriceApplied: b.PriceApplied,
	}
}

// publishEvent is best-effort: the transition already committed
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, event *models.BookingEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishBookingEvent(ctx, event); err != nil {
		logger.Error("Failed to publish booking event",
			zap.String("event_type", event.EventType),
			zap.String("booking_id", event.BookingID),
			zap.Error(err))
	}
}
