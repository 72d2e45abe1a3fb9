package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing booking lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishBookingEvent publishes any booking event keyed by booking so that all
// transitions of one booking land on the same partition in order
func (ep *EventPublisher) PublishBookingEvent(ctx context.Context, event *models.BookingEvent) error {
	key := fmt.Sprintf("booking-%s", event.BookingID)
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		util.EventsPublishedTotal.WithLabelValues(event.EventType, "error").Inc()
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(event.EventType, "ok").Inc()
	return nil
}

// NoopPublisher drops events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingEvent(ctx context.Context, event *models.BookingEvent) error {
	util.EventsPublishedTotal.WithLabelValues(event.EventType, "dropped").Inc()
	return nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onBookingEvent func(context.Context, *models.BookingEvent) error
	logger         *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnBookingEvent registers a handler for every booking lifecycle event
func (eh *EventHandler) OnBookingEvent(handler func(context.Context, *models.BookingEvent) error) {
	eh.onBookingEvent = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		// undecodable payloads are skipped and committed
		eh.logger.Error("Dropping undecodable event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeBookingCreated,
		models.EventTypeBookingConfirmed,
		models.EventTypeBookingPaymentFailed,
		models.EventTypeBookingCancelled,
		models.EventTypeBookingExpired,
		models.EventTypeBookingRescheduled:
		if eh.onBookingEvent == nil {
			return nil
		}
		var event models.BookingEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
		}
		return eh.onBookingEvent(ctx, &event)

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
