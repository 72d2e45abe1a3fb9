package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/payment"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PaymentService settles bookings through a payment gateway
type PaymentService struct {
	store     BookingStore
	cache     HoldCache
	gateway   PaymentGateway
	publisher EventPublisher
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store BookingStore, cache HoldCache, gateway PaymentGateway, publisher EventPublisher) *PaymentService {
	return &PaymentService{
		store:     store,
		cache:     cache,
		gateway:   gateway,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// PaymentInput is the card used to pay for a booking
type PaymentInput struct {
	CardNumber string
	ExpiryDate string
	CVV        string
}

// ConfirmPayment charges the booking's price. On success the booking becomes
// CONFIRMED/PAID and its seat SOLD. A declined card leaves the booking PENDING
// with payment FAILED and returns ErrPaymentDeclined.
func (ps *PaymentService) ConfirmPayment(ctx context.Context, caller Caller, id string, in PaymentInput) (booking *models.Booking, err error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ConfirmPayment", attribute.String("booking_id", id))
	defer span.End()
	defer func() { util.RecordError(span, err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CardNumber) == "" {
		return nil, validationError("cardNumber required")
	}

	current, err := ps.store.GetBookingByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("booking not found")
	}
	if err != nil {
		return nil, internalError("failed to load booking", err)
	}
	if current.UserID != caller.UserID {
		return nil, forbiddenError("forbidden")
	}
	if current.PaymentState == models.PaymentStatePaid {
		return nil, conflictError("already paid")
	}
	if current.State == models.BookingStateCancelled {
		return nil, conflictError("booking expired")
	}

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	receipt, chargeErr := ps.gateway.Charge(ctx, payment.Charge{
		BookingID:  current.ID,
		Amount:     current.PriceApplied,
		CardNumber: in.CardNumber,
		ExpiryDate: in.ExpiryDate,
		CVV:        in.CVV,
	})
	util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())

	if errors.Is(chargeErr, payment.ErrDeclined) {
		return nil, ps.recordDecline(ctx, current)
	}
	if chargeErr != nil {
		return nil, internalError("payment gateway error", chargeErr)
	}

	booking, err = ps.store.ConfirmPaymentTx(ctx, id)
	if errors.Is(err, store.ErrStateChanged) {
		return nil, ps.explainLostConfirm(ctx, id, receipt)
	}
	if err != nil {
		ps.logger.Error("Charged booking could not be confirmed",
			zap.String("booking_id", id),
			zap.String("tx_id", receipt.TransactionID),
			zap.Error(err))
		return nil, internalError("failed to confirm booking", err)
	}

	if err := ps.cache.ClearPaymentWindow(ctx, id); err != nil {
		ps.logger.Warn("Failed to clear payment window",
			zap.String("booking_id", id),
			zap.Error(err))
	}

	util.BookingsConfirmedTotal.Inc()
	ps.logger.Info("Payment succeeded",
		zap.String("booking_id", booking.ID),
		zap.String("tx_id", receipt.TransactionID),
		zap.Int64("amount", booking.PriceApplied))

	publishEvent(ctx, ps.publisher, ps.logger, newBookingEvent(models.EventTypeBookingConfirmed, booking))

	return booking, nil
}

func (ps *PaymentService) recordDecline(ctx context.Context, current *models.Booking) error {
	util.PaymentFailedTotal.Inc()

	failed, err := ps.store.MarkPaymentFailed(ctx, current.ID)
	if errors.Is(err, store.ErrStateChanged) {
		return conflictError("booking is no longer payable")
	}
	if err != nil {
		return internalError("failed to record payment failure", err)
	}

	ps.logger.Warn("Payment failed", zap.String("booking_id", current.ID))

	event := newBookingEvent(models.EventTypeBookingPaymentFailed, failed)
	event.Reason = "card_declined"
	publishEvent(ctx, ps.publisher, ps.logger, event)

	return &Error{Kind: ErrPaymentDeclined, Message: "payment failed", Booking: failed}
}

// explainLostConfirm classifies a guarded confirm that matched no row: either
// a concurrent payment won or the expiry sweep cancelled the booking.
func (ps *PaymentService) explainLostConfirm(ctx context.Context, id string, receipt *payment.Receipt) error {
	latest, err := ps.store.GetBookingByID(ctx, id)
	if err != nil {
		return internalError("failed to reload booking", err)
	}

	if latest.PaymentState == models.PaymentStatePaid {
		return conflictError("already paid")
	}

	ps.logger.Error("Charged booking expired before confirmation, refund required",
		zap.String("booking_id", id),
		zap.String("tx_id", receipt.TransactionID),
		zap.String("state", latest.State))
	return conflictError("booking expired")
}
