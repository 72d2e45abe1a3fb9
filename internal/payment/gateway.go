package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDeclined is returned when the card issuer refuses the charge
var ErrDeclined = errors.New("payment declined")

// Charge describes a single card payment
type Charge struct {
	BookingID  string
	Amount     int64
	CardNumber string
	ExpiryDate string
	CVV        string
}

// Receipt identifies an accepted charge
type Receipt struct {
	TransactionID string
	ProcessedAt   time.Time
}

// StubGateway accepts every card except those starting with the decline prefix
type StubGateway struct {
	declinePrefix string
	latency       time.Duration
	logger        *zap.Logger
}

// NewStubGateway creates a stub gateway. latency simulates a provider round trip.
func NewStubGateway(latency time.Duration) *StubGateway {
	return &StubGateway{
		declinePrefix: "0000",
		latency:       latency,
		logger:        util.GetLogger(),
	}
}

// Charge processes c. Returns ErrDeclined for declined cards.
func (g *StubGateway) Charge(ctx context.Context, c Charge) (*Receipt, error) {
	ctx, span := util.StartSpan(ctx, "StubGateway.Charge")
	defer span.End()

	if g.latency > 0 {
		select {
		case <-time.After(g.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	card := strings.ReplaceAll(c.CardNumber, " ", "")
	if strings.HasPrefix(card, g.declinePrefix) {
		g.logger.Info("Card declined",
			zap.String("booking_id", c.BookingID),
			zap.Int64("amount", c.Amount))
		return nil, ErrDeclined
	}

	return &Receipt{
		TransactionID: "txn_" + uuid.NewString(),
		ProcessedAt:   time.Now(),
	}, nil
}
