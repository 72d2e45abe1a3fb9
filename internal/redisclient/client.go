package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"booking-service/internal/models"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/release_hold.lua
var releaseHoldScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client and verifies connectivity
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb), nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseHoldScript),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks Redis connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func holdKey(tripID, seatNo string) string {
	return fmt.Sprintf("hold:%s:%s", tripID, seatNo)
}

func paymentWindowKey(bookingID string) string {
	return fmt.Sprintf("booking:%s:payment-window", bookingID)
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idem:%s", key)
}

func availabilityKey(tripID string) string {
	return fmt.Sprintf("trip:%s:availability", tripID)
}

// AcquireSeatHold sets the hold key only if absent. Returns false when
// another caller already holds the seat.
func (c *Client) AcquireSeatHold(ctx context.Context, tripID, seatNo, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, holdKey(tripID, seatNo), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire hold failed: %w", err)
	}
	return ok, nil
}

// ReleaseSeatHold deletes the hold only if owner still holds it
func (c *Client) ReleaseSeatHold(ctx context.Context, tripID, seatNo, owner string) (bool, error) {
	result, err := c.releaseScript.Run(ctx, c.rdb, []string{holdKey(tripID, seatNo)}, owner).Int64()
	if err != nil {
		return false, fmt.Errorf("release hold script failed: %w", err)
	}
	return result == 1, nil
}

// MarkPaymentWindow records that bookingID is awaiting payment
func (c *Client) MarkPaymentWindow(ctx context.Context, bookingID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, paymentWindowKey(bookingID), "1", ttl).Err()
}

// ClearPaymentWindow removes the payment window marker
func (c *Client) ClearPaymentWindow(ctx context.Context, bookingID string) error {
	return c.rdb.Del(ctx, paymentWindowKey(bookingID)).Err()
}

// RememberIdempotencyKey maps an idempotency key to the booking it created
func (c *Client) RememberIdempotencyKey(ctx context.Context, key, bookingID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), bookingID, ttl).Err()
}

// LookupIdempotencyKey returns the booking ID cached for key, or "" if unknown
func (c *Client) LookupIdempotencyKey(ctx context.Context, key string) (string, error) {
	id, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// SetTripAvailability stores the seat tally of a trip
func (c *Client) SetTripAvailability(ctx context.Context, counts *models.SeatCounts, ttl time.Duration) error {
	key := availabilityKey(counts.TripID)

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"capacity", counts.Capacity,
		"available", counts.Available,
		"held", counts.Held,
		"sold", counts.Sold,
	)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// GetTripAvailability returns the cached seat tally. found is false on a cache miss.
func (c *Client) GetTripAvailability(ctx context.Context, tripID string) (counts *models.SeatCounts, found bool, err error) {
	result, err := c.rdb.HGetAll(ctx, availabilityKey(tripID)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(result) == 0 {
		return nil, false, nil
	}

	counts = &models.SeatCounts{TripID: tripID}
	fields := map[string]*int{
		"capacity":  &counts.Capacity,
		"available": &counts.Available,
		"held":      &counts.Held,
		"sold":      &counts.Sold,
	}
	for name, dst := range fields {
		n, err := strconv.Atoi(result[name])
		if err != nil {
			return nil, false, fmt.Errorf("corrupt availability field %s for trip %s: %w", name, tripID, err)
		}
		*dst = n
	}

	return counts, true, nil
}
