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

const syncTripLimit = 1000

// InventoryService maintains the cached per-trip seat counts shown to
// browsing customers. The booking lifecycle never reads these counts.
type InventoryService struct {
	store  AvailabilityStore
	cache  AvailabilityCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store AvailabilityStore, cache AvailabilityCache, ttl time.Duration) *InventoryService {
	return &InventoryService{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// GetAvailability returns seat counts for a trip (fast path via Redis)
func (is *InventoryService) GetAvailability(ctx context.Context, tripID string) (*models.SeatCounts, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.GetAvailability")
	defer span.End()

	counts, found, err := is.cache.GetTripAvailability(ctx, tripID)
	if err != nil {
		is.logger.Warn("Redis availability read failed, falling back to DB",
			zap.String("trip_id", tripID),
			zap.Error(err))
	}
	if found {
		return counts, nil
	}

	counts, err = is.refreshOne(ctx, tripID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("trip not found")
	}
	if err != nil {
		return nil, internalError("failed to load availability", err)
	}
	return counts, nil
}

// Refresh recomputes the cached counts of the given trips from the store
func (is *InventoryService) Refresh(ctx context.Context, tripIDs ...string) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Refresh")
	defer span.End()

	var errs []error
	for _, id := range tripIDs {
		if _, err := is.refreshOne(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, fmt.Errorf("trip %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// HandleBookingEvent refreshes every trip the event touched. Safe to redeliver.
func (is *InventoryService) HandleBookingEvent(ctx context.Context, event *models.BookingEvent) error {
	return is.Refresh(ctx, event.TripIDs()...)
}

// SyncAvailabilityToRedis seeds the cache for trips that have not departed
func (is *InventoryService) SyncAvailabilityToRedis(ctx context.Context) error {
	is.logger.Info("Starting availability sync to Redis")

	ids, err := is.store.ListUpcomingTripIDs(ctx, is.now(), syncTripLimit)
	if err != nil {
		return fmt.Errorf("failed to list trips: %w", err)
	}

	for _, id := range ids {
		if _, err := is.refreshOne(ctx, id); err != nil {
			is.logger.Error("Failed to sync trip availability",
				zap.String("trip_id", id),
				zap.Error(err))
		}
	}

	is.logger.Info("Availability sync completed", zap.Int("count", len(ids)))
	return nil
}

func (is *InventoryService) refreshOne(ctx context.Context, tripID string) (*models.SeatCounts, error) {
	counts, err := is.store.SeatCounts(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := is.cache.SetTripAvailability(ctx, counts, is.ttl); err != nil {
		is.logger.Warn("Failed to cache trip availability",
			zap.String("trip_id", tripID),
			zap.Error(err))
	}
	return counts, nil
}
