package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxTripCapacity = 1000

// AvailabilityRefresher is notified when seat counts change outside the booking lifecycle
type AvailabilityRefresher interface {
	Refresh(ctx context.Context, tripIDs ...string) error
}

// CatalogService manages providers, routes and trips
type CatalogService struct {
	store     CatalogStore
	refresher AvailabilityRefresher
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service. refresher may be nil.
func NewCatalogService(store CatalogStore, refresher AvailabilityRefresher) *CatalogService {
	return &CatalogService{
		store:     store,
		refresher: refresher,
		logger:    util.GetLogger(),
	}
}

type CreateProviderInput struct {
	Name string
}

type CreateRouteInput struct {
	ProviderID  string
	Source      string
	Destination string
}

type CreateTripInput struct {
	RouteID   string
	Departure time.Time
	Capacity  int
	BasePrice int64
}

// SearchInput filters trips. Date is a calendar day in YYYY-MM-DD form (UTC).
type SearchInput struct {
	From string
	To   string
	Date string
}

// TripDetail is a trip listing with its seat map
type TripDetail struct {
	models.TripListing
	Seats []models.Seat `json:"seats"`
}

// SeatNumbers returns the deterministic seat numbers A01..A<capacity>. The
// number is zero-padded to two digits regardless of capacity, so A05 names the
// same seat on every trip.
func SeatNumbers(capacity int) []string {
	seats := make([]string, 0, capacity)
	for i := 1; i <= capacity; i++ {
		seats = append(seats, fmt.Sprintf("A%02d", i))
	}
	return seats
}

func (cs *CatalogService) CreateProvider(ctx context.Context, caller Caller, in CreateProviderInput) (*models.Provider, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProvider")
	defer span.End()

	if err := requireProvider(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("name required")
	}

	provider := &models.Provider{
		ID:     uuid.NewString(),
		Name:   name,
		Status: models.ProviderStatusActive,
	}
	if err := cs.store.CreateProvider(ctx, provider); err != nil {
		return nil, internalError("failed to create provider", err)
	}

	cs.logger.Info("Provider created", zap.String("provider_id", provider.ID))
	return provider, nil
}

func (cs *CatalogService) ListProviders(ctx context.Context) ([]models.Provider, error) {
	providers, err := cs.store.ListProviders(ctx)
	if err != nil {
		return nil, internalError("failed to list providers", err)
	}
	return providers, nil
}

// UpdateProviderStatus enables or disables a provider
func (cs *CatalogService) UpdateProviderStatus(ctx context.Context, caller Caller, id, status string) (*models.Provider, error) {
	if err := requireProvider(caller); err != nil {
		return nil, err
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != models.ProviderStatusActive && status != models.ProviderStatusDisabled {
		return nil, validationError("status must be ACTIVE or DISABLED")
	}

	provider, err := cs.store.UpdateProviderStatus(ctx, id, status)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("provider not found")
	}
	if err != nil {
		return nil, internalError("failed to update provider", err)
	}
	return provider, nil
}

func (cs *CatalogService) CreateRoute(ctx context.Context, caller Caller, in CreateRouteInput) (*models.Route, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateRoute")
	defer span.End()

	if err := requireProvider(caller); err != nil {
		return nil, err
	}
	in.Source = strings.TrimSpace(in.Source)
	in.Destination = strings.TrimSpace(in.Destination)
	if in.ProviderID == "" || in.Source == "" || in.Destination == "" {
		return nil, validationError("providerId, source, destination required")
	}

	route := &models.Route{
		ID:          uuid.NewString(),
		ProviderID:  in.ProviderID,
		Source:      in.Source,
		Destination: in.Destination,
	}
	err := cs.store.CreateRoute(ctx, route)
	if errors.Is(err, store.ErrInvalidReference) {
		return nil, notFoundError("provider not found")
	}
	if err != nil {
		return nil, internalError("failed to create route", err)
	}
	return route, nil
}

func (cs *CatalogService) ListRoutes(ctx context.Context) ([]models.Route, error) {
	routes, err := cs.store.ListRoutes(ctx)
	if err != nil {
		return nil, internalError("failed to list routes", err)
	}
	return routes, nil
}

// CreateTrip creates a trip together with its AVAILABLE seats
func (cs *CatalogService) CreateTrip(ctx context.Context, caller Caller, in CreateTripInput) (*models.Trip, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateTrip")
	defer span.End()

	if err := requireProvider(caller); err != nil {
		return nil, err
	}
	switch {
	case in.RouteID == "" || in.Departure.IsZero():
		return nil, validationError("routeId, departure, capacity, basePrice required")
	case in.Capacity <= 0 || in.Capacity > maxTripCapacity:
		return nil, validationError(fmt.Sprintf("capacity must be between 1 and %d", maxTripCapacity))
	case in.BasePrice <= 0:
		return nil, validationError("basePrice must be positive")
	}

	trip := &models.Trip{
		ID:        uuid.NewString(),
		RouteID:   in.RouteID,
		Departure: in.Departure.UTC(),
		Capacity:  in.Capacity,
		BasePrice: in.BasePrice,
	}
	err := cs.store.CreateTripWithSeats(ctx, trip, SeatNumbers(in.Capacity))
	if errors.Is(err, store.ErrInvalidReference) {
		return nil, notFoundError("route not found")
	}
	if err != nil {
		return nil, internalError("failed to create trip", err)
	}

	cs.logger.Info("Trip created",
		zap.String("trip_id", trip.ID),
		zap.String("route_id", trip.RouteID),
		zap.Int("capacity", trip.Capacity))

	if cs.refresher != nil {
		if err := cs.refresher.Refresh(ctx, trip.ID); err != nil {
			cs.logger.Warn("Failed to seed trip availability", zap.String("trip_id", trip.ID), zap.Error(err))
		}
	}
	return trip, nil
}

// GetTrip returns a trip with its route endpoints and seats
func (cs *CatalogService) GetTrip(ctx context.Context, id string) (*TripDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetTrip")
	defer span.End()

	listing, err := cs.store.GetTripListing(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("trip not found")
	}
	if err != nil {
		return nil, internalError("failed to load trip", err)
	}

	seats, err := cs.store.ListSeats(ctx, id)
	if err != nil {
		return nil, internalError("failed to load seats", err)
	}
	return &TripDetail{TripListing: *listing, Seats: seats}, nil
}

// SearchTrips lists trips by route endpoints and departure day
func (cs *CatalogService) SearchTrips(ctx context.Context, in SearchInput) ([]models.TripListing, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.SearchTrips")
	defer span.End()

	filter := store.TripFilter{
		Source:      strings.TrimSpace(in.From),
		Destination: strings.TrimSpace(in.To),
	}
	if in.Date != "" {
		day, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return nil, validationError("date must be YYYY-MM-DD")
		}
		filter.From = day
		filter.To = day.AddDate(0, 0, 1)
	}

	trips, err := cs.store.SearchTrips(ctx, filter)
	if err != nil {
		return nil, internalError("failed to search trips", err)
	}
	return trips, nil
}

func requireProvider(caller Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.IsProvider() {
		return forbiddenError("provider role required")
	}
	return nil
}
