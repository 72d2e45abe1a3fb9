package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const tripListingSelect = `
	SELECT t.id, t.route_id, t.departure, t.capacity, t.base_price, t.created_at,
		r.source, r.destination,
		(SELECT COUNT(*) FROM seats s WHERE s.trip_id = t.id AND s.status = 'AVAILABLE') AS seats_available
	FROM trips t
	JOIN routes r ON r.id = t.route_id`

// TripFilter narrows SearchTrips. Zero values are ignored.
type TripFilter struct {
	Source      string
	Destination string
	From        time.Time
	To          time.Time
}

// CreateProvider inserts a provider
func (s *Store) CreateProvider(ctx context.Context, provider *models.Provider) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO providers (id, user_id, name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		provider.ID, provider.UserID, provider.Name, provider.Status,
	).Scan(&provider.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", mapError(err))
	}
	return nil
}

// ListProviders returns all providers ordered by name
func (s *Store) ListProviders(ctx context.Context) ([]models.Provider, error) {
	providers := []models.Provider{}
	err := s.db.SelectContext(ctx, &providers,
		"SELECT id, user_id, name, status, created_at FROM providers ORDER BY name")
	return providers, err
}

// UpdateProviderStatus sets a provider ACTIVE or DISABLED
func (s *Store) UpdateProviderStatus(ctx context.Context, id, status string) (*models.Provider, error) {
	var provider models.Provider
	err := s.db.GetContext(ctx, &provider, `
		UPDATE providers SET status = $2 WHERE id = $1
		RETURNING id, user_id, name, status, created_at`,
		id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

// CreateRoute inserts a route. Returns ErrInvalidReference for an unknown provider.
func (s *Store) CreateRoute(ctx context.Context, route *models.Route) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO routes (id, provider_id, source, destination)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		route.ID, route.ProviderID, route.Source, route.Destination,
	).Scan(&route.CreatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// ListRoutes returns all routes
func (s *Store) ListRoutes(ctx context.Context) ([]models.Route, error) {
	routes := []models.Route{}
	err := s.db.SelectContext(ctx, &routes,
		"SELECT id, provider_id, source, destination, created_at FROM routes ORDER BY source, destination")
	return routes, err
}

// CreateTripWithSeats inserts a trip and one AVAILABLE seat per seat number
func (s *Store) CreateTripWithSeats(ctx context.Context, trip *models.Trip, seatNos []string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO trips (id, route_id, departure, capacity, base_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			trip.ID, trip.RouteID, trip.Departure, trip.Capacity, trip.BasePrice,
		).Scan(&trip.CreatedAt)
		if err != nil {
			return mapError(err)
		}

		if len(seatNos) == 0 {
			return nil
		}

		seats := make([]models.Seat, 0, len(seatNos))
		for _, no := range seatNos {
			seats = append(seats, models.Seat{TripID: trip.ID, SeatNo: no, Status: models.SeatStatusAvailable})
		}

		_, err = tx.NamedExecContext(ctx,
			"INSERT INTO seats (trip_id, seat_no, status) VALUES (:trip_id, :seat_no, :status)", seats)
		if err != nil {
			return fmt.Errorf("failed to create seats: %w", err)
		}
		return nil
	})
}

// GetTrip retrieves a trip by ID
func (s *Store) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	err := s.db.GetContext(ctx, &trip,
		"SELECT id, route_id, departure, capacity, base_price, created_at FROM trips WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// GetTripListing retrieves a trip with its route endpoints and available seat count
func (s *Store) GetTripListing(ctx context.Context, id string) (*models.TripListing, error) {
	var listing models.TripListing
	err := s.db.GetContext(ctx, &listing, tripListingSelect+" WHERE t.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// SearchTrips lists trips matching filter ordered by departure
func (s *Store) SearchTrips(ctx context.Context, filter TripFilter) ([]models.TripListing, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Source != "" {
		conds = append(conds, "r.source = ?")
		args = append(args, filter.Source)
	}
	if filter.Destination != "" {
		conds = append(conds, "r.destination = ?")
		args = append(args, filter.Destination)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "t.departure >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		conds = append(conds, "t.departure < ?")
		args = append(args, filter.To)
	}

	query := tripListingSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.departure"

	listings := []models.TripListing{}
	if err := s.db.SelectContext(ctx, &listings, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}
	return listings, nil
}

// ListSeats returns a trip's seats ordered by seat number
func (s *Store) ListSeats(ctx context.Context, tripID string) ([]models.Seat, error) {
	seats := []models.Seat{}
	err := s.db.SelectContext(ctx, &seats,
		"SELECT trip_id, seat_no, status FROM seats WHERE trip_id = $1 ORDER BY seat_no", tripID)
	return seats, err
}

// CountAvailableSeats counts AVAILABLE seats of a trip
func (s *Store) CountAvailableSeats(ctx context.Context, tripID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM seats WHERE trip_id = $1 AND status = 'AVAILABLE'", tripID)
	return count, err
}

// SeatCounts tallies a trip's seats per status
func (s *Store) SeatCounts(ctx context.Context, tripID string) (*models.SeatCounts, error) {
	var counts models.SeatCounts
	err := s.db.GetContext(ctx, &counts, `
		SELECT t.id AS trip_id, t.capacity,
			COUNT(s.seat_no) FILTER (WHERE s.status = 'AVAILABLE') AS available,
			COUNT(s.seat_no) FILTER (WHERE s.status = 'HELD') AS held,
			COUNT(s.seat_no) FILTER (WHERE s.status = 'SOLD') AS sold
		FROM trips t
		LEFT JOIN seats s ON s.trip_id = t.id
		WHERE t.id = $1
		GROUP BY t.id, t.capacity`,
		tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

// ListUpcomingTripIDs returns IDs of trips departing after since
func (s *Store) ListUpcomingTripIDs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT id FROM trips WHERE departure > $1 ORDER BY departure LIMIT $2", since, limit)
	return ids, err
}
