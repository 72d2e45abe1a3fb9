package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when the referenced row does not exist
	ErrNotFound = errors.New("not found")
	// ErrSeatTaken is returned when the active-booking-per-seat index rejects a write
	ErrSeatTaken = errors.New("seat already has an active booking")
	// ErrDuplicateIdempotencyKey is returned when another booking already owns the key
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	// ErrInvalidReference is returned when a foreign key points at a missing row
	ErrInvalidReference = errors.New("referenced entity does not exist")
	// ErrStateChanged is returned by guarded updates whose precondition no longer holds
	ErrStateChanged = errors.New("booking state changed concurrently")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"

	activeSeatConstraint     = "bookings_active_seat_uniq"
	idempotencyKeyConstraint = "bookings_idempotency_key_uniq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an existing connection, e.g. a sqlmock handle in tests
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, committing only if fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

// mapError translates constraint violations into store sentinels
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case activeSeatConstraint:
			return ErrSeatTaken
		case idempotencyKeyConstraint:
			return ErrDuplicateIdempotencyKey
		}
	case pqForeignKeyViolation:
		return ErrInvalidReference
	}
	return err
}

// setSeatStatus is a no-op when the seat row does not exist
func setSeatStatus(ctx context.Context, tx *sqlx.Tx, tripID, seatNo, status string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE seats SET status = $1 WHERE trip_id = $2 AND seat_no = $3",
		status, tripID, seatNo)
	if err != nil {
		return fmt.Errorf("failed to set seat %s/%s to %s: %w", tripID, seatNo, status, err)
	}
	return nil
}
