package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

const stopColumns = `
	id, trip_id, started_at, ended_at, latitude, longitude,
	duration_seconds, points_count, idle_flagged`

// TripStopRepository is a PostgreSQL implementation of repository.TripStopRepository.
type TripStopRepository struct {
	q Querier
}

// NewTripStopRepository creates a new PostgreSQL stop repository.
func NewTripStopRepository(db *sql.DB) *TripStopRepository {
	return &TripStopRepository{q: db}
}

// NewTripStopRepositoryWithTx creates a stop repository using a transaction.
func NewTripStopRepositoryWithTx(tx *sql.Tx) *TripStopRepository {
	return &TripStopRepository{q: tx}
}

// Create persists a new stop.
func (r *TripStopRepository) Create(ctx context.Context, stop *domain.TripStop) error {
	query := `INSERT INTO trip_stops (` + stopColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.q.ExecContext(ctx, query,
		stop.ID,
		stop.TripID,
		stop.StartedAt,
		nullTime(stop.EndedAt),
		stop.Latitude,
		stop.Longitude,
		stop.DurationSeconds,
		stop.PointsCount,
		stop.IdleFlagged,
	)
	return err
}

// Update updates an existing stop.
func (r *TripStopRepository) Update(ctx context.Context, stop *domain.TripStop) error {
	query := `
		UPDATE trip_stops
		SET ended_at = $1, latitude = $2, longitude = $3,
			duration_seconds = $4, points_count = $5, idle_flagged = $6
		WHERE id = $7
	`

	result, err := r.q.ExecContext(ctx, query,
		nullTime(stop.EndedAt),
		stop.Latitude,
		stop.Longitude,
		stop.DurationSeconds,
		stop.PointsCount,
		stop.IdleFlagged,
		stop.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetOpen retrieves the trip's open stop.
func (r *TripStopRepository) GetOpen(ctx context.Context, tripID string) (*domain.TripStop, error) {
	query := `SELECT ` + stopColumns + ` FROM trip_stops
		WHERE trip_id = $1 AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1`

	stop, err := scanStop(r.q.QueryRowContext(ctx, query, tripID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return stop, err
}

// GetLastClosed retrieves the most recently closed stop.
func (r *TripStopRepository) GetLastClosed(ctx context.Context, tripID string) (*domain.TripStop, error) {
	query := `SELECT ` + stopColumns + ` FROM trip_stops
		WHERE trip_id = $1 AND ended_at IS NOT NULL
		ORDER BY ended_at DESC
		LIMIT 1`

	stop, err := scanStop(r.q.QueryRowContext(ctx, query, tripID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return stop, err
}

// ListByTrip retrieves all stops of a trip, oldest first.
func (r *TripStopRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.TripStop, error) {
	query := `SELECT ` + stopColumns + ` FROM trip_stops WHERE trip_id = $1 ORDER BY started_at ASC`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []*domain.TripStop
	for rows.Next() {
		stop, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		stops = append(stops, stop)
	}

	return stops, rows.Err()
}

func scanStop(s scanner) (*domain.TripStop, error) {
	var (
		stop    domain.TripStop
		endedAt sql.NullTime
	)

	err := s.Scan(
		&stop.ID,
		&stop.TripID,
		&stop.StartedAt,
		&endedAt,
		&stop.Latitude,
		&stop.Longitude,
		&stop.DurationSeconds,
		&stop.PointsCount,
		&stop.IdleFlagged,
	)
	if err != nil {
		return nil, err
	}

	stop.EndedAt = timeOrZero(endedAt)
	return &stop, nil
}

var _ repository.TripStopRepository = (*TripStopRepository)(nil)
