package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

const pointColumns = `
	id, trip_id, latitude, longitude, accuracy, speed, heading,
	captured_at, is_filtered, filter_reason, distance_from_prev_meters, created_at`

// TripPointRepository is a PostgreSQL implementation of repository.TripPointRepository.
type TripPointRepository struct {
	q Querier
}

// NewTripPointRepository creates a new PostgreSQL point repository.
func NewTripPointRepository(db *sql.DB) *TripPointRepository {
	return &TripPointRepository{q: db}
}

// NewTripPointRepositoryWithTx creates a point repository using a transaction.
func NewTripPointRepositoryWithTx(tx *sql.Tx) *TripPointRepository {
	return &TripPointRepository{q: tx}
}

// Create appends a point to its trip.
func (r *TripPointRepository) Create(ctx context.Context, point *domain.TripPoint) error {
	query := `INSERT INTO trip_points (` + pointColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.q.ExecContext(ctx, query,
		point.ID,
		point.TripID,
		point.Latitude,
		point.Longitude,
		nullFloat(point.Accuracy),
		nullFloat(point.Speed),
		nullFloat(point.Heading),
		point.CapturedAt,
		point.IsFiltered,
		nullString(string(point.FilterReason)),
		point.DistanceFromPrevMeters,
		point.CreatedAt,
	)
	return err
}

// GetLastAccepted retrieves the most recent unfiltered point of a trip.
func (r *TripPointRepository) GetLastAccepted(ctx context.Context, tripID string) (*domain.TripPoint, error) {
	query := `SELECT ` + pointColumns + ` FROM trip_points
		WHERE trip_id = $1 AND NOT is_filtered
		ORDER BY captured_at DESC, created_at DESC
		LIMIT 1`

	point, err := scanPoint(r.q.QueryRowContext(ctx, query, tripID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return point, err
}

// ListRecentAccepted retrieves up to limit most recent unfiltered points, oldest first.
func (r *TripPointRepository) ListRecentAccepted(ctx context.Context, tripID string, limit int) ([]*domain.TripPoint, error) {
	query := `SELECT ` + pointColumns + ` FROM (
			SELECT ` + pointColumns + ` FROM trip_points
			WHERE trip_id = $1 AND NOT is_filtered
			ORDER BY captured_at DESC, created_at DESC
			LIMIT $2
		) recent
		ORDER BY captured_at ASC, created_at ASC`

	return r.list(ctx, query, tripID, limit)
}

// ListAccepted retrieves all unfiltered points of a trip, oldest first.
func (r *TripPointRepository) ListAccepted(ctx context.Context, tripID string) ([]*domain.TripPoint, error) {
	query := `SELECT ` + pointColumns + ` FROM trip_points
		WHERE trip_id = $1 AND NOT is_filtered
		ORDER BY captured_at ASC, created_at ASC`

	return r.list(ctx, query, tripID)
}

func (r *TripPointRepository) list(ctx context.Context, query string, args ...any) ([]*domain.TripPoint, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*domain.TripPoint
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	return points, rows.Err()
}

func scanPoint(s scanner) (*domain.TripPoint, error) {
	var (
		point                    domain.TripPoint
		accuracy, speed, heading sql.NullFloat64
		filterReason             sql.NullString
	)

	err := s.Scan(
		&point.ID,
		&point.TripID,
		&point.Latitude,
		&point.Longitude,
		&accuracy,
		&speed,
		&heading,
		&point.CapturedAt,
		&point.IsFiltered,
		&filterReason,
		&point.DistanceFromPrevMeters,
		&point.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	point.Accuracy = floatPtr(accuracy)
	point.Speed = floatPtr(speed)
	point.Heading = floatPtr(heading)
	point.FilterReason = domain.FilterReason(filterReason.String)

	return &point, nil
}

var _ repository.TripPointRepository = (*TripPointRepository)(nil)
