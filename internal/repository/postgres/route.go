package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

// RouteRepository is a PostgreSQL implementation of repository.RouteRepository.
type RouteRepository struct {
	q Querier
}

// NewRouteRepository creates a new PostgreSQL route repository.
func NewRouteRepository(db *sql.DB) *RouteRepository {
	return &RouteRepository{q: db}
}

// NewRouteRepositoryWithTx creates a route repository using a transaction.
func NewRouteRepositoryWithTx(tx *sql.Tx) *RouteRepository {
	return &RouteRepository{q: tx}
}

// GetByID retrieves a route with its stops ordered by sequence.
func (r *RouteRepository) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	var route domain.Route
	err := r.q.QueryRowContext(ctx,
		`SELECT id, organization_id, name FROM routes WHERE id = $1`, id,
	).Scan(&route.ID, &route.OrganizationID, &route.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, route_id, machine_id, latitude, longitude, sequence, status
		FROM route_stops
		WHERE route_id = $1
		ORDER BY sequence ASC
	`

	rows, err := r.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stop     domain.RouteStop
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(
			&stop.ID,
			&stop.RouteID,
			&stop.MachineID,
			&lat,
			&lng,
			&stop.Sequence,
			&stop.Status,
		); err != nil {
			return nil, err
		}
		stop.Latitude = floatPtr(lat)
		stop.Longitude = floatPtr(lng)
		route.Stops = append(route.Stops, stop)
	}

	return &route, rows.Err()
}

// UpdateStopSequences writes the sequence of every given stop.
func (r *RouteRepository) UpdateStopSequences(ctx context.Context, routeID string, stops []domain.RouteStop) error {
	query := `UPDATE route_stops SET sequence = $1 WHERE id = $2 AND route_id = $3`

	for _, stop := range stops {
		result, err := r.q.ExecContext(ctx, query, stop.Sequence, stop.ID, routeID)
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
	}

	return nil
}

var _ repository.RouteRepository = (*RouteRepository)(nil)
