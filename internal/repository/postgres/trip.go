package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

const tripColumns = `
	id, organization_id, employee_id, vehicle_id, route_id, task_type, status,
	started_at, ended_at, start_odometer, end_odometer,
	start_latitude, start_longitude, end_latitude, end_longitude,
	calculated_distance_meters, total_points, total_stops, total_anomalies, visited_machines_count,
	live_location_active, last_location_update, notes, completed_by_id, cancelled_by_id,
	created_at, updated_at`

const defaultListLimit = 100

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.OrganizationID,
		trip.EmployeeID,
		nullString(trip.VehicleID),
		nullString(trip.RouteID),
		trip.TaskType,
		trip.Status,
		trip.StartedAt,
		nullTime(trip.EndedAt),
		nullInt(trip.StartOdometer),
		nullInt(trip.EndOdometer),
		nullFloat(trip.StartLatitude),
		nullFloat(trip.StartLongitude),
		nullFloat(trip.EndLatitude),
		nullFloat(trip.EndLongitude),
		trip.CalculatedDistanceMeters,
		trip.TotalPoints,
		trip.TotalStops,
		trip.TotalAnomalies,
		trip.VisitedMachinesCount,
		trip.LiveLocationActive,
		nullTime(trip.LastLocationUpdate),
		trip.Notes,
		nullString(trip.CompletedByID),
		nullString(trip.CancelledByID),
		trip.CreatedAt,
		trip.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return trip, err
}

// GetByIDForUpdate retrieves a trip by ID and locks the row.
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return trip, err
}

// Update updates an existing trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET vehicle_id = $1, route_id = $2, task_type = $3, status = $4, ended_at = $5,
			start_odometer = $6, end_odometer = $7,
			start_latitude = $8, start_longitude = $9, end_latitude = $10, end_longitude = $11,
			calculated_distance_meters = $12, total_points = $13, total_stops = $14,
			total_anomalies = $15, visited_machines_count = $16,
			live_location_active = $17, last_location_update = $18, notes = $19,
			completed_by_id = $20, cancelled_by_id = $21, updated_at = $22
		WHERE id = $23
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(trip.VehicleID),
		nullString(trip.RouteID),
		trip.TaskType,
		trip.Status,
		nullTime(trip.EndedAt),
		nullInt(trip.StartOdometer),
		nullInt(trip.EndOdometer),
		nullFloat(trip.StartLatitude),
		nullFloat(trip.StartLongitude),
		nullFloat(trip.EndLatitude),
		nullFloat(trip.EndLongitude),
		trip.CalculatedDistanceMeters,
		trip.TotalPoints,
		trip.TotalStops,
		trip.TotalAnomalies,
		trip.VisitedMachinesCount,
		trip.LiveLocationActive,
		nullTime(trip.LastLocationUpdate),
		trip.Notes,
		nullString(trip.CompletedByID),
		nullString(trip.CancelledByID),
		trip.UpdatedAt,
		trip.ID,
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

// GetActiveByEmployeeID retrieves the active trip for an employee.
// Returns nil if no active trip exists.
func (r *TripRepository) GetActiveByEmployeeID(ctx context.Context, employeeID string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE employee_id = $1 AND status = $2 LIMIT 1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, employeeID, domain.TripStatusActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return trip, err
}

// List retrieves trips matching the filter, newest first.
func (r *TripRepository) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.OrganizationID != "" {
		add("organization_id", filter.OrganizationID)
	}
	if filter.EmployeeID != "" {
		add("employee_id", filter.EmployeeID)
	}
	if filter.VehicleID != "" {
		add("vehicle_id", filter.VehicleID)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// SumDistanceByVehicleSince sums calculated distance of the vehicle's trips
// started after since.
func (r *TripRepository) SumDistanceByVehicleSince(ctx context.Context, vehicleID string, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(calculated_distance_meters), 0)
		FROM trips
		WHERE vehicle_id = $1 AND started_at > $2
	`

	var total float64
	if err := r.q.QueryRowContext(ctx, query, vehicleID, since).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func scanTrip(s scanner) (*domain.Trip, error) {
	var (
		trip                         domain.Trip
		vehicleID, routeID           sql.NullString
		completedByID, cancelledByID sql.NullString
		endedAt, lastLocationUpdate  sql.NullTime
		startOdometer, endOdometer   sql.NullInt64
		startLat, startLng           sql.NullFloat64
		endLat, endLng               sql.NullFloat64
	)

	err := s.Scan(
		&trip.ID,
		&trip.OrganizationID,
		&trip.EmployeeID,
		&vehicleID,
		&routeID,
		&trip.TaskType,
		&trip.Status,
		&trip.StartedAt,
		&endedAt,
		&startOdometer,
		&endOdometer,
		&startLat,
		&startLng,
		&endLat,
		&endLng,
		&trip.CalculatedDistanceMeters,
		&trip.TotalPoints,
		&trip.TotalStops,
		&trip.TotalAnomalies,
		&trip.VisitedMachinesCount,
		&trip.LiveLocationActive,
		&lastLocationUpdate,
		&trip.Notes,
		&completedByID,
		&cancelledByID,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.VehicleID = vehicleID.String
	trip.RouteID = routeID.String
	trip.CompletedByID = completedByID.String
	trip.CancelledByID = cancelledByID.String
	trip.EndedAt = timeOrZero(endedAt)
	trip.LastLocationUpdate = timeOrZero(lastLocationUpdate)
	trip.StartOdometer = intPtr(startOdometer)
	trip.EndOdometer = intPtr(endOdometer)
	trip.StartLatitude = floatPtr(startLat)
	trip.StartLongitude = floatPtr(startLng)
	trip.EndLatitude = floatPtr(endLat)
	trip.EndLongitude = floatPtr(endLng)

	return &trip, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
