package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

const reconciliationColumns = `
	id, organization_id, vehicle_id, previous_odometer, actual_odometer, difference_km,
	calculated_distance_meters, performed_by_id, notes, created_at`

// ReconciliationRepository is a PostgreSQL implementation of repository.ReconciliationRepository.
type ReconciliationRepository struct {
	q Querier
}

// NewReconciliationRepository creates a new PostgreSQL reconciliation repository.
func NewReconciliationRepository(db *sql.DB) *ReconciliationRepository {
	return &ReconciliationRepository{q: db}
}

// NewReconciliationRepositoryWithTx creates a reconciliation repository using a transaction.
func NewReconciliationRepositoryWithTx(tx *sql.Tx) *ReconciliationRepository {
	return &ReconciliationRepository{q: tx}
}

// Create persists a new reconciliation.
func (r *ReconciliationRepository) Create(ctx context.Context, rec *domain.TripReconciliation) error {
	query := `INSERT INTO trip_reconciliations (` + reconciliationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.q.ExecContext(ctx, query,
		rec.ID,
		rec.OrganizationID,
		rec.VehicleID,
		rec.PreviousOdometer,
		rec.ActualOdometer,
		rec.DifferenceKm,
		rec.CalculatedDistanceMeters,
		rec.PerformedByID,
		rec.Notes,
		rec.CreatedAt,
	)
	return err
}

// GetLatestByVehicle retrieves the most recent reconciliation of a vehicle.
func (r *ReconciliationRepository) GetLatestByVehicle(ctx context.Context, vehicleID string) (*domain.TripReconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM trip_reconciliations
		WHERE vehicle_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	rec, err := scanReconciliation(r.q.QueryRowContext(ctx, query, vehicleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListByVehicle retrieves a vehicle's reconciliations, newest first.
func (r *ReconciliationRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.TripReconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM trip_reconciliations
		WHERE vehicle_id = $1
		ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.TripReconciliation
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

func scanReconciliation(s scanner) (*domain.TripReconciliation, error) {
	var rec domain.TripReconciliation
	err := s.Scan(
		&rec.ID,
		&rec.OrganizationID,
		&rec.VehicleID,
		&rec.PreviousOdometer,
		&rec.ActualOdometer,
		&rec.DifferenceKm,
		&rec.CalculatedDistanceMeters,
		&rec.PerformedByID,
		&rec.Notes,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

var _ repository.ReconciliationRepository = (*ReconciliationRepository)(nil)
