package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// NewVehicleRepositoryWithTx creates a vehicle repository using a transaction.
func NewVehicleRepositoryWithTx(tx *sql.Tx) *VehicleRepository {
	return &VehicleRepository{q: tx}
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `
		SELECT id, organization_id, plate_number, current_odometer, updated_at
		FROM vehicles
		WHERE id = $1
	`

	var v domain.Vehicle
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.OrganizationID,
		&v.PlateNumber,
		&v.CurrentOdometer,
		&v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// UpdateOdometer sets the vehicle's authoritative odometer.
func (r *VehicleRepository) UpdateOdometer(ctx context.Context, id string, odometer int) error {
	query := `UPDATE vehicles SET current_odometer = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, odometer, time.Now().UTC(), id)
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

var _ repository.VehicleRepository = (*VehicleRepository)(nil)
