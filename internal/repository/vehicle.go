package repository

import (
	"context"

	"fleettrack/internal/domain"
)

// VehicleRepository defines the operations on vehicle records this service needs.
type VehicleRepository interface {
	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// UpdateOdometer sets the vehicle's authoritative odometer.
	UpdateOdometer(ctx context.Context, id string, odometer int) error
}

// ReconciliationRepository defines the persistence operations for odometer
// reconciliations. Rows are append-only.
type ReconciliationRepository interface {
	// Create persists a new reconciliation.
	Create(ctx context.Context, rec *domain.TripReconciliation) error

	// GetLatestByVehicle retrieves the most recent reconciliation of a vehicle.
	// Returns nil if the vehicle was never reconciled.
	GetLatestByVehicle(ctx context.Context, vehicleID string) (*domain.TripReconciliation, error)

	// ListByVehicle retrieves a vehicle's reconciliations, newest first.
	ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.TripReconciliation, error)
}

// RouteRepository defines the operations on routes used by optimization.
type RouteRepository interface {
	// GetByID retrieves a route with its stops ordered by sequence.
	GetByID(ctx context.Context, id string) (*domain.Route, error)

	// UpdateStopSequences writes the sequence of every given stop. No other
	// stop field is changed.
	UpdateStopSequences(ctx context.Context, routeID string, stops []domain.RouteStop) error
}
