package repository

import (
	"context"

	"fleettrack/internal/domain"
)

// AnomalyFilter narrows anomaly listings. Empty fields are ignored.
type AnomalyFilter struct {
	OrganizationID string
	TripID         string
	Resolved       *bool
	Limit          int
}

// AnomalyRepository defines the persistence operations for trip anomalies.
type AnomalyRepository interface {
	// Create persists a new anomaly.
	Create(ctx context.Context, anomaly *domain.TripAnomaly) error

	// GetByID retrieves an anomaly by ID.
	GetByID(ctx context.Context, id string) (*domain.TripAnomaly, error)

	// Update updates the resolution fields of an anomaly.
	Update(ctx context.Context, anomaly *domain.TripAnomaly) error

	// ListByTrip retrieves all anomalies of a trip, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.TripAnomaly, error)

	// List retrieves anomalies matching the filter, newest first.
	List(ctx context.Context, filter AnomalyFilter) ([]*domain.TripAnomaly, error)
}
