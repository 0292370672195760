package repository

import (
	"context"
	"time"

	"fleettrack/internal/domain"
)

// TripFilter narrows trip listings. Empty fields are ignored.
type TripFilter struct {
	OrganizationID string
	EmployeeID     string
	VehicleID      string
	Status         domain.TripStatus
	Limit          int
}

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip. Returns ErrDuplicate if the employee
	// already has an active trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetByIDForUpdate retrieves a trip by ID and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error)

	// Update updates an existing trip.
	Update(ctx context.Context, trip *domain.Trip) error

	// GetActiveByEmployeeID retrieves the active trip for an employee.
	// Returns nil if no active trip exists.
	GetActiveByEmployeeID(ctx context.Context, employeeID string) (*domain.Trip, error)

	// List retrieves trips matching the filter, newest first.
	List(ctx context.Context, filter TripFilter) ([]*domain.Trip, error)

	// SumDistanceByVehicleSince sums calculated distance of the vehicle's
	// trips started after since.
	SumDistanceByVehicleSince(ctx context.Context, vehicleID string, since time.Time) (float64, error)
}

// TripPointRepository defines the persistence operations for GPS points.
type TripPointRepository interface {
	// Create appends a point to its trip.
	Create(ctx context.Context, point *domain.TripPoint) error

	// GetLastAccepted retrieves the most recent unfiltered point of a trip.
	// Returns nil if the trip has no accepted point yet.
	GetLastAccepted(ctx context.Context, tripID string) (*domain.TripPoint, error)

	// ListRecentAccepted retrieves up to limit most recent unfiltered points,
	// oldest first.
	ListRecentAccepted(ctx context.Context, tripID string, limit int) ([]*domain.TripPoint, error)

	// ListAccepted retrieves all unfiltered points of a trip, oldest first.
	ListAccepted(ctx context.Context, tripID string) ([]*domain.TripPoint, error)
}

// TripStopRepository defines the persistence operations for detected stops.
type TripStopRepository interface {
	// Create persists a new stop.
	Create(ctx context.Context, stop *domain.TripStop) error

	// Update updates an existing stop.
	Update(ctx context.Context, stop *domain.TripStop) error

	// GetOpen retrieves the trip's open stop. Returns nil if there is none.
	GetOpen(ctx context.Context, tripID string) (*domain.TripStop, error)

	// GetLastClosed retrieves the most recently closed stop.
	// Returns nil if there is none.
	GetLastClosed(ctx context.Context, tripID string) (*domain.TripStop, error)

	// ListByTrip retrieves all stops of a trip, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.TripStop, error)
}

// TaskLinkRepository defines the persistence operations for trip task links.
type TaskLinkRepository interface {
	// Create persists a link. Returns ErrDuplicate for an existing (trip, task) pair.
	Create(ctx context.Context, link *domain.TripTaskLink) error

	// Get retrieves the link between a trip and a task.
	Get(ctx context.Context, tripID, taskID string) (*domain.TripTaskLink, error)

	// Update updates an existing link.
	Update(ctx context.Context, link *domain.TripTaskLink) error

	// ListByTrip retrieves all links of a trip.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.TripTaskLink, error)
}
