package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Valid reports whether s is a known trip status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusActive, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed out of s.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// TaskType represents the kind of work a trip is made for.
type TaskType string

const (
	TaskTypeFilling     TaskType = "filling"
	TaskTypeCollection  TaskType = "collection"
	TaskTypeMaintenance TaskType = "maintenance"
	TaskTypeRepair      TaskType = "repair"
	TaskTypeInspection  TaskType = "inspection"
	TaskTypeMixed       TaskType = "mixed"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeFilling, TaskTypeCollection, TaskTypeMaintenance,
		TaskTypeRepair, TaskTypeInspection, TaskTypeMixed:
		return true
	}
	return false
}

// Trip represents one technician's vehicle outing.
type Trip struct {
	ID             string
	OrganizationID string
	EmployeeID     string
	VehicleID      string // Empty when the trip is not bound to a vehicle
	RouteID        string // Planned route, used for deviation checks
	TaskType       TaskType
	Status         TripStatus
	StartedAt      time.Time
	EndedAt        time.Time // Zero while active

	StartOdometer *int // km
	EndOdometer   *int // km

	StartLatitude  *float64
	StartLongitude *float64
	EndLatitude    *float64
	EndLongitude   *float64

	CalculatedDistanceMeters float64
	TotalPoints              int
	TotalStops               int
	TotalAnomalies           int
	VisitedMachinesCount     int

	LiveLocationActive bool
	LastLocationUpdate time.Time

	Notes         string
	CompletedByID string
	CancelledByID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the trip still accepts points.
func (t *Trip) IsActive() bool {
	return t.Status == TripStatusActive
}

// HasStartCoordinates reports whether the first accepted point was recorded.
func (t *Trip) HasStartCoordinates() bool {
	return t.StartLatitude != nil && t.StartLongitude != nil
}

// TripDetails is a trip together with its owned records.
type TripDetails struct {
	Trip      *Trip
	Stops     []*TripStop
	Anomalies []*TripAnomaly
	TaskLinks []*TripTaskLink
}
