package domain

import "time"

// Vehicle is the slice of the vehicle record this service reads and corrects.
type Vehicle struct {
	ID              string
	OrganizationID  string
	PlateNumber     string
	CurrentOdometer int // km
	UpdatedAt       time.Time
}

// TripReconciliation is an audit row of a manual odometer correction.
type TripReconciliation struct {
	ID                       string
	OrganizationID           string
	VehicleID                string
	PreviousOdometer         int
	ActualOdometer           int
	DifferenceKm             int
	CalculatedDistanceMeters float64 // Trip distance tracked since the previous reconciliation
	PerformedByID            string
	Notes                    string
	CreatedAt                time.Time
}
