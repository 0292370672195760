package domain

import "time"

// FilterReason explains why a GPS sample was excluded from aggregates.
type FilterReason string

const (
	FilterReasonNone            FilterReason = ""
	FilterReasonLowAccuracy     FilterReason = "LOW_ACCURACY"
	FilterReasonImplausibleJump FilterReason = "IMPLAUSIBLE_JUMP"
)

// TripPoint is one GPS sample belonging to a trip. Points are append-only.
type TripPoint struct {
	ID         string
	TripID     string
	Latitude   float64
	Longitude  float64
	Accuracy   *float64 // meters
	Speed      *float64 // m/s as reported by the device
	Heading    *float64
	CapturedAt time.Time

	IsFiltered   bool
	FilterReason FilterReason

	// DistanceFromPrevMeters is the great-circle distance to the previous
	// accepted point. Always 0 for filtered points and the first accepted one.
	DistanceFromPrevMeters float64

	CreatedAt time.Time
}
