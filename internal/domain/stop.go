package domain

import "time"

// TripStop is a detected dwell period within a trip.
type TripStop struct {
	ID              string
	TripID          string
	StartedAt       time.Time
	EndedAt         time.Time // Zero while the stop is open
	Latitude        float64   // Centroid of the dwell cluster
	Longitude       float64
	DurationSeconds int64
	PointsCount     int
	IdleFlagged     bool // EXCESSIVE_IDLE already raised for this stop
}

// IsOpen reports whether the vehicle is still stationary at this stop.
func (s *TripStop) IsOpen() bool {
	return s.EndedAt.IsZero()
}

// Close ends the stop at the given time.
func (s *TripStop) Close(at time.Time) {
	if at.Before(s.StartedAt) {
		at = s.StartedAt
	}
	s.EndedAt = at
	s.DurationSeconds = int64(at.Sub(s.StartedAt).Seconds())
}
