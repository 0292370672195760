package tracking

import (
	"time"

	"fleettrack/internal/domain"
	"fleettrack/internal/geo"
)

// StopDecision is the outcome of evaluating a trip's point history.
type StopDecision struct {
	// Open is a newly detected stop. Its ID and TripID are left to the caller.
	Open *domain.TripStop

	// Close is set when the currently open stop has ended at ClosedAt.
	Close    bool
	ClosedAt time.Time
}

// StopDetector detects stationary periods from accepted GPS points.
type StopDetector struct {
	radiusMeters float64
	minDuration  time.Duration
}

// NewStopDetector creates a StopDetector from the given rules.
func NewStopDetector(rules Rules) *StopDetector {
	return &StopDetector{
		radiusMeters: rules.StopRadiusMeters,
		minDuration:  rules.StopMinDuration,
	}
}

// Evaluate inspects the recent accepted points (oldest first, newest last).
// Points captured at or before since belong to an earlier, closed stop and are
// ignored. open is the trip's currently open stop, if any.
func (d *StopDetector) Evaluate(window []*domain.TripPoint, open *domain.TripStop, since time.Time) StopDecision {
	if len(window) == 0 {
		return StopDecision{}
	}
	newest := window[len(window)-1]

	if open != nil {
		centroid := geo.Point{Lat: open.Latitude, Lng: open.Longitude}
		if geo.Between(centroid, geo.Point{Lat: newest.Latitude, Lng: newest.Longitude}) <= d.radiusMeters {
			return StopDecision{}
		}

		// The previous point is the last one seen at the stop.
		closedAt := newest.CapturedAt
		if len(window) > 1 {
			if last := window[len(window)-2]; !last.CapturedAt.Before(open.StartedAt) {
				closedAt = last.CapturedAt
			}
		}
		return StopDecision{Close: true, ClosedAt: closedAt}
	}

	anchor := geo.Point{Lat: newest.Latitude, Lng: newest.Longitude}
	cluster := []*domain.TripPoint{newest}
	for i := len(window) - 2; i >= 0; i-- {
		p := window[i]
		if !since.IsZero() && !p.CapturedAt.After(since) {
			break
		}
		if geo.Between(anchor, geo.Point{Lat: p.Latitude, Lng: p.Longitude}) > d.radiusMeters {
			break
		}
		cluster = append(cluster, p)
	}

	if len(cluster) < 2 {
		return StopDecision{}
	}

	earliest := cluster[len(cluster)-1]
	if newest.CapturedAt.Sub(earliest.CapturedAt) < d.minDuration {
		return StopDecision{}
	}

	var sumLat, sumLng float64
	for _, p := range cluster {
		sumLat += p.Latitude
		sumLng += p.Longitude
	}
	n := float64(len(cluster))

	return StopDecision{
		Open: &domain.TripStop{
			StartedAt:   earliest.CapturedAt,
			Latitude:    sumLat / n,
			Longitude:   sumLng / n,
			PointsCount: len(cluster),
		},
	}
}
