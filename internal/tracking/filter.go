package tracking

import (
	"fleettrack/internal/domain"
	"fleettrack/internal/geo"
)

// Verdict is the classification of a GPS sample.
type Verdict struct {
	Accepted bool
	Reason   domain.FilterReason

	// DistanceMeters and SpeedKmh are measured against the previous accepted
	// point; both are 0 when there is none.
	DistanceMeters float64
	SpeedKmh       float64
}

// Filter decides whether a GPS sample is trustworthy.
type Filter struct {
	maxAccuracyMeters    float64
	maxPlausibleSpeedKmh float64
}

// NewFilter creates a Filter from the given rules.
func NewFilter(rules Rules) *Filter {
	return &Filter{
		maxAccuracyMeters:    rules.MaxAccuracyMeters,
		maxPlausibleSpeedKmh: rules.MaxPlausibleSpeedKmh,
	}
}

// Classify evaluates candidate against the previous accepted point. Rules are
// checked in order and the first match wins: low accuracy, implausible jump,
// accept.
func (f *Filter) Classify(candidate, prev *domain.TripPoint) Verdict {
	if candidate.Accuracy != nil && *candidate.Accuracy > f.maxAccuracyMeters {
		return Verdict{Reason: domain.FilterReasonLowAccuracy}
	}

	if prev == nil {
		return Verdict{Accepted: true}
	}

	distance := geo.DistanceMeters(prev.Latitude, prev.Longitude, candidate.Latitude, candidate.Longitude)
	elapsed := candidate.CapturedAt.Sub(prev.CapturedAt).Seconds()

	if elapsed <= 0 {
		// Same or earlier timestamp: only a repeated position is believable.
		if distance > 0 {
			return Verdict{Reason: domain.FilterReasonImplausibleJump, DistanceMeters: distance}
		}
		return Verdict{Accepted: true}
	}

	speedKmh := distance / elapsed * 3.6
	if speedKmh > f.maxPlausibleSpeedKmh {
		return Verdict{Reason: domain.FilterReasonImplausibleJump, DistanceMeters: distance, SpeedKmh: speedKmh}
	}

	return Verdict{Accepted: true, DistanceMeters: distance, SpeedKmh: speedKmh}
}
