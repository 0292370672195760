// Package tracking holds the pure evaluation rules applied to trip telemetry:
// GPS sample filtering, stop detection and anomaly detection. Nothing in this
// package performs I/O.
package tracking

import (
	"time"

	"fleettrack/internal/domain"
)

// Rules contains the thresholds used by the tracking engines.
type Rules struct {
	MaxAccuracyMeters    float64       // Samples less accurate than this are LOW_ACCURACY
	MaxPlausibleSpeedKmh float64       // Implied speeds above this are IMPLAUSIBLE_JUMP
	StopRadiusMeters     float64       // Points within this radius count as stationary
	StopMinDuration      time.Duration // Minimum dwell before a stop is registered
	MaxIdleDuration      time.Duration // Open stops longer than this raise EXCESSIVE_IDLE
	RouteDeviationMeters float64       // Distance from the planned route that raises ROUTE_DEVIATION
	DefaultSpeedLimitKmh float64       // Used for task types without an explicit ceiling
	SpeedLimitsKmh       map[domain.TaskType]float64
	PointWindow          int // Recent accepted points fed to the stop detector
}

// DefaultRules returns the default tracking thresholds.
func DefaultRules() Rules {
	return Rules{
		MaxAccuracyMeters:    50,
		MaxPlausibleSpeedKmh: 200,
		StopRadiusMeters:     50,
		StopMinDuration:      3 * time.Minute,
		MaxIdleDuration:      30 * time.Minute,
		RouteDeviationMeters: 1000,
		DefaultSpeedLimitKmh: 90,
		SpeedLimitsKmh: map[domain.TaskType]float64{
			domain.TaskTypeFilling:     80,
			domain.TaskTypeCollection:  80,
			domain.TaskTypeMaintenance: 90,
			domain.TaskTypeRepair:      90,
			domain.TaskTypeInspection:  90,
			domain.TaskTypeMixed:       80,
		},
		PointWindow: 50,
	}
}

// SpeedLimitFor returns the speed ceiling for the given task type.
func (r Rules) SpeedLimitFor(t domain.TaskType) float64 {
	if limit, ok := r.SpeedLimitsKmh[t]; ok && limit > 0 {
		return limit
	}
	return r.DefaultSpeedLimitKmh
}
