package tracking

import (
	"math"

	"fleettrack/internal/domain"
	"fleettrack/internal/geo"
)

// Finding is an anomaly raised by a rule, before it is persisted.
type Finding struct {
	Severity domain.AnomalySeverity
	Details  domain.AnomalyDetails
}

// AnomalyInput is everything the rules look at for one accepted point.
type AnomalyInput struct {
	TaskType domain.TaskType
	Point    *domain.TripPoint
	Prev     *domain.TripPoint // Previous accepted point, nil for the first one
	SpeedKmh float64           // Speed from Prev to Point

	OpenStop *domain.TripStop // Stop the vehicle is currently at, if any

	RouteID     string
	PlannedPath []geo.Point // Geocoded stops of the planned route, in visiting order
}

// AnomalyDetector evaluates accepted points against the anomaly rules.
type AnomalyDetector struct {
	rules Rules
}

// NewAnomalyDetector creates an AnomalyDetector from the given rules.
func NewAnomalyDetector(rules Rules) *AnomalyDetector {
	return &AnomalyDetector{rules: rules}
}

// Evaluate returns zero or more findings for the point.
func (d *AnomalyDetector) Evaluate(in AnomalyInput) []Finding {
	var findings []Finding

	if f, ok := d.speedViolation(in); ok {
		findings = append(findings, f)
	}
	if f, ok := d.excessiveIdle(in); ok {
		findings = append(findings, f)
	}
	if f, ok := d.routeDeviation(in); ok {
		findings = append(findings, f)
	}

	return findings
}

func (d *AnomalyDetector) speedViolation(in AnomalyInput) (Finding, bool) {
	if in.Prev == nil {
		return Finding{}, false
	}

	limit := d.rules.SpeedLimitFor(in.TaskType)
	if in.SpeedKmh <= limit {
		return Finding{}, false
	}

	return Finding{
		Severity: domain.SeverityWarning,
		Details: domain.SpeedViolationDetails{
			SpeedKmh:      roundTo(in.SpeedKmh, 1),
			MaxAllowedKmh: limit,
		},
	}, true
}

// excessiveIdle fires once per stop, when its dwell first exceeds the limit.
func (d *AnomalyDetector) excessiveIdle(in AnomalyInput) (Finding, bool) {
	stop := in.OpenStop
	if stop == nil || stop.IdleFlagged || d.rules.MaxIdleDuration <= 0 {
		return Finding{}, false
	}

	idle := in.Point.CapturedAt.Sub(stop.StartedAt)
	if idle <= d.rules.MaxIdleDuration {
		return Finding{}, false
	}

	severity := domain.SeverityWarning
	if idle > 2*d.rules.MaxIdleDuration {
		severity = domain.SeverityCritical
	}

	return Finding{
		Severity: severity,
		Details: domain.ExcessiveIdleDetails{
			IdleSeconds:    int64(idle.Seconds()),
			MaxIdleSeconds: int64(d.rules.MaxIdleDuration.Seconds()),
			StopID:         stop.ID,
		},
	}, true
}

// routeDeviation fires on the transition from on-route to off-route.
func (d *AnomalyDetector) routeDeviation(in AnomalyInput) (Finding, bool) {
	if len(in.PlannedPath) == 0 || in.Prev == nil || d.rules.RouteDeviationMeters <= 0 {
		return Finding{}, false
	}

	current := geo.PointToPathMeters(geo.Point{Lat: in.Point.Latitude, Lng: in.Point.Longitude}, in.PlannedPath)
	if current <= d.rules.RouteDeviationMeters {
		return Finding{}, false
	}

	previous := geo.PointToPathMeters(geo.Point{Lat: in.Prev.Latitude, Lng: in.Prev.Longitude}, in.PlannedPath)
	if previous > d.rules.RouteDeviationMeters {
		return Finding{}, false
	}

	return Finding{
		Severity: domain.SeverityWarning,
		Details: domain.RouteDeviationDetails{
			DeviationMeters:    roundTo(current, 0),
			MaxDeviationMeters: d.rules.RouteDeviationMeters,
			RouteID:            in.RouteID,
		},
	}, true
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow10(places)
	return math.Round(v*pow) / pow
}
