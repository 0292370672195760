package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AnomalyType identifies the rule that flagged an anomaly.
type AnomalyType string

const (
	AnomalyTypeSpeedViolation AnomalyType = "SPEED_VIOLATION"
	AnomalyTypeExcessiveIdle  AnomalyType = "EXCESSIVE_IDLE"
	AnomalyTypeRouteDeviation AnomalyType = "ROUTE_DEVIATION"
)

// AnomalySeverity represents how urgent an anomaly is.
type AnomalySeverity string

const (
	SeverityInfo     AnomalySeverity = "info"
	SeverityWarning  AnomalySeverity = "warning"
	SeverityCritical AnomalySeverity = "critical"
)

// AnomalyDetails is the typed payload of an anomaly. The set of
// implementations is closed; each one belongs to exactly one AnomalyType.
type AnomalyDetails interface {
	AnomalyType() AnomalyType
}

// SpeedViolationDetails is the payload of SPEED_VIOLATION anomalies.
type SpeedViolationDetails struct {
	SpeedKmh      float64 `json:"speedKmh"`
	MaxAllowedKmh float64 `json:"maxAllowedKmh"`
}

func (SpeedViolationDetails) AnomalyType() AnomalyType { return AnomalyTypeSpeedViolation }

// ExcessiveIdleDetails is the payload of EXCESSIVE_IDLE anomalies.
type ExcessiveIdleDetails struct {
	IdleSeconds    int64  `json:"idleSeconds"`
	MaxIdleSeconds int64  `json:"maxIdleSeconds"`
	StopID         string `json:"stopId"`
}

func (ExcessiveIdleDetails) AnomalyType() AnomalyType { return AnomalyTypeExcessiveIdle }

// RouteDeviationDetails is the payload of ROUTE_DEVIATION anomalies.
type RouteDeviationDetails struct {
	DeviationMeters    float64 `json:"deviationMeters"`
	MaxDeviationMeters float64 `json:"maxDeviationMeters"`
	RouteID            string  `json:"routeId"`
}

func (RouteDeviationDetails) AnomalyType() AnomalyType { return AnomalyTypeRouteDeviation }

// DecodeAnomalyDetails decodes a stored payload into the details type of t.
func DecodeAnomalyDetails(t AnomalyType, raw []byte) (AnomalyDetails, error) {
	var (
		details AnomalyDetails
		err     error
	)
	switch t {
	case AnomalyTypeSpeedViolation:
		var d SpeedViolationDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case AnomalyTypeExcessiveIdle:
		var d ExcessiveIdleDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case AnomalyTypeRouteDeviation:
		var d RouteDeviationDetails
		err = json.Unmarshal(raw, &d)
		details = d
	default:
		return nil, fmt.Errorf("decode anomaly details: unknown type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode anomaly details: %s: %w", t, err)
	}
	return details, nil
}

// TripAnomaly is a flagged irregular event within a trip.
type TripAnomaly struct {
	ID         string
	TripID     string
	Type       AnomalyType
	Severity   AnomalySeverity
	Details    AnomalyDetails
	Latitude   float64
	Longitude  float64
	DetectedAt time.Time

	Resolved        bool
	ResolvedByID    string
	ResolutionNotes string
	ResolvedAt      time.Time
}

// NewTripAnomaly builds an unresolved anomaly whose type follows its details.
func NewTripAnomaly(id, tripID string, severity AnomalySeverity, details AnomalyDetails, lat, lng float64, at time.Time) *TripAnomaly {
	return &TripAnomaly{
		ID:         id,
		TripID:     tripID,
		Type:       details.AnomalyType(),
		Severity:   severity,
		Details:    details,
		Latitude:   lat,
		Longitude:  lng,
		DetectedAt: at,
	}
}
