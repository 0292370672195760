package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fleettrack/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTripStarted     NotificationType = "TRIP_STARTED"
	NotificationTripEnded       NotificationType = "TRIP_ENDED"
	NotificationTripCancelled   NotificationType = "TRIP_CANCELLED"
	NotificationAnomalyDetected NotificationType = "ANOMALY_DETECTED"
	NotificationOdometerFixed   NotificationType = "ODOMETER_RECONCILED"
)

// Notification is an event pushed to dispatchers.
type Notification struct {
	Type           NotificationType `json:"type"`
	OrganizationID string           `json:"organizationId"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Data           map[string]any   `json:"data,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Publisher delivers an encoded notification to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// NotificationService fans trip events out to dispatchers. Delivery is best
// effort: failures are logged and never fail the originating operation.
type NotificationService struct {
	publisher Publisher // Optional
	logger    logrus.FieldLogger
}

// NewNotificationService creates a new NotificationService. publisher may be
// nil, in which case notifications are only logged.
func NewNotificationService(publisher Publisher, logger logrus.FieldLogger) *NotificationService {
	return &NotificationService{publisher: publisher, logger: logger}
}

// NotifyTripStarted announces a new trip.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, Notification{
		Type:           NotificationTripStarted,
		OrganizationID: trip.OrganizationID,
		Title:          "Trip Started",
		Message:        fmt.Sprintf("Employee %s started a %s trip", trip.EmployeeID, trip.TaskType),
		Data: map[string]any{
			"trip_id":     trip.ID,
			"employee_id": trip.EmployeeID,
			"vehicle_id":  trip.VehicleID,
		},
	})
}

// NotifyTripEnded announces a completed trip with its totals.
func (s *NotificationService) NotifyTripEnded(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, Notification{
		Type:           NotificationTripEnded,
		OrganizationID: trip.OrganizationID,
		Title:          "Trip Completed",
		Message:        fmt.Sprintf("Trip finished after %.1f km", trip.CalculatedDistanceMeters/1000),
		Data: map[string]any{
			"trip_id":          trip.ID,
			"employee_id":      trip.EmployeeID,
			"distance_meters":  trip.CalculatedDistanceMeters,
			"total_stops":      trip.TotalStops,
			"total_anomalies":  trip.TotalAnomalies,
			"visited_machines": trip.VisitedMachinesCount,
		},
	})
}

// NotifyTripCancelled announces a cancelled trip.
func (s *NotificationService) NotifyTripCancelled(ctx context.Context, trip *domain.Trip, reason string) {
	s.send(ctx, Notification{
		Type:           NotificationTripCancelled,
		OrganizationID: trip.OrganizationID,
		Title:          "Trip Cancelled",
		Message:        reason,
		Data: map[string]any{
			"trip_id":     trip.ID,
			"employee_id": trip.EmployeeID,
		},
	})
}

// NotifyAnomaly alerts dispatchers about a detected anomaly.
func (s *NotificationService) NotifyAnomaly(ctx context.Context, trip *domain.Trip, anomaly *domain.TripAnomaly) {
	s.send(ctx, Notification{
		Type:           NotificationAnomalyDetected,
		OrganizationID: trip.OrganizationID,
		Title:          string(anomaly.Type),
		Message:        fmt.Sprintf("%s anomaly on trip %s", anomaly.Severity, trip.ID),
		Data: map[string]any{
			"trip_id":    trip.ID,
			"anomaly_id": anomaly.ID,
			"severity":   anomaly.Severity,
			"details":    anomaly.Details,
			"latitude":   anomaly.Latitude,
			"longitude":  anomaly.Longitude,
		},
	})
}

// NotifyReconciliation announces a manual odometer correction.
func (s *NotificationService) NotifyReconciliation(ctx context.Context, rec *domain.TripReconciliation) {
	s.send(ctx, Notification{
		Type:           NotificationOdometerFixed,
		OrganizationID: rec.OrganizationID,
		Title:          "Odometer Reconciled",
		Message:        fmt.Sprintf("Vehicle %s odometer set to %d km (%+d km)", rec.VehicleID, rec.ActualOdometer, rec.DifferenceKm),
		Data: map[string]any{
			"vehicle_id":        rec.VehicleID,
			"reconciliation_id": rec.ID,
		},
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) {
	if s == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	log := s.logger.WithFields(logrus.Fields{
		"notification": n.Type,
		"organization": n.OrganizationID,
	})
	log.Info(n.Message)

	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.WithError(err).Warn("encode notification")
		return
	}
	topic := fmt.Sprintf("orgs/%s/events/%s", n.OrganizationID, n.Type)
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		log.WithError(err).Warn("publish notification")
	}
}
