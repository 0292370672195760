package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

// AnomalyService handles review of detected anomalies.
type AnomalyService struct {
	store  repository.Store
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewAnomalyService creates a new AnomalyService.
func NewAnomalyService(store repository.Store, logger logrus.FieldLogger) *AnomalyService {
	return &AnomalyService{
		store:  store,
		logger: logger.WithField("component", "anomaly_service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ResolveAnomalyRequest contains the parameters for resolving an anomaly.
type ResolveAnomalyRequest struct {
	AnomalyID      string
	UserID         string
	OrganizationID string
	Notes          string
}

// ResolveAnomaly marks an anomaly as reviewed. Anomalies of trips owned by
// another organization are reported as not found. Resolving an already
// resolved anomaly overwrites its resolution metadata.
func (s *AnomalyService) ResolveAnomaly(ctx context.Context, req ResolveAnomalyRequest) (*domain.TripAnomaly, error) {
	if req.AnomalyID == "" {
		return nil, ErrInvalidAnomalyID
	}
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}
	if req.OrganizationID == "" {
		return nil, ErrInvalidOrganizationID
	}

	var anomaly *domain.TripAnomaly
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		anomaly, err = repos.Anomalies.GetByID(ctx, req.AnomalyID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAnomalyNotFound
		}
		if err != nil {
			return err
		}

		trip, err := repos.Trips.GetByID(ctx, anomaly.TripID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && trip.OrganizationID != req.OrganizationID) {
			return ErrAnomalyNotFound
		}
		if err != nil {
			return err
		}

		anomaly.Resolved = true
		anomaly.ResolvedByID = req.UserID
		anomaly.ResolutionNotes = strings.TrimSpace(req.Notes)
		anomaly.ResolvedAt = s.now()

		return repos.Anomalies.Update(ctx, anomaly)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"anomaly_id": anomaly.ID,
		"trip_id":    anomaly.TripID,
		"user_id":    req.UserID,
	}).Info("anomaly resolved")

	return anomaly, nil
}

// ListAnomalies retrieves anomalies of an organization's trips.
func (s *AnomalyService) ListAnomalies(ctx context.Context, organizationID string, filter repository.AnomalyFilter) ([]*domain.TripAnomaly, error) {
	if organizationID == "" {
		return nil, ErrInvalidOrganizationID
	}
	filter.OrganizationID = organizationID
	return s.store.Repos().Anomalies.List(ctx, filter)
}
