package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleettrack/internal/domain"
	"fleettrack/internal/redis"
	"fleettrack/internal/repository"
)

// DefaultReconciliationLockTTL bounds how long a crashed reconciliation can
// block the vehicle.
const DefaultReconciliationLockTTL = 30 * time.Second

// ReconciliationService corrects vehicle odometers against manual readings.
type ReconciliationService struct {
	store    repository.Store
	locks    redis.LockStoreInterface
	notifier *NotificationService // Optional
	lockTTL  time.Duration
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(
	store repository.Store,
	locks redis.LockStoreInterface,
	notifier *NotificationService,
	logger logrus.FieldLogger,
) *ReconciliationService {
	return &ReconciliationService{
		store:    store,
		locks:    locks,
		notifier: notifier,
		lockTTL:  DefaultReconciliationLockTTL,
		logger:   logger.WithField("component", "reconciliation_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ReconciliationRequest contains the parameters for reconciling an odometer.
type ReconciliationRequest struct {
	OrganizationID string
	VehicleID      string
	ActualOdometer int // km, as read from the dashboard
	PerformedByID  string
	Notes          string
}

// PerformReconciliation records the actual odometer of a vehicle and makes it
// the vehicle's current odometer. Trip distances are left as they are; the
// audit row keeps the tracked distance next to the corrected reading.
func (s *ReconciliationService) PerformReconciliation(ctx context.Context, req ReconciliationRequest) (*domain.TripReconciliation, error) {
	if req.OrganizationID == "" {
		return nil, ErrInvalidOrganizationID
	}
	if req.VehicleID == "" {
		return nil, ErrInvalidVehicleID
	}
	if req.PerformedByID == "" {
		return nil, ErrInvalidUserID
	}
	if req.ActualOdometer < 0 {
		return nil, ErrInvalidOdometer
	}

	// Unknown and foreign vehicles are not found even while the lock is held.
	if _, err := loadVehicle(ctx, s.store.Repos(), req.OrganizationID, req.VehicleID); err != nil {
		return nil, err
	}

	release, ok, err := s.locks.AcquireVehicleLock(ctx, req.VehicleID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReconciliationInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WithError(err).WithField("vehicle_id", req.VehicleID).Warn("release vehicle lock")
		}
	}()

	var rec *domain.TripReconciliation
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		vehicle, err := loadVehicle(ctx, repos, req.OrganizationID, req.VehicleID)
		if err != nil {
			return err
		}

		var since time.Time
		last, err := repos.Reconciliations.GetLatestByVehicle(ctx, vehicle.ID)
		if err != nil {
			return err
		}
		if last != nil {
			since = last.CreatedAt
		}

		tracked, err := repos.Trips.SumDistanceByVehicleSince(ctx, vehicle.ID, since)
		if err != nil {
			return err
		}

		rec = &domain.TripReconciliation{
			ID:                       uuid.NewString(),
			OrganizationID:           req.OrganizationID,
			VehicleID:                vehicle.ID,
			PreviousOdometer:         vehicle.CurrentOdometer,
			ActualOdometer:           req.ActualOdometer,
			DifferenceKm:             req.ActualOdometer - vehicle.CurrentOdometer,
			CalculatedDistanceMeters: tracked,
			PerformedByID:            req.PerformedByID,
			Notes:                    req.Notes,
			CreatedAt:                s.now(),
		}
		if err := repos.Reconciliations.Create(ctx, rec); err != nil {
			return err
		}

		return repos.Vehicles.UpdateOdometer(ctx, vehicle.ID, req.ActualOdometer)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"vehicle_id":    rec.VehicleID,
		"previous_km":   rec.PreviousOdometer,
		"actual_km":     rec.ActualOdometer,
		"difference_km": rec.DifferenceKm,
	}).Info("odometer reconciled")
	s.notifier.NotifyReconciliation(ctx, rec)

	return rec, nil
}

// ListReconciliations retrieves the reconciliation history of a vehicle.
func (s *ReconciliationService) ListReconciliations(ctx context.Context, organizationID, vehicleID string) ([]*domain.TripReconciliation, error) {
	if organizationID == "" {
		return nil, ErrInvalidOrganizationID
	}
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}

	repos := s.store.Repos()
	if _, err := loadVehicle(ctx, repos, organizationID, vehicleID); err != nil {
		return nil, err
	}

	return repos.Reconciliations.ListByVehicle(ctx, vehicleID)
}

// loadVehicle returns the vehicle if it belongs to the organization.
func loadVehicle(ctx context.Context, repos repository.Repositories, organizationID, vehicleID string) (*domain.Vehicle, error) {
	vehicle, err := repos.Vehicles.GetByID(ctx, vehicleID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && vehicle.OrganizationID != organizationID) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}
