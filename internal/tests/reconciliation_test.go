package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/domain"
	"fleettrack/internal/service"
)

func newReconciliationFixture(t *testing.T) (*service.ReconciliationService, *MockStore, *MockLockStore) {
	t.Helper()

	store := NewMockStore()
	store.AddVehicle(&domain.Vehicle{ID: "veh-1", OrganizationID: "org-1", CurrentOdometer: 12000})
	store.AddVehicle(&domain.Vehicle{ID: "veh-2", OrganizationID: "org-2", CurrentOdometer: 300})

	store.AddTrip(&domain.Trip{
		ID: "trip-1", OrganizationID: "org-1", EmployeeID: "emp-1", VehicleID: "veh-1",
		Status: domain.TripStatusCompleted, StartedAt: baseTime, CalculatedDistanceMeters: 42500,
	})
	store.AddTrip(&domain.Trip{
		ID: "trip-2", OrganizationID: "org-1", EmployeeID: "emp-1", VehicleID: "veh-1",
		Status: domain.TripStatusCompleted, StartedAt: baseTime.Add(3 * time.Hour), CalculatedDistanceMeters: 7500,
	})

	locks := NewMockLockStore()
	logger, _ := newTestLogger()
	return service.NewReconciliationService(store, locks, nil, logger), store, locks
}

func TestPerformReconciliation(t *testing.T) {
	t.Parallel()

	svc, store, locks := newReconciliationFixture(t)

	rec, err := svc.PerformReconciliation(context.Background(), service.ReconciliationRequest{
		OrganizationID: "org-1",
		VehicleID:      "veh-1",
		ActualOdometer: 12061,
		PerformedByID:  "mgr-1",
		Notes:          "monthly check",
	})
	require.NoError(t, err)

	assert.Equal(t, 12000, rec.PreviousOdometer)
	assert.Equal(t, 12061, rec.ActualOdometer)
	assert.Equal(t, 61, rec.DifferenceKm)
	assert.InDelta(t, 50000, rec.CalculatedDistanceMeters, 1e-9)
	assert.Equal(t, "mgr-1", rec.PerformedByID)

	assert.Equal(t, 12061, store.GetVehicle("veh-1").CurrentOdometer)
	assert.Equal(t, 1, store.CountReconciliations())

	// Trip distances are never rewritten
	assert.Equal(t, 42500.0, store.GetTrip("trip-1").CalculatedDistanceMeters)
	assert.Equal(t, 7500.0, store.GetTrip("trip-2").CalculatedDistanceMeters)

	assert.False(t, locks.IsLocked("veh-1"), "lock is released afterwards")
	assert.Equal(t, int32(1), locks.ReleaseCallCount)
}

func TestPerformReconciliation_NegativeDifference(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconciliationFixture(t)

	rec, err := svc.PerformReconciliation(context.Background(), service.ReconciliationRequest{
		OrganizationID: "org-1", VehicleID: "veh-1", ActualOdometer: 11950, PerformedByID: "mgr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, -50, rec.DifferenceKm)
	assert.Equal(t, 11950, store.GetVehicle("veh-1").CurrentOdometer)
}

func TestPerformReconciliation_LockHeldConflicts(t *testing.T) {
	t.Parallel()

	svc, store, locks := newReconciliationFixture(t)
	locks.Hold("veh-1")

	_, err := svc.PerformReconciliation(context.Background(), service.ReconciliationRequest{
		OrganizationID: "org-1", VehicleID: "veh-1", ActualOdometer: 12061, PerformedByID: "mgr-1",
	})
	assert.ErrorIs(t, err, service.ErrConflict)
	assert.Equal(t, 0, store.CountReconciliations())
	assert.Equal(t, 12000, store.GetVehicle("veh-1").CurrentOdometer)
}

func TestPerformReconciliation_HeldLockOnForeignVehicleIsNotFound(t *testing.T) {
	t.Parallel()

	svc, _, locks := newReconciliationFixture(t)
	locks.Hold("veh-2")
	locks.Hold("veh-9")

	for _, vehicleID := range []string{"veh-2", "veh-9"} {
		_, err := svc.PerformReconciliation(context.Background(), service.ReconciliationRequest{
			OrganizationID: "org-1", VehicleID: vehicleID, ActualOdometer: 400, PerformedByID: "mgr-1",
		})
		assert.ErrorIs(t, err, service.ErrNotFound, vehicleID)
		assert.NotErrorIs(t, err, service.ErrConflict, vehicleID)
	}
	assert.Equal(t, int32(0), locks.AcquireCallCount)
}

func TestPerformReconciliation_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  service.ReconciliationRequest
		want error
	}{
		{
			name: "vehicle of another organization",
			req:  service.ReconciliationRequest{OrganizationID: "org-1", VehicleID: "veh-2", ActualOdometer: 400, PerformedByID: "mgr-1"},
			want: service.ErrNotFound,
		},
		{
			name: "unknown vehicle",
			req:  service.ReconciliationRequest{OrganizationID: "org-1", VehicleID: "veh-9", ActualOdometer: 400, PerformedByID: "mgr-1"},
			want: service.ErrNotFound,
		},
		{
			name: "negative odometer",
			req:  service.ReconciliationRequest{OrganizationID: "org-1", VehicleID: "veh-1", ActualOdometer: -1, PerformedByID: "mgr-1"},
			want: service.ErrValidation,
		},
		{
			name: "missing performer",
			req:  service.ReconciliationRequest{OrganizationID: "org-1", VehicleID: "veh-1", ActualOdometer: 1},
			want: service.ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, locks := newReconciliationFixture(t)

			_, err := svc.PerformReconciliation(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 0, store.CountReconciliations())
			assert.False(t, locks.IsLocked(tc.req.VehicleID))
		})
	}
}

func TestPerformReconciliation_DistanceSincePreviousReconciliation(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconciliationFixture(t)
	ctx := context.Background()

	_, err := svc.PerformReconciliation(ctx, service.ReconciliationRequest{
		OrganizationID: "org-1", VehicleID: "veh-1", ActualOdometer: 12061, PerformedByID: "mgr-1",
	})
	require.NoError(t, err)

	// Both existing trips started before the first reconciliation.
	rec, err := svc.PerformReconciliation(ctx, service.ReconciliationRequest{
		OrganizationID: "org-1", VehicleID: "veh-1", ActualOdometer: 12070, PerformedByID: "mgr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 12061, rec.PreviousOdometer)
	assert.Equal(t, 9, rec.DifferenceKm)
	assert.Equal(t, 0.0, rec.CalculatedDistanceMeters)

	history, err := svc.ListReconciliations(ctx, "org-1", "veh-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 12070, history[0].ActualOdometer, "newest first")
	assert.Equal(t, 2, store.CountReconciliations())

	_, err = svc.ListReconciliations(ctx, "org-1", "veh-2")
	assert.ErrorIs(t, err, service.ErrNotFound)
}
