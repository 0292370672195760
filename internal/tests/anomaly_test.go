package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
	"fleettrack/internal/service"
)

func newAnomalyFixture(t *testing.T) (*service.AnomalyService, *MockStore) {
	t.Helper()

	store := NewMockStore()
	store.AddTrip(&domain.Trip{ID: "trip-1", OrganizationID: "org-1", EmployeeID: "emp-1", Status: domain.TripStatusActive})
	store.AddTrip(&domain.Trip{ID: "trip-2", OrganizationID: "org-2", EmployeeID: "emp-2", Status: domain.TripStatusActive})

	store.AddAnomaly(domain.NewTripAnomaly("anom-1", "trip-1", domain.SeverityWarning,
		domain.SpeedViolationDetails{SpeedKmh: 112.4, MaxAllowedKmh: 80}, 41.3, 69.2, baseTime))
	store.AddAnomaly(domain.NewTripAnomaly("anom-2", "trip-2", domain.SeverityCritical,
		domain.ExcessiveIdleDetails{IdleSeconds: 4000, MaxIdleSeconds: 1800, StopID: "stop-1"}, 41.3, 69.2, baseTime))

	logger, _ := newTestLogger()
	return service.NewAnomalyService(store, logger), store
}

func TestResolveAnomaly(t *testing.T) {
	t.Parallel()

	svc, _ := newAnomalyFixture(t)

	before := time.Now().Add(-time.Second)
	anomaly, err := svc.ResolveAnomaly(context.Background(), service.ResolveAnomalyRequest{
		AnomalyID:      "anom-1",
		UserID:         "disp-1",
		OrganizationID: "org-1",
		Notes:          "GPS glitch near depot",
	})
	require.NoError(t, err)

	assert.True(t, anomaly.Resolved)
	assert.Equal(t, "disp-1", anomaly.ResolvedByID)
	assert.Equal(t, "GPS glitch near depot", anomaly.ResolutionNotes)
	assert.True(t, anomaly.ResolvedAt.After(before))

	// Details survive the update untouched
	assert.Equal(t, domain.SpeedViolationDetails{SpeedKmh: 112.4, MaxAllowedKmh: 80}, anomaly.Details)
}

func TestResolveAnomaly_OtherOrganizationIsNotFound(t *testing.T) {
	t.Parallel()

	svc, store := newAnomalyFixture(t)

	_, err := svc.ResolveAnomaly(context.Background(), service.ResolveAnomalyRequest{
		AnomalyID:      "anom-2",
		UserID:         "disp-1",
		OrganizationID: "org-1",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.False(t, store.Anomalies("trip-2")[0].Resolved)

	_, err = svc.ResolveAnomaly(context.Background(), service.ResolveAnomalyRequest{
		AnomalyID:      "anom-missing",
		UserID:         "disp-1",
		OrganizationID: "org-1",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestResolveAnomaly_SecondResolutionOverwrites(t *testing.T) {
	t.Parallel()

	svc, store := newAnomalyFixture(t)
	ctx := context.Background()

	_, err := svc.ResolveAnomaly(ctx, service.ResolveAnomalyRequest{
		AnomalyID: "anom-1", UserID: "disp-1", OrganizationID: "org-1", Notes: "first look",
	})
	require.NoError(t, err)

	_, err = svc.ResolveAnomaly(ctx, service.ResolveAnomalyRequest{
		AnomalyID: "anom-1", UserID: "disp-2", OrganizationID: "org-1", Notes: "confirmed",
	})
	require.NoError(t, err)

	stored := store.Anomalies("trip-1")[0]
	assert.True(t, stored.Resolved)
	assert.Equal(t, "disp-2", stored.ResolvedByID)
	assert.Equal(t, "confirmed", stored.ResolutionNotes)
}

func TestResolveAnomaly_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newAnomalyFixture(t)

	_, err := svc.ResolveAnomaly(context.Background(), service.ResolveAnomalyRequest{AnomalyID: "anom-1", OrganizationID: "org-1"})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.ResolveAnomaly(context.Background(), service.ResolveAnomalyRequest{UserID: "disp-1", OrganizationID: "org-1"})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestListAnomalies_ScopedToOrganization(t *testing.T) {
	t.Parallel()

	svc, _ := newAnomalyFixture(t)
	ctx := context.Background()

	anomalies, err := svc.ListAnomalies(ctx, "org-1", repository.AnomalyFilter{})
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "anom-1", anomalies[0].ID)

	// A caller-supplied organization cannot widen the scope
	anomalies, err = svc.ListAnomalies(ctx, "org-1", repository.AnomalyFilter{OrganizationID: "org-2"})
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "anom-1", anomalies[0].ID)

	resolved := true
	anomalies, err = svc.ListAnomalies(ctx, "org-1", repository.AnomalyFilter{Resolved: &resolved})
	require.NoError(t, err)
	assert.Empty(t, anomalies)

	_, err = svc.ListAnomalies(ctx, "", repository.AnomalyFilter{})
	assert.ErrorIs(t, err, service.ErrValidation)
}
