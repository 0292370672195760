package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/domain"
	"fleettrack/internal/service"
)

// zigzagRoute lists stops on one meridian in the order 0m, 3000m, 1000m,
// 2000m north of the depot, followed by a stop that was never geocoded.
func zigzagRoute(id, orgID string) *domain.Route {
	stop := func(name string, seq int, northMeters float64) domain.RouteStop {
		lat := depotLat + northMeters/metersPerDegree
		lng := depotLng
		return domain.RouteStop{
			ID:        name,
			RouteID:   id,
			MachineID: "machine-" + name,
			Latitude:  &lat,
			Longitude: &lng,
			Sequence:  seq,
			Status:    domain.RouteStopStatusPending,
		}
	}
	return &domain.Route{
		ID:             id,
		OrganizationID: orgID,
		Name:           "Chilonzor loop",
		Stops: []domain.RouteStop{
			stop("a", 1, 0),
			stop("b", 2, 3000),
			stop("c", 3, 1000),
			stop("d", 4, 2000),
			{ID: "e", RouteID: id, MachineID: "machine-e", Sequence: 5, Status: domain.RouteStopStatusPending},
		},
	}
}

func sequencesOf(route *domain.Route) map[string]int {
	seq := make(map[string]int, len(route.Stops))
	for _, s := range route.Stops {
		seq[s.ID] = s.Sequence
	}
	return seq
}

func newRouteFixture(t *testing.T) (*service.RouteService, *MockStore) {
	t.Helper()

	store := NewMockStore()
	store.AddRoute(zigzagRoute("route-1", "org-1"))
	logger, _ := newTestLogger()
	return service.NewRouteService(store, 40, logger), store
}

func TestOptimizeRoute_Preview(t *testing.T) {
	t.Parallel()

	svc, store := newRouteFixture(t)

	resp, err := svc.OptimizeRoute(context.Background(), "org-1", "route-1", false)
	require.NoError(t, err)

	assert.True(t, resp.Result.Optimized)
	assert.False(t, resp.Applied)
	assert.InDelta(t, 6.0, resp.Result.OriginalDistanceKm, 0.01)
	assert.InDelta(t, 3.0, resp.Result.OptimizedDistanceKm, 0.01)
	assert.InDelta(t, 3.0, resp.Result.SavingsKm, 0.01)
	assert.InDelta(t, 4.5, resp.Result.EstimatedTimeSavedMinutes, 0.02)
	assert.Equal(t, 4, resp.Result.GeocodedStops)
	assert.Equal(t, 1, resp.Result.UngeocodedStops)
	assert.NotEmpty(t, resp.Polyline)

	var order []string
	for _, s := range resp.Result.Stops {
		order = append(order, s.ID)
	}
	assert.Equal(t, []string{"a", "c", "d", "b", "e"}, order)

	assert.Equal(t, int32(0), store.UpdateStopSequencesCallCount)
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}, sequencesOf(store.GetRoute("route-1")))
}

func TestOptimizeRoute_ApplyPersistsSequences(t *testing.T) {
	t.Parallel()

	svc, store := newRouteFixture(t)

	resp, err := svc.OptimizeRoute(context.Background(), "org-1", "route-1", true)
	require.NoError(t, err)
	assert.True(t, resp.Applied)
	assert.Equal(t, int32(1), store.UpdateStopSequencesCallCount)

	route := store.GetRoute("route-1")
	assert.Equal(t, map[string]int{"a": 1, "c": 2, "d": 3, "b": 4, "e": 5}, sequencesOf(route))
	for _, s := range route.Stops {
		assert.Equal(t, domain.RouteStopStatusPending, s.Status)
		assert.Equal(t, "machine-"+s.ID, s.MachineID)
	}

	// The order is already optimal; nothing left to write.
	resp, err = svc.OptimizeRoute(context.Background(), "org-1", "route-1", true)
	require.NoError(t, err)
	assert.False(t, resp.Applied)
	assert.InDelta(t, 0, resp.Result.SavingsKm, 1e-6)
	assert.Equal(t, int32(1), store.UpdateStopSequencesCallCount)
}

func TestOptimizeRoute_TooFewStops(t *testing.T) {
	t.Parallel()

	svc, store := newRouteFixture(t)
	route := zigzagRoute("route-2", "org-1")
	route.Stops = route.Stops[:2]
	store.AddRoute(route)

	resp, err := svc.OptimizeRoute(context.Background(), "org-1", "route-2", true)
	require.NoError(t, err)
	assert.False(t, resp.Result.Optimized)
	assert.False(t, resp.Applied)
	assert.InDelta(t, 3.0, resp.Result.OriginalDistanceKm, 0.01)
	assert.Equal(t, int32(0), store.UpdateStopSequencesCallCount)
}

func TestOptimizeRoute_Errors(t *testing.T) {
	t.Parallel()

	svc, _ := newRouteFixture(t)
	ctx := context.Background()

	_, err := svc.OptimizeRoute(ctx, "org-2", "route-1", true)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.OptimizeRoute(ctx, "org-1", "route-missing", false)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.OptimizeRoute(ctx, "org-1", "", false)
	assert.ErrorIs(t, err, service.ErrValidation)
}
