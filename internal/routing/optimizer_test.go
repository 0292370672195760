package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/domain"
)

func stop(machineID string, seq int, lat, lng float64) domain.RouteStop {
	return domain.RouteStop{
		ID:        "stop-" + machineID,
		RouteID:   "route-1",
		MachineID: machineID,
		Latitude:  &lat,
		Longitude: &lng,
		Sequence:  seq,
		Status:    domain.RouteStopStatusPending,
	}
}

func ungeocoded(machineID string, seq int) domain.RouteStop {
	return domain.RouteStop{ID: "stop-" + machineID, RouteID: "route-1", MachineID: machineID, Sequence: seq, Status: domain.RouteStopStatusPending}
}

// zigzag visits machines on one street in the order 0, 3, 1, 4, 2.
func zigzag() []domain.RouteStop {
	return []domain.RouteStop{
		stop("m0", 1, 41.30, 69.20),
		stop("m3", 2, 41.30, 69.23),
		stop("m1", 3, 41.30, 69.21),
		stop("m4", 4, 41.30, 69.24),
		stop("m2", 5, 41.30, 69.22),
	}
}

func machineOrder(stops []domain.RouteStop) []string {
	ids := make([]string, len(stops))
	for i, s := range stops {
		ids[i] = s.MachineID
	}
	return ids
}

func TestOptimize_TooFewStopsKeepsOrder(t *testing.T) {
	t.Parallel()

	input := []domain.RouteStop{
		stop("a", 1, 41.30, 69.20),
		ungeocoded("b", 2),
		stop("c", 3, 41.31, 69.25),
	}

	result := NewOptimizer(0).Optimize(input)

	assert.False(t, result.Optimized)
	assert.Equal(t, input, result.Stops)
	assert.Zero(t, result.SavingsKm)
	assert.Zero(t, result.EstimatedTimeSavedMinutes)
	assert.Equal(t, result.OriginalDistanceKm, result.OptimizedDistanceKm)
	assert.Equal(t, 2, result.GeocodedStops)
	assert.Equal(t, 1, result.UngeocodedStops)
}

func TestOptimize_EmptyRoute(t *testing.T) {
	t.Parallel()

	result := NewOptimizer(40).Optimize(nil)

	assert.False(t, result.Optimized)
	assert.Empty(t, result.Stops)
}

func TestOptimize_ReordersZigzag(t *testing.T) {
	t.Parallel()

	input := zigzag()
	result := NewOptimizer(40).Optimize(input)

	require.True(t, result.Optimized)
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, machineOrder(result.Stops))
	for i, s := range result.Stops {
		assert.Equal(t, i+1, s.Sequence)
	}

	assert.LessOrEqual(t, result.OptimizedDistanceKm, result.OriginalDistanceKm)
	assert.InDelta(t, result.OriginalDistanceKm-result.OptimizedDistanceKm, result.SavingsKm, 1e-9)
	assert.InDelta(t, result.SavingsKm/40*60, result.EstimatedTimeSavedMinutes, 1e-9)
	assert.Len(t, result.Path, 5)

	// Input is untouched.
	assert.Equal(t, []string{"m0", "m3", "m1", "m4", "m2"}, machineOrder(input))
	assert.Equal(t, 2, input[1].Sequence)
}

func TestOptimize_UngeocodedStopsAppended(t *testing.T) {
	t.Parallel()

	input := zigzag()
	input = append([]domain.RouteStop{ungeocoded("x", 0)}, input...)
	input = append(input, ungeocoded("y", 6))

	result := NewOptimizer(40).Optimize(input)

	require.True(t, result.Optimized)
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4", "x", "y"}, machineOrder(result.Stops))
	assert.Equal(t, 6, result.Stops[5].Sequence)
	assert.Equal(t, 7, result.Stops[6].Sequence)
	assert.Equal(t, 2, result.UngeocodedStops)
}

func TestOptimize_AlreadyOptimalInput(t *testing.T) {
	t.Parallel()

	input := []domain.RouteStop{
		stop("a", 1, 41.30, 69.20),
		stop("b", 2, 41.30, 69.21),
		stop("c", 3, 41.30, 69.22),
	}

	result := NewOptimizer(40).Optimize(input)

	assert.True(t, result.Optimized)
	assert.Equal(t, []string{"a", "b", "c"}, machineOrder(result.Stops))
	assert.InDelta(t, 0, result.SavingsKm, 1e-9)
}

func TestOptimize_OutOfRangeCoordinatesTreatedAsUngeocoded(t *testing.T) {
	t.Parallel()

	input := append(zigzag(), stop("bad", 6, 123, 69.2))

	result := NewOptimizer(40).Optimize(input)

	assert.Equal(t, "bad", result.Stops[len(result.Stops)-1].MachineID)
	assert.Equal(t, 1, result.UngeocodedStops)
}

func TestNearestNeighborTour_TieBreaksOnLowestIndex(t *testing.T) {
	t.Parallel()

	matrix := [][]float64{
		{0, 1, 1, 1},
		{1, 0, 2, 2},
		{1, 2, 0, 2},
		{1, 2, 2, 0},
	}

	assert.Equal(t, []int{0, 1, 2, 3}, NearestNeighborTour(matrix))
	assert.Nil(t, NearestNeighborTour(nil))
}

func TestImproveTwoOpt_ShortensCrossingTour(t *testing.T) {
	t.Parallel()

	stops := zigzag()
	matrix := BuildDistanceMatrix(stops)
	start := []int{0, 1, 2, 3, 4}

	improved := ImproveTwoOpt(matrix, start)

	assert.Less(t, tourLength(matrix, improved), tourLength(matrix, start))
	assert.Equal(t, 0, improved[0])
	assert.ElementsMatch(t, start, improved)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, start)
}

func TestImproveTwoOpt_ThreeStopOpenTour(t *testing.T) {
	t.Parallel()

	// 0 -> 1 is long, 0 -> 2 -> 1 is short.
	matrix := [][]float64{
		{0, 10, 1},
		{10, 0, 1},
		{1, 1, 0},
	}

	assert.Equal(t, []int{0, 2, 1}, ImproveTwoOpt(matrix, []int{0, 1, 2}))
}

func TestBuildDistanceMatrix_Symmetric(t *testing.T) {
	t.Parallel()

	matrix := BuildDistanceMatrix(zigzag())

	for i := range matrix {
		assert.Zero(t, matrix[i][i])
		for j := range matrix {
			assert.Equal(t, matrix[i][j], matrix[j][i])
		}
	}
}

func TestTourLengthKm(t *testing.T) {
	t.Parallel()

	assert.Zero(t, TourLengthKm([]domain.RouteStop{stop("a", 1, 41.3, 69.2)}))
	assert.InDelta(t, 3.34, TourLengthKm([]domain.RouteStop{
		stop("a", 1, 41.30, 69.20),
		ungeocoded("b", 2),
		stop("c", 3, 41.30, 69.24),
	}), 0.05)
}
