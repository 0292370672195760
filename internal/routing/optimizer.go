// Package routing reorders route stops to approximate the shortest visiting
// path. It is a pure, CPU-bound computation over great-circle distances.
package routing

import (
	"math"

	"fleettrack/internal/domain"
	"fleettrack/internal/geo"
)

const (
	// DefaultAverageSpeedKmh is the assumed average urban speed used to turn
	// distance savings into time savings.
	DefaultAverageSpeedKmh = 40.0

	// improvementEpsilonKm is the minimum gain a 2-opt move must bring.
	// Smaller gains are floating-point noise and would make passes oscillate.
	improvementEpsilonKm = 1e-9

	// minStopsToOptimize is the smallest number of geocoded stops for which
	// reordering can change anything.
	minStopsToOptimize = 3
)

// Result is the outcome of optimizing a route.
type Result struct {
	Stops                     []domain.RouteStop // All stops, renumbered in visiting order
	Optimized                 bool
	OriginalDistanceKm        float64
	OptimizedDistanceKm       float64
	SavingsKm                 float64
	EstimatedTimeSavedMinutes float64
	GeocodedStops             int
	UngeocodedStops           int
	Path                      []geo.Point // Geocoded stops in visiting order
}

// Optimizer runs nearest-neighbour construction followed by 2-opt.
type Optimizer struct {
	averageSpeedKmh float64
}

// NewOptimizer creates an Optimizer. A non-positive speed falls back to
// DefaultAverageSpeedKmh.
func NewOptimizer(averageSpeedKmh float64) *Optimizer {
	if averageSpeedKmh <= 0 {
		averageSpeedKmh = DefaultAverageSpeedKmh
	}
	return &Optimizer{averageSpeedKmh: averageSpeedKmh}
}

// Optimize reorders stops. The input order is the current visiting order.
// Stops without coordinates are kept after the optimized ones, in their
// original relative order. The input slice is not modified.
func (o *Optimizer) Optimize(stops []domain.RouteStop) Result {
	var geocoded, ungeocoded []domain.RouteStop
	for _, s := range stops {
		if s.HasCoordinates() {
			geocoded = append(geocoded, s)
		} else {
			ungeocoded = append(ungeocoded, s)
		}
	}

	result := Result{
		GeocodedStops:   len(geocoded),
		UngeocodedStops: len(ungeocoded),
	}

	if len(geocoded) < minStopsToOptimize {
		result.Stops = append([]domain.RouteStop(nil), stops...)
		result.Path = pathOf(geocoded)
		if len(geocoded) > 1 {
			result.OriginalDistanceKm = tourLength(BuildDistanceMatrix(geocoded), identity(len(geocoded)))
			result.OptimizedDistanceKm = result.OriginalDistanceKm
		}
		return result
	}

	matrix := BuildDistanceMatrix(geocoded)
	original := identity(len(geocoded))
	tour := ImproveTwoOpt(matrix, NearestNeighborTour(matrix))

	result.OriginalDistanceKm = tourLength(matrix, original)
	result.OptimizedDistanceKm = tourLength(matrix, tour)

	// The heuristic does not guarantee beating the input order.
	if result.OptimizedDistanceKm > result.OriginalDistanceKm {
		tour = original
		result.OptimizedDistanceKm = result.OriginalDistanceKm
	}

	ordered := make([]domain.RouteStop, 0, len(stops))
	for _, idx := range tour {
		ordered = append(ordered, geocoded[idx])
	}
	result.Path = pathOf(ordered)
	ordered = append(ordered, ungeocoded...)
	for i := range ordered {
		ordered[i].Sequence = i + 1
	}

	result.Stops = ordered
	result.Optimized = true
	result.SavingsKm = math.Max(0, result.OriginalDistanceKm-result.OptimizedDistanceKm)
	result.EstimatedTimeSavedMinutes = result.SavingsKm / o.averageSpeedKmh * 60

	return result
}

// BuildDistanceMatrix returns the symmetric matrix of great-circle distances
// in kilometers between every pair of stops. Stops must have coordinates.
func BuildDistanceMatrix(stops []domain.RouteStop) [][]float64 {
	n := len(stops)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := geo.DistanceKm(*stops[i].Latitude, *stops[i].Longitude, *stops[j].Latitude, *stops[j].Longitude)
			matrix[i][j] = d
			matrix[j][i] = d
		}
	}

	return matrix
}

// NearestNeighborTour builds a tour starting at index 0 that always moves to
// the closest unvisited stop. Ties go to the lowest index.
func NearestNeighborTour(matrix [][]float64) []int {
	n := len(matrix)
	if n == 0 {
		return nil
	}

	visited := make([]bool, n)
	tour := make([]int, 0, n)
	current := 0
	visited[current] = true
	tour = append(tour, current)

	for len(tour) < n {
		best := -1
		bestDistance := math.Inf(1)
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			// Strict comparison keeps the first-encountered candidate on ties.
			if d := matrix[current][candidate]; d < bestDistance {
				best = candidate
				bestDistance = d
			}
		}

		visited[best] = true
		tour = append(tour, best)
		current = best
	}

	return tour
}

// ImproveTwoOpt applies 2-opt moves to an open tour until no move shortens it
// by more than improvementEpsilonKm. The first stop stays in place. The input
// slice is not modified.
func ImproveTwoOpt(matrix [][]float64, tour []int) []int {
	n := len(tour)
	improved := append([]int(nil), tour...)

	for {
		changed := false
		for i := 0; i < n-2; i++ {
			for j := i + 2; j < n; j++ {
				a, b := improved[i], improved[i+1]
				c := improved[j]

				// Replace edges (a,b) and (c,d) with (a,c) and (b,d). On the last
				// stop there is no (c,d) edge in an open tour.
				before := matrix[a][b]
				after := matrix[a][c]
				if j+1 < n {
					d := improved[j+1]
					before += matrix[c][d]
					after += matrix[b][d]
				}

				if before-after > improvementEpsilonKm {
					reverse(improved, i+1, j)
					changed = true
				}
			}
		}
		if !changed {
			return improved
		}
	}
}

// TourLengthKm returns the length of visiting stops in their given order.
func TourLengthKm(stops []domain.RouteStop) float64 {
	var geocoded []domain.RouteStop
	for _, s := range stops {
		if s.HasCoordinates() {
			geocoded = append(geocoded, s)
		}
	}
	if len(geocoded) < 2 {
		return 0
	}
	return tourLength(BuildDistanceMatrix(geocoded), identity(len(geocoded)))
}

func tourLength(matrix [][]float64, tour []int) float64 {
	var total float64
	for i := 0; i+1 < len(tour); i++ {
		total += matrix[tour[i]][tour[i+1]]
	}
	return total
}

func reverse(tour []int, from, to int) {
	for from < to {
		tour[from], tour[to] = tour[to], tour[from]
		from++
		to--
	}
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func pathOf(stops []domain.RouteStop) []geo.Point {
	path := make([]geo.Point, 0, len(stops))
	for _, s := range stops {
		if s.HasCoordinates() {
			path = append(path, geo.Point{Lat: *s.Latitude, Lng: *s.Longitude})
		}
	}
	return path
}
