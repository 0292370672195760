// Package geo holds the great-circle math shared by the trip and route engines.
package geo

import (
	"math"

	"github.com/twpayne/go-polyline"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the trip engine.
	EarthRadiusMeters = 6371000.0
	// EarthRadiusKm is the mean Earth radius used by the route engine.
	EarthRadiusKm = 6371.0
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// ValidCoordinates reports whether lat/lng are finite and within range.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// centralAngle returns the haversine central angle in radians.
func centralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	if a > 1 {
		a = 1
	}
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceMeters returns the haversine distance between two coordinates in meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return EarthRadiusMeters * centralAngle(lat1, lon1, lat2, lon2)
}

// DistanceKm returns the haversine distance between two coordinates in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return EarthRadiusKm * centralAngle(lat1, lon1, lat2, lon2)
}

// Between returns the distance between two points in meters.
func Between(a, b Point) float64 {
	return DistanceMeters(a.Lat, a.Lng, b.Lat, b.Lng)
}

// PointToSegmentMeters returns the shortest distance from p to the great-circle
// segment a-b. Projections falling outside the segment snap to the nearest end.
func PointToSegmentMeters(p, a, b Point) float64 {
	toStart := Between(p, a)
	toEnd := Between(p, b)
	segment := Between(a, b)

	if segment < 1 {
		return math.Min(toStart, toEnd)
	}

	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lng * math.Pi / 180
	lat3 := p.Lat * math.Pi / 180
	lon3 := p.Lng * math.Pi / 180

	d13 := toStart / EarthRadiusMeters
	theta12 := bearing(lat1, lon1, lat2, lon2)
	theta13 := bearing(lat1, lon1, lat3, lon3)

	dxt := math.Asin(math.Sin(d13) * math.Sin(theta13-theta12))

	// Behind the start of the segment.
	if math.Cos(theta13-theta12) < 0 {
		return toStart
	}

	cosRatio := math.Cos(d13) / math.Cos(dxt)
	if cosRatio > 1 {
		cosRatio = 1
	}
	along := math.Acos(cosRatio) * EarthRadiusMeters
	if along > segment {
		return toEnd
	}

	return math.Abs(dxt) * EarthRadiusMeters
}

// PointToPathMeters returns the shortest distance from p to the polyline
// through path. It returns +Inf for an empty path.
func PointToPathMeters(p Point, path []Point) float64 {
	switch len(path) {
	case 0:
		return math.Inf(1)
	case 1:
		return Between(p, path[0])
	}

	best := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		if d := PointToSegmentMeters(p, path[i], path[i+1]); d < best {
			best = d
		}
	}
	return best
}

func bearing(lat1, lon1, lat2, lon2 float64) float64 {
	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	return math.Atan2(y, x)
}

// EncodePolyline encodes the path in the Google encoded polyline format.
func EncodePolyline(path []Point) string {
	if len(path) == 0 {
		return ""
	}
	coords := make([][]float64, len(path))
	for i, p := range path {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}
