package domain

// RouteStopStatus represents the visit status of a route stop.
type RouteStopStatus string

const (
	RouteStopStatusPending RouteStopStatus = "pending"
	RouteStopStatusVisited RouteStopStatus = "visited"
	RouteStopStatusSkipped RouteStopStatus = "skipped"
)

// RouteStop is one machine to visit on a route.
type RouteStop struct {
	ID        string
	RouteID   string
	MachineID string
	Latitude  *float64 // Nil until geocoded
	Longitude *float64
	Sequence  int // 1-based, unique within the route
	Status    RouteStopStatus
}

// HasCoordinates reports whether the stop can take part in optimization.
func (s RouteStop) HasCoordinates() bool {
	if s.Latitude == nil || s.Longitude == nil {
		return false
	}
	lat, lng := *s.Latitude, *s.Longitude
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Route is an ordered list of stops for a technician.
type Route struct {
	ID             string
	OrganizationID string
	Name           string
	Stops          []RouteStop
}
