package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for live trip positions.
type LocationStoreInterface interface {
	UpdateTripLocation(ctx context.Context, organizationID, tripID string, lat, lng float64) error
	FindNearbyTrips(ctx context.Context, organizationID string, lat, lng, radiusKm float64) ([]TripLocation, error)
	RemoveTripLocation(ctx context.Context, organizationID, tripID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireVehicleLock(ctx context.Context, vehicleID string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// CacheStoreInterface defines the interface for the active trip cache.
type CacheStoreInterface interface {
	GetActiveTripID(ctx context.Context, employeeID string) (string, error)
	SetActiveTripID(ctx context.Context, employeeID, tripID string) error
	InvalidateActiveTrip(ctx context.Context, employeeID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)
