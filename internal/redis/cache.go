package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveTripCacheTTL bounds how long a stale active trip id can be served.
const ActiveTripCacheTTL = 60 * time.Second

const activeTripCachePrefix = "cache:active_trip:"

// CacheStore caches the active trip id per employee.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client, ttl: ActiveTripCacheTTL}
}

// GetActiveTripID returns the cached active trip id, or "" on a cache miss.
func (s *CacheStore) GetActiveTripID(ctx context.Context, employeeID string) (string, error) {
	tripID, err := s.client.Get(ctx, activeTripCachePrefix+employeeID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return tripID, nil
}

// SetActiveTripID caches the active trip id of an employee.
func (s *CacheStore) SetActiveTripID(ctx context.Context, employeeID, tripID string) error {
	return s.client.Set(ctx, activeTripCachePrefix+employeeID, tripID, s.ttl).Err()
}

// InvalidateActiveTrip removes the cached active trip id of an employee.
func (s *CacheStore) InvalidateActiveTrip(ctx context.Context, employeeID string) error {
	return s.client.Del(ctx, activeTripCachePrefix+employeeID).Err()
}
