package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const tripLocationKeyPrefix = "trips:live:"

// tripLocationKey returns the geo index of one organization.
func tripLocationKey(organizationID string) string {
	return tripLocationKeyPrefix + organizationID
}

// TripLocation is the last known position of an active trip.
type TripLocation struct {
	TripID     string
	Lat        float64
	Lng        float64
	DistanceKm float64
}

// LocationStore keeps live trip positions in one Redis geo index per
// organization.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateTripLocation stores a trip's latest position using GEOADD.
func (s *LocationStore) UpdateTripLocation(ctx context.Context, organizationID, tripID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, tripLocationKey(organizationID), &redis.GeoLocation{
		Name:      tripID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyTrips returns an organization's live trips within radiusKm,
// nearest first.
func (s *LocationStore) FindNearbyTrips(ctx context.Context, organizationID string, lat, lng, radiusKm float64) ([]TripLocation, error) {
	results, err := s.client.GeoRadius(ctx, tripLocationKey(organizationID), lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]TripLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, TripLocation{
			TripID:     r.Name,
			Lat:        r.Latitude,
			Lng:        r.Longitude,
			DistanceKm: r.Dist,
		})
	}

	return locations, nil
}

// RemoveTripLocation drops a trip from the geo index.
func (s *LocationStore) RemoveTripLocation(ctx context.Context, organizationID, tripID string) error {
	return s.client.ZRem(ctx, tripLocationKey(organizationID), tripID).Err()
}
