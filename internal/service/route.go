package service

import (
	"context"
	"errors"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"fleettrack/internal/domain"
	"fleettrack/internal/geo"
	"fleettrack/internal/repository"
	"fleettrack/internal/routing"
)

// RouteService reorders route stops to shorten the visiting path.
type RouteService struct {
	store     repository.Store
	optimizer *routing.Optimizer
	logger    logrus.FieldLogger
}

// NewRouteService creates a new RouteService.
func NewRouteService(store repository.Store, averageSpeedKmh float64, logger logrus.FieldLogger) *RouteService {
	return &RouteService{
		store:     store,
		optimizer: routing.NewOptimizer(averageSpeedKmh),
		logger:    logger.WithField("component", "route_service"),
	}
}

// OptimizeRouteResponse contains the result of optimizing a route.
type OptimizeRouteResponse struct {
	RouteID  string
	Result   routing.Result
	Polyline string // Encoded path of the geocoded stops in visiting order
	Applied  bool
}

// OptimizeRoute computes a shorter visiting order for a route. When apply is
// set and the order was optimized, the new sequences are persisted; no other
// stop field changes.
func (s *RouteService) OptimizeRoute(ctx context.Context, organizationID, routeID string, apply bool) (*OptimizeRouteResponse, error) {
	if organizationID == "" {
		return nil, ErrInvalidOrganizationID
	}
	if routeID == "" {
		return nil, ErrInvalidRouteID
	}

	route, err := s.store.Repos().Routes.GetByID(ctx, routeID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && route.OrganizationID != organizationID) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}

	segment := newrelic.FromContext(ctx).StartSegment("routing/optimize")
	result := s.optimizer.Optimize(route.Stops)
	segment.End()

	resp := &OptimizeRouteResponse{
		RouteID:  route.ID,
		Result:   result,
		Polyline: geo.EncodePolyline(result.Path),
	}

	log := s.logger.WithFields(logrus.Fields{
		"route_id":   route.ID,
		"stops":      len(route.Stops),
		"optimized":  result.Optimized,
		"savings_km": result.SavingsKm,
		"ungeocoded": result.UngeocodedStops,
		"apply":      apply,
	})

	if apply && result.Optimized && sequenceChanged(route.Stops, result.Stops) {
		err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return repos.Routes.UpdateStopSequences(ctx, route.ID, result.Stops)
		})
		if err != nil {
			return nil, err
		}
		resp.Applied = true
	}

	log.WithField("applied", resp.Applied).Info("route optimized")
	return resp, nil
}

func sequenceChanged(before, after []domain.RouteStop) bool {
	seq := make(map[string]int, len(before))
	for _, stop := range before {
		seq[stop.ID] = stop.Sequence
	}
	for _, stop := range after {
		if seq[stop.ID] != stop.Sequence {
			return true
		}
	}
	return false
}
