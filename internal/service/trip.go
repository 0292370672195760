package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleettrack/internal/domain"
	"fleettrack/internal/geo"
	"fleettrack/internal/redis"
	"fleettrack/internal/repository"
	"fleettrack/internal/tracking"
)

// TripService handles the trip lifecycle and GPS ingestion.
type TripService struct {
	store     repository.Store
	locations redis.LocationStoreInterface // Optional
	cache     redis.CacheStoreInterface    // Optional
	notifier  *NotificationService         // Optional
	locker    *TripLocker
	logger    logrus.FieldLogger

	rules     tracking.Rules
	filter    *tracking.Filter
	stops     *tracking.StopDetector
	anomalies *tracking.AnomalyDetector

	now   func() time.Time
	newID func() string
}

// NewTripService creates a new TripService. locations, cache and notifier may
// be nil.
func NewTripService(
	store repository.Store,
	rules tracking.Rules,
	locations redis.LocationStoreInterface,
	cache redis.CacheStoreInterface,
	notifier *NotificationService,
	logger logrus.FieldLogger,
) *TripService {
	return &TripService{
		store:     store,
		locations: locations,
		cache:     cache,
		notifier:  notifier,
		locker:    NewTripLocker(),
		logger:    logger.WithField("component", "trip_service"),
		rules:     rules,
		filter:    tracking.NewFilter(rules),
		stops:     tracking.NewStopDetector(rules),
		anomalies: tracking.NewAnomalyDetector(rules),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// StartTripRequest contains the parameters for starting a trip.
type StartTripRequest struct {
	OrganizationID string
	EmployeeID     string
	VehicleID      string
	RouteID        string
	TaskType       domain.TaskType // Defaults to mixed
	StartOdometer  *int            // Defaults to the vehicle's current odometer
	TaskIDs        []string
	Notes          string
}

// StartTrip opens a new active trip for an employee.
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (*domain.TripDetails, error) {
	if req.OrganizationID == "" {
		return nil, ErrInvalidOrganizationID
	}
	if req.EmployeeID == "" {
		return nil, ErrInvalidEmployeeID
	}
	if req.TaskType == "" {
		req.TaskType = domain.TaskTypeMixed
	}
	if !req.TaskType.Valid() {
		return nil, ErrInvalidTaskType
	}
	if req.StartOdometer != nil && *req.StartOdometer < 0 {
		return nil, ErrInvalidOdometer
	}

	now := s.now()
	details := &domain.TripDetails{}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Trips.GetActiveByEmployeeID(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmployeeHasActiveTrip
		}

		trip := &domain.Trip{
			ID:             s.newID(),
			OrganizationID: req.OrganizationID,
			EmployeeID:     req.EmployeeID,
			VehicleID:      req.VehicleID,
			RouteID:        req.RouteID,
			TaskType:       req.TaskType,
			Status:         domain.TripStatusActive,
			StartedAt:      now,
			StartOdometer:  req.StartOdometer,
			Notes:          req.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if req.VehicleID != "" {
			vehicle, err := repos.Vehicles.GetByID(ctx, req.VehicleID)
			if errors.Is(err, repository.ErrNotFound) || (err == nil && vehicle.OrganizationID != req.OrganizationID) {
				return ErrVehicleNotFound
			}
			if err != nil {
				return err
			}
			if trip.StartOdometer == nil {
				odometer := vehicle.CurrentOdometer
				trip.StartOdometer = &odometer
			}
		}

		if req.RouteID != "" {
			route, err := repos.Routes.GetByID(ctx, req.RouteID)
			if errors.Is(err, repository.ErrNotFound) || (err == nil && route.OrganizationID != req.OrganizationID) {
				return ErrRouteNotFound
			}
			if err != nil {
				return err
			}
		}

		if err := repos.Trips.Create(ctx, trip); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmployeeHasActiveTrip
			}
			return err
		}

		seen := make(map[string]bool, len(req.TaskIDs))
		for _, taskID := range req.TaskIDs {
			if taskID == "" || seen[taskID] {
				continue
			}
			seen[taskID] = true

			link := &domain.TripTaskLink{
				ID:         s.newID(),
				TripID:     trip.ID,
				TaskID:     taskID,
				Status:     domain.TaskLinkStatusPending,
				LinkedByID: req.EmployeeID,
				CreatedAt:  now,
			}
			if err := repos.TaskLinks.Create(ctx, link); err != nil {
				return err
			}
			details.TaskLinks = append(details.TaskLinks, link)
		}

		details.Trip = trip
		return nil
	})
	if err != nil {
		return nil, err
	}

	trip := details.Trip
	s.logger.WithFields(logrus.Fields{
		"trip_id":     trip.ID,
		"employee_id": trip.EmployeeID,
		"vehicle_id":  trip.VehicleID,
		"task_type":   trip.TaskType,
	}).Info("trip started")

	s.cacheActiveTrip(ctx, trip.EmployeeID, trip.ID)
	s.notifier.NotifyTripStarted(ctx, trip)

	return details, nil
}

// PointSample is a raw GPS reading submitted by a device.
type PointSample struct {
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	Speed      *float64
	Heading    *float64
	CapturedAt time.Time // Defaults to now
}

// AddPoint ingests one GPS sample into an active trip. Filtered samples are
// stored with their reason and leave the trip's aggregates untouched.
func (s *TripService) AddPoint(ctx context.Context, tripID string, sample PointSample) (*domain.TripPoint, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if !geo.ValidCoordinates(sample.Latitude, sample.Longitude) {
		return nil, ErrInvalidLocation
	}
	if sample.Accuracy != nil && (*sample.Accuracy < 0 || math.IsNaN(*sample.Accuracy)) {
		return nil, ErrInvalidAccuracy
	}

	unlock := s.locker.Lock(tripID)
	defer unlock()

	now := s.now()
	point := &domain.TripPoint{
		ID:         s.newID(),
		TripID:     tripID,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Accuracy:   sample.Accuracy,
		Speed:      sample.Speed,
		Heading:    sample.Heading,
		CapturedAt: sample.CapturedAt,
		CreatedAt:  now,
	}
	if point.CapturedAt.IsZero() {
		point.CapturedAt = now
	}

	var (
		trip     *domain.Trip
		detected []*domain.TripAnomaly
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		trip, err = repos.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if !trip.IsActive() {
			return ErrTripNotActive
		}

		prev, err := repos.Points.GetLastAccepted(ctx, tripID)
		if err != nil {
			return err
		}

		verdict := s.filter.Classify(point, prev)
		if !verdict.Accepted {
			point.IsFiltered = true
			point.FilterReason = verdict.Reason
			return repos.Points.Create(ctx, point)
		}

		point.DistanceFromPrevMeters = verdict.DistanceMeters
		if err := repos.Points.Create(ctx, point); err != nil {
			return err
		}

		if !trip.HasStartCoordinates() {
			lat, lng := point.Latitude, point.Longitude
			trip.StartLatitude = &lat
			trip.StartLongitude = &lng
		}
		trip.CalculatedDistanceMeters += verdict.DistanceMeters
		trip.TotalPoints++
		trip.LastLocationUpdate = now
		trip.LiveLocationActive = true

		open, err := s.detectStops(ctx, repos, trip)
		if err != nil {
			return err
		}

		detected, err = s.detectAnomalies(ctx, repos, trip, point, prev, verdict.SpeedKmh, open)
		if err != nil {
			return err
		}

		trip.UpdatedAt = now
		return repos.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	if !point.IsFiltered {
		s.publishLocation(ctx, trip, point.Latitude, point.Longitude)
	}
	for _, anomaly := range detected {
		s.logger.WithFields(logrus.Fields{
			"trip_id":  trip.ID,
			"type":     anomaly.Type,
			"severity": anomaly.Severity,
		}).Warn("anomaly detected")
		s.notifier.NotifyAnomaly(ctx, trip, anomaly)
	}

	return point, nil
}

// detectStops feeds the recent point history to the stop detector and applies
// its decision. It returns the stop the vehicle is at after this point, if any.
func (s *TripService) detectStops(ctx context.Context, repos repository.Repositories, trip *domain.Trip) (*domain.TripStop, error) {
	open, err := repos.Stops.GetOpen(ctx, trip.ID)
	if err != nil {
		return nil, err
	}

	var since time.Time
	if open == nil {
		lastClosed, err := repos.Stops.GetLastClosed(ctx, trip.ID)
		if err != nil {
			return nil, err
		}
		if lastClosed != nil {
			since = lastClosed.EndedAt
		}
	}

	window, err := repos.Points.ListRecentAccepted(ctx, trip.ID, s.rules.PointWindow)
	if err != nil {
		return nil, err
	}

	decision := s.stops.Evaluate(window, open, since)
	switch {
	case decision.Close:
		open.Close(decision.ClosedAt)
		if err := repos.Stops.Update(ctx, open); err != nil {
			return nil, err
		}
		trip.TotalStops++
		return nil, nil

	case decision.Open != nil:
		stop := decision.Open
		stop.ID = s.newID()
		stop.TripID = trip.ID
		if err := repos.Stops.Create(ctx, stop); err != nil {
			return nil, err
		}
		return stop, nil

	case open != nil:
		open.PointsCount++
		if err := repos.Stops.Update(ctx, open); err != nil {
			return nil, err
		}
		return open, nil
	}

	return nil, nil
}

func (s *TripService) detectAnomalies(
	ctx context.Context,
	repos repository.Repositories,
	trip *domain.Trip,
	point, prev *domain.TripPoint,
	speedKmh float64,
	open *domain.TripStop,
) ([]*domain.TripAnomaly, error) {
	input := tracking.AnomalyInput{
		TaskType: trip.TaskType,
		Point:    point,
		Prev:     prev,
		SpeedKmh: speedKmh,
		OpenStop: open,
		RouteID:  trip.RouteID,
	}

	if trip.RouteID != "" && prev != nil {
		route, err := repos.Routes.GetByID(ctx, trip.RouteID)
		switch {
		case errors.Is(err, repository.ErrNotFound), err == nil && route.OrganizationID != trip.OrganizationID:
			s.logger.WithField("route_id", trip.RouteID).Warn("planned route not found")
		case err != nil:
			return nil, err
		default:
			input.PlannedPath = plannedPath(route)
		}
	}

	var created []*domain.TripAnomaly
	for _, finding := range s.anomalies.Evaluate(input) {
		anomaly := domain.NewTripAnomaly(s.newID(), trip.ID, finding.Severity, finding.Details,
			point.Latitude, point.Longitude, point.CapturedAt)
		if err := repos.Anomalies.Create(ctx, anomaly); err != nil {
			return nil, err
		}
		trip.TotalAnomalies++
		created = append(created, anomaly)

		if anomaly.Type == domain.AnomalyTypeExcessiveIdle && open != nil {
			open.IdleFlagged = true
			if err := repos.Stops.Update(ctx, open); err != nil {
				return nil, err
			}
		}
	}

	return created, nil
}

func plannedPath(route *domain.Route) []geo.Point {
	var path []geo.Point
	for _, stop := range route.Stops {
		if stop.HasCoordinates() {
			path = append(path, geo.Point{Lat: *stop.Latitude, Lng: *stop.Longitude})
		}
	}
	return path
}

// CompleteTripRequest contains the optional data recorded when a trip ends.
type CompleteTripRequest struct {
	EndOdometer *int
	Notes       string
}

// EndTrip completes an active trip.
func (s *TripService) EndTrip(ctx context.Context, tripID string, req CompleteTripRequest, userID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.EndOdometer != nil && *req.EndOdometer < 0 {
		return nil, ErrInvalidOdometer
	}

	unlock := s.locker.Lock(tripID)
	defer unlock()

	var trip *domain.Trip
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		trip, err = repos.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if !trip.IsActive() {
			return ErrTripNotActive
		}

		if req.EndOdometer != nil {
			if trip.StartOdometer != nil && *req.EndOdometer < *trip.StartOdometer {
				return ErrEndOdometerBelowStart
			}
			trip.EndOdometer = req.EndOdometer
		}

		now := s.now()
		if err := s.closeOpenStop(ctx, repos, trip, now); err != nil {
			return err
		}

		last, err := repos.Points.GetLastAccepted(ctx, tripID)
		if err != nil {
			return err
		}
		if last != nil {
			lat, lng := last.Latitude, last.Longitude
			trip.EndLatitude = &lat
			trip.EndLongitude = &lng
		}

		trip.Status = domain.TripStatusCompleted
		trip.EndedAt = now
		trip.LiveLocationActive = false
		trip.CompletedByID = userID
		trip.Notes = appendNote(trip.Notes, req.Notes)
		trip.UpdatedAt = now

		return repos.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":         trip.ID,
		"employee_id":     trip.EmployeeID,
		"distance_meters": trip.CalculatedDistanceMeters,
		"total_points":    trip.TotalPoints,
		"total_stops":     trip.TotalStops,
	}).Info("trip completed")

	s.clearLiveState(ctx, trip)
	s.notifier.NotifyTripEnded(ctx, trip)

	return trip, nil
}

// CancelTrip cancels an active trip. The reason is appended to the trip's notes.
func (s *TripService) CancelTrip(ctx context.Context, tripID, reason, userID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	unlock := s.locker.Lock(tripID)
	defer unlock()

	var trip *domain.Trip
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		trip, err = repos.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if !trip.IsActive() {
			return ErrTripNotActive
		}

		now := s.now()
		if err := s.closeOpenStop(ctx, repos, trip, now); err != nil {
			return err
		}

		trip.Status = domain.TripStatusCancelled
		trip.EndedAt = now
		trip.LiveLocationActive = false
		trip.CancelledByID = userID
		if reason != "" {
			trip.Notes = appendNote(trip.Notes, "Cancelled: "+reason)
		}
		trip.UpdatedAt = now

		return repos.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":     trip.ID,
		"employee_id": trip.EmployeeID,
		"reason":      reason,
	}).Info("trip cancelled")

	s.clearLiveState(ctx, trip)
	s.notifier.NotifyTripCancelled(ctx, trip, reason)

	return trip, nil
}

// closeOpenStop ends the trip's open stop, if any, at the last location
// update and counts it.
func (s *TripService) closeOpenStop(ctx context.Context, repos repository.Repositories, trip *domain.Trip, now time.Time) error {
	open, err := repos.Stops.GetOpen(ctx, trip.ID)
	if err != nil || open == nil {
		return err
	}

	closedAt := now
	if last, err := repos.Points.GetLastAccepted(ctx, trip.ID); err != nil {
		return err
	} else if last != nil {
		closedAt = last.CapturedAt
	}

	open.Close(closedAt)
	if err := repos.Stops.Update(ctx, open); err != nil {
		return err
	}
	trip.TotalStops++
	return nil
}

func appendNote(notes, note string) string {
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return notes
	case notes == "":
		return note
	default:
		return notes + "\n" + note
	}
}

// GetActiveTrip returns the employee's active trip, or nil if there is none.
func (s *TripService) GetActiveTrip(ctx context.Context, employeeID string) (*domain.Trip, error) {
	if employeeID == "" {
		return nil, ErrInvalidEmployeeID
	}

	repos := s.store.Repos()

	if s.cache != nil {
		tripID, err := s.cache.GetActiveTripID(ctx, employeeID)
		if err != nil {
			s.logger.WithError(err).Warn("active trip cache lookup failed")
		} else if tripID != "" {
			trip, err := repos.Trips.GetByID(ctx, tripID)
			if err == nil && trip.IsActive() {
				return trip, nil
			}
		}
	}

	trip, err := repos.Trips.GetActiveByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if trip != nil {
		s.cacheActiveTrip(ctx, employeeID, trip.ID)
	}
	return trip, nil
}

// GetTripByID retrieves a trip by ID.
func (s *TripService) GetTripByID(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.store.Repos().Trips.GetByID(ctx, tripID)
}

// GetTripDetails retrieves a trip together with its stops, anomalies and task links.
func (s *TripService) GetTripDetails(ctx context.Context, tripID string) (*domain.TripDetails, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	repos := s.store.Repos()
	trip, err := repos.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	stops, err := repos.Stops.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	anomalies, err := repos.Anomalies.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	links, err := repos.TaskLinks.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	return &domain.TripDetails{
		Trip:      trip,
		Stops:     stops,
		Anomalies: anomalies,
		TaskLinks: links,
	}, nil
}

// ListTrips retrieves trips of an organization matching the filter.
func (s *TripService) ListTrips(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	if filter.OrganizationID == "" {
		return nil, ErrInvalidOrganizationID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.store.Repos().Trips.List(ctx, filter)
}

// TripTrack is the accepted path of a trip.
type TripTrack struct {
	TripID   string
	Points   []*domain.TripPoint
	Polyline string
}

// GetTripTrack returns the accepted points of a trip and their encoded polyline.
func (s *TripService) GetTripTrack(ctx context.Context, tripID string) (*TripTrack, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	repos := s.store.Repos()
	if _, err := repos.Trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}

	points, err := repos.Points.ListAccepted(ctx, tripID)
	if err != nil {
		return nil, err
	}

	path := make([]geo.Point, 0, len(points))
	for _, p := range points {
		path = append(path, geo.Point{Lat: p.Latitude, Lng: p.Longitude})
	}

	return &TripTrack{
		TripID:   tripID,
		Points:   points,
		Polyline: geo.EncodePolyline(path),
	}, nil
}

// LinkTask attaches an external task to an active trip.
func (s *TripService) LinkTask(ctx context.Context, tripID, taskID, userID string) (*domain.TripTaskLink, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if taskID == "" {
		return nil, ErrInvalidTaskID
	}

	unlock := s.locker.Lock(tripID)
	defer unlock()

	link := &domain.TripTaskLink{
		ID:         s.newID(),
		TripID:     tripID,
		TaskID:     taskID,
		Status:     domain.TaskLinkStatusPending,
		LinkedByID: userID,
		CreatedAt:  s.now(),
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		trip, err := repos.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if !trip.IsActive() {
			return ErrTripNotActive
		}

		if err := repos.TaskLinks.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrTaskAlreadyLinked
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return link, nil
}

// CompleteLinkedTask marks a linked task of an active trip as completed. The
// first completion of a link counts one more visited machine on the trip.
func (s *TripService) CompleteLinkedTask(ctx context.Context, tripID, taskID, notes, userID string) (*domain.TripTaskLink, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if taskID == "" {
		return nil, ErrInvalidTaskID
	}

	unlock := s.locker.Lock(tripID)
	defer unlock()

	var link *domain.TripTaskLink
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		trip, err := repos.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if !trip.IsActive() {
			return ErrTripNotActive
		}

		link, err = repos.TaskLinks.Get(ctx, tripID, taskID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskLinkNotFound
		}
		if err != nil {
			return err
		}

		firstCompletion := link.Status != domain.TaskLinkStatusCompleted
		now := s.now()

		link.Status = domain.TaskLinkStatusCompleted
		link.CompletedAt = now
		if notes != "" {
			link.Notes = notes
		}
		if err := repos.TaskLinks.Update(ctx, link); err != nil {
			return err
		}

		if !firstCompletion {
			return nil
		}

		trip.VisitedMachinesCount++
		trip.UpdatedAt = now
		return repos.Trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id": tripID,
		"task_id": taskID,
		"user_id": userID,
	}).Info("linked task completed")

	return link, nil
}

// FindNearbyLiveTrips returns an organization's active trips last seen within
// radiusKm.
func (s *TripService) FindNearbyLiveTrips(ctx context.Context, organizationID string, lat, lng, radiusKm float64) ([]redis.TripLocation, error) {
	if organizationID == "" {
		return nil, ErrInvalidOrganizationID
	}
	if !geo.ValidCoordinates(lat, lng) {
		return nil, ErrInvalidLocation
	}
	if radiusKm <= 0 || math.IsNaN(radiusKm) {
		return nil, ErrInvalidRadius
	}
	if s.locations == nil {
		return []redis.TripLocation{}, nil
	}
	return s.locations.FindNearbyTrips(ctx, organizationID, lat, lng, radiusKm)
}

func (s *TripService) publishLocation(ctx context.Context, trip *domain.Trip, lat, lng float64) {
	if s.locations == nil {
		return
	}
	if err := s.locations.UpdateTripLocation(ctx, trip.OrganizationID, trip.ID, lat, lng); err != nil {
		s.logger.WithError(err).WithField("trip_id", trip.ID).Warn("publish live location")
	}
}

func (s *TripService) cacheActiveTrip(ctx context.Context, employeeID, tripID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetActiveTripID(ctx, employeeID, tripID); err != nil {
		s.logger.WithError(err).WithField("employee_id", employeeID).Warn("cache active trip")
	}
}

func (s *TripService) clearLiveState(ctx context.Context, trip *domain.Trip) {
	if s.locations != nil {
		if err := s.locations.RemoveTripLocation(ctx, trip.OrganizationID, trip.ID); err != nil {
			s.logger.WithError(err).WithField("trip_id", trip.ID).Warn("remove live location")
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateActiveTrip(ctx, trip.EmployeeID); err != nil {
			s.logger.WithError(err).WithField("employee_id", trip.EmployeeID).Warn("invalidate active trip")
		}
	}
}
