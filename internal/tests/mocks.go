package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"fleettrack/internal/domain"
	"fleettrack/internal/redis"
	"fleettrack/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// MockStore is an in-memory repository.Store. All tables share one mutex;
// entities are copied on the way in and out so services never alias stored
// state. Transactions are not isolated and do not roll back.
type MockStore struct {
	mu              sync.RWMutex
	trips           map[string]*domain.Trip
	points          map[string][]*domain.TripPoint // By trip, insertion order
	stops           map[string][]*domain.TripStop  // By trip, insertion order
	anomalies       []*domain.TripAnomaly
	links           []*domain.TripTaskLink
	vehicles        map[string]*domain.Vehicle
	reconciliations []*domain.TripReconciliation
	routes          map[string]*domain.Route

	// Counters for verification
	TxCallCount                  int32
	PointCreateCallCount         int32
	UpdateStopSequencesCallCount int32

	// Error injection
	TxError          error
	PointCreateError error
}

// NewMockStore creates a new empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		trips:    make(map[string]*domain.Trip),
		points:   make(map[string][]*domain.TripPoint),
		stops:    make(map[string][]*domain.TripStop),
		vehicles: make(map[string]*domain.Vehicle),
		routes:   make(map[string]*domain.Route),
	}
}

func (m *MockStore) Repos() repository.Repositories {
	return repository.Repositories{
		Trips:           mockTrips{m},
		Points:          mockPoints{m},
		Stops:           mockStops{m},
		Anomalies:       mockAnomalies{m},
		TaskLinks:       mockTaskLinks{m},
		Vehicles:        mockVehicles{m},
		Reconciliations: mockReconciliations{m},
		Routes:          mockRoutes{m},
	}
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	atomic.AddInt32(&m.TxCallCount, 1)
	if m.TxError != nil {
		return m.TxError
	}
	return fn(ctx, m.Repos())
}

// AddTrip adds a trip to the mock store.
func (m *MockStore) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
}

// AddVehicle adds a vehicle to the mock store.
func (m *MockStore) AddVehicle(vehicle *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *vehicle
	m.vehicles[vehicle.ID] = &copy
}

// AddRoute adds a route with its stops to the mock store.
func (m *MockStore) AddRoute(route *domain.Route) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[route.ID] = copyRoute(route)
}

// AddAnomaly adds an anomaly to the mock store.
func (m *MockStore) AddAnomaly(anomaly *domain.TripAnomaly) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *anomaly
	m.anomalies = append(m.anomalies, &copy)
}

// GetTrip returns a trip for test assertions.
func (m *MockStore) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil
	}
	copy := *trip
	return &copy
}

// GetVehicle returns a vehicle for test assertions.
func (m *MockStore) GetVehicle(id string) *domain.Vehicle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil
	}
	copy := *vehicle
	return &copy
}

// GetRoute returns a route for test assertions.
func (m *MockStore) GetRoute(id string) *domain.Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	route, ok := m.routes[id]
	if !ok {
		return nil
	}
	return copyRoute(route)
}

// Points returns all stored points of a trip, filtered ones included.
func (m *MockStore) Points(tripID string) []domain.TripPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.TripPoint, 0, len(m.points[tripID]))
	for _, p := range m.points[tripID] {
		result = append(result, *p)
	}
	return result
}

// Stops returns all stops of a trip.
func (m *MockStore) Stops(tripID string) []domain.TripStop {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.TripStop, 0, len(m.stops[tripID]))
	for _, s := range m.stops[tripID] {
		result = append(result, *s)
	}
	return result
}

// Anomalies returns all anomalies of a trip.
func (m *MockStore) Anomalies(tripID string) []domain.TripAnomaly {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.TripAnomaly
	for _, a := range m.anomalies {
		if a.TripID == tripID {
			result = append(result, *a)
		}
	}
	return result
}

// CountActiveTripsForEmployee counts active trips of an employee.
func (m *MockStore) CountActiveTripsForEmployee(employeeID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, t := range m.trips {
		if t.EmployeeID == employeeID && t.Status == domain.TripStatusActive {
			count++
		}
	}
	return count
}

// CountReconciliations counts stored reconciliations.
func (m *MockStore) CountReconciliations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reconciliations)
}

func copyRoute(route *domain.Route) *domain.Route {
	copy := *route
	copy.Stops = append([]domain.RouteStop(nil), route.Stops...)
	return &copy
}

// acceptedLocked returns the accepted points of a trip oldest first, ordered
// like the SQL repository: captured_at, then created_at. Caller holds mu.
func (m *MockStore) acceptedLocked(tripID string) []*domain.TripPoint {
	var accepted []*domain.TripPoint
	for _, p := range m.points[tripID] {
		if !p.IsFiltered {
			accepted = append(accepted, p)
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool {
		a, b := accepted[i], accepted[j]
		if !a.CapturedAt.Equal(b.CapturedAt) {
			return a.CapturedAt.Before(b.CapturedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return accepted
}

// ──────────────────────────────────────────────
// TRIPS
// ──────────────────────────────────────────────

type mockTrips struct{ m *MockStore }

func (r mockTrips) Create(ctx context.Context, trip *domain.Trip) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if trip.Status == domain.TripStatusActive {
		for _, t := range r.m.trips {
			if t.EmployeeID == trip.EmployeeID && t.Status == domain.TripStatusActive {
				return repository.ErrDuplicate
			}
		}
	}
	copy := *trip
	r.m.trips[trip.ID] = &copy
	return nil
}

func (r mockTrips) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	trip, ok := r.m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (r mockTrips) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return r.GetByID(ctx, id)
}

func (r mockTrips) Update(ctx context.Context, trip *domain.Trip) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *trip
	r.m.trips[trip.ID] = &copy
	return nil
}

func (r mockTrips) GetActiveByEmployeeID(ctx context.Context, employeeID string) (*domain.Trip, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, t := range r.m.trips {
		if t.EmployeeID == employeeID && t.Status == domain.TripStatusActive {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (r mockTrips) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var result []*domain.Trip
	for _, t := range r.m.trips {
		if filter.OrganizationID != "" && t.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.EmployeeID != "" && t.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.VehicleID != "" && t.VehicleID != filter.VehicleID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		copy := *t
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r mockTrips) SumDistanceByVehicleSince(ctx context.Context, vehicleID string, since time.Time) (float64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var total float64
	for _, t := range r.m.trips {
		if t.VehicleID == vehicleID && t.StartedAt.After(since) {
			total += t.CalculatedDistanceMeters
		}
	}
	return total, nil
}

// ──────────────────────────────────────────────
// POINTS
// ──────────────────────────────────────────────

type mockPoints struct{ m *MockStore }

func (r mockPoints) Create(ctx context.Context, point *domain.TripPoint) error {
	atomic.AddInt32(&r.m.PointCreateCallCount, 1)
	if r.m.PointCreateError != nil {
		return r.m.PointCreateError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copy := *point
	r.m.points[point.TripID] = append(r.m.points[point.TripID], &copy)
	return nil
}

func (r mockPoints) GetLastAccepted(ctx context.Context, tripID string) (*domain.TripPoint, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	accepted := r.m.acceptedLocked(tripID)
	if len(accepted) == 0 {
		return nil, nil
	}
	copy := *accepted[len(accepted)-1]
	return &copy, nil
}

func (r mockPoints) ListRecentAccepted(ctx context.Context, tripID string, limit int) ([]*domain.TripPoint, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	accepted := r.m.acceptedLocked(tripID)
	if limit > 0 && len(accepted) > limit {
		accepted = accepted[len(accepted)-limit:]
	}
	result := make([]*domain.TripPoint, 0, len(accepted))
	for _, p := range accepted {
		copy := *p
		result = append(result, &copy)
	}
	return result, nil
}

func (r mockPoints) ListAccepted(ctx context.Context, tripID string) ([]*domain.TripPoint, error) {
	return r.ListRecentAccepted(ctx, tripID, 0)
}

// ──────────────────────────────────────────────
// STOPS
// ──────────────────────────────────────────────

type mockStops struct{ m *MockStore }

func (r mockStops) Create(ctx context.Context, stop *domain.TripStop) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copy := *stop
	r.m.stops[stop.TripID] = append(r.m.stops[stop.TripID], &copy)
	return nil
}

func (r mockStops) Update(ctx context.Context, stop *domain.TripStop) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, s := range r.m.stops[stop.TripID] {
		if s.ID == stop.ID {
			copy := *stop
			r.m.stops[stop.TripID][i] = &copy
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r mockStops) GetOpen(ctx context.Context, tripID string) (*domain.TripStop, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, s := range r.m.stops[tripID] {
		if s.IsOpen() {
			copy := *s
			return &copy, nil
		}
	}
	return nil, nil
}

func (r mockStops) GetLastClosed(ctx context.Context, tripID string) (*domain.TripStop, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var last *domain.TripStop
	for _, s := range r.m.stops[tripID] {
		if !s.IsOpen() && (last == nil || s.EndedAt.After(last.EndedAt)) {
			last = s
		}
	}
	if last == nil {
		return nil, nil
	}
	copy := *last
	return &copy, nil
}

func (r mockStops) ListByTrip(ctx context.Context, tripID string) ([]*domain.TripStop, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	result := make([]*domain.TripStop, 0, len(r.m.stops[tripID]))
	for _, s := range r.m.stops[tripID] {
		copy := *s
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// ANOMALIES
// ──────────────────────────────────────────────

type mockAnomalies struct{ m *MockStore }

func (r mockAnomalies) Create(ctx context.Context, anomaly *domain.TripAnomaly) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copy := *anomaly
	r.m.anomalies = append(r.m.anomalies, &copy)
	return nil
}

func (r mockAnomalies) GetByID(ctx context.Context, id string) (*domain.TripAnomaly, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, a := range r.m.anomalies {
		if a.ID == id {
			copy := *a
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r mockAnomalies) Update(ctx context.Context, anomaly *domain.TripAnomaly) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, a := range r.m.anomalies {
		if a.ID == anomaly.ID {
			copy := *anomaly
			r.m.anomalies[i] = &copy
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r mockAnomalies) ListByTrip(ctx context.Context, tripID string) ([]*domain.TripAnomaly, error) {
	return r.List(ctx, repository.AnomalyFilter{TripID: tripID})
}

func (r mockAnomalies) List(ctx context.Context, filter repository.AnomalyFilter) ([]*domain.TripAnomaly, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var result []*domain.TripAnomaly
	for _, a := range r.m.anomalies {
		if filter.TripID != "" && a.TripID != filter.TripID {
			continue
		}
		if filter.Resolved != nil && a.Resolved != *filter.Resolved {
			continue
		}
		if filter.OrganizationID != "" {
			trip, ok := r.m.trips[a.TripID]
			if !ok || trip.OrganizationID != filter.OrganizationID {
				continue
			}
		}
		copy := *a
		result = append(result, &copy)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// ──────────────────────────────────────────────
// TASK LINKS
// ──────────────────────────────────────────────

type mockTaskLinks struct{ m *MockStore }

func (r mockTaskLinks) Create(ctx context.Context, link *domain.TripTaskLink) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range r.m.links {
		if l.TripID == link.TripID && l.TaskID == link.TaskID {
			return repository.ErrDuplicate
		}
	}
	copy := *link
	r.m.links = append(r.m.links, &copy)
	return nil
}

func (r mockTaskLinks) Get(ctx context.Context, tripID, taskID string) (*domain.TripTaskLink, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, l := range r.m.links {
		if l.TripID == tripID && l.TaskID == taskID {
			copy := *l
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r mockTaskLinks) Update(ctx context.Context, link *domain.TripTaskLink) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, l := range r.m.links {
		if l.ID == link.ID {
			copy := *link
			r.m.links[i] = &copy
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r mockTaskLinks) ListByTrip(ctx context.Context, tripID string) ([]*domain.TripTaskLink, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var result []*domain.TripTaskLink
	for _, l := range r.m.links {
		if l.TripID == tripID {
			copy := *l
			result = append(result, &copy)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// VEHICLES AND RECONCILIATIONS
// ──────────────────────────────────────────────

type mockVehicles struct{ m *MockStore }

func (r mockVehicles) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	vehicle, ok := r.m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *vehicle
	return &copy, nil
}

func (r mockVehicles) UpdateOdometer(ctx context.Context, id string, odometer int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	vehicle, ok := r.m.vehicles[id]
	if !ok {
		return repository.ErrNotFound
	}
	vehicle.CurrentOdometer = odometer
	vehicle.UpdatedAt = time.Now()
	return nil
}

type mockReconciliations struct{ m *MockStore }

func (r mockReconciliations) Create(ctx context.Context, rec *domain.TripReconciliation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copy := *rec
	r.m.reconciliations = append(r.m.reconciliations, &copy)
	return nil
}

func (r mockReconciliations) GetLatestByVehicle(ctx context.Context, vehicleID string) (*domain.TripReconciliation, error) {
	recs, _ := r.ListByVehicle(ctx, vehicleID)
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (r mockReconciliations) ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.TripReconciliation, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var result []*domain.TripReconciliation
	for i := len(r.m.reconciliations) - 1; i >= 0; i-- {
		if rec := r.m.reconciliations[i]; rec.VehicleID == vehicleID {
			copy := *rec
			result = append(result, &copy)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// ROUTES
// ──────────────────────────────────────────────

type mockRoutes struct{ m *MockStore }

func (r mockRoutes) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	route, ok := r.m.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	result := copyRoute(route)
	sort.SliceStable(result.Stops, func(i, j int) bool { return result.Stops[i].Sequence < result.Stops[j].Sequence })
	return result, nil
}

func (r mockRoutes) UpdateStopSequences(ctx context.Context, routeID string, stops []domain.RouteStop) error {
	atomic.AddInt32(&r.m.UpdateStopSequencesCallCount, 1)
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	route, ok := r.m.routes[routeID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, stop := range stops {
		found := false
		for i := range route.Stops {
			if route.Stops[i].ID == stop.ID {
				route.Stops[i].Sequence = stop.Sequence
				found = true
			}
		}
		if !found {
			return repository.ErrNotFound
		}
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.TripLocation
	orgs      map[string]string

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.TripLocation),
		orgs:      make(map[string]string),
	}
}

func (m *MockLocationStore) UpdateTripLocation(ctx context.Context, organizationID, tripID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[tripID] = redis.TripLocation{TripID: tripID, Lat: lat, Lng: lng}
	m.orgs[tripID] = organizationID
	return nil
}

func (m *MockLocationStore) FindNearbyTrips(ctx context.Context, organizationID string, lat, lng, radiusKm float64) ([]redis.TripLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return all locations of the organization (mock doesn't do real geo filtering).
	result := make([]redis.TripLocation, 0, len(m.locations))
	for id, loc := range m.locations {
		if m.orgs[id] == organizationID {
			result = append(result, loc)
		}
	}
	return result, nil
}

func (m *MockLocationStore) RemoveTripLocation(ctx context.Context, organizationID, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, tripID)
	delete(m.orgs, tripID)
	return nil
}

// HasLocation checks if a trip location exists.
func (m *MockLocationStore) HasLocation(tripID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireVehicleLock(ctx context.Context, vehicleID string, ttl time.Duration) (func(context.Context) error, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return nil, false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:vehicle:" + vehicleID
	if expiry, exists := m.locks[key]; exists && time.Now().Before(expiry) {
		return nil, false, nil // Lock still held.
	}
	m.locks[key] = time.Now().Add(ttl)

	release := func(context.Context) error {
		atomic.AddInt32(&m.ReleaseCallCount, 1)
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locks, key)
		return nil
	}
	return release, true, nil
}

// Hold takes the lock of a vehicle as if another instance owned it.
func (m *MockLockStore) Hold(vehicleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks["lock:vehicle:"+vehicleID] = time.Now().Add(time.Hour)
}

// IsLocked checks if a vehicle is locked (for test assertions).
func (m *MockLockStore) IsLocked(vehicleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:vehicle:"+vehicleID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStore.
type MockCacheStore struct {
	mu      sync.Mutex
	entries map[string]string

	// Counters
	HitCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{entries: make(map[string]string)}
}

func (m *MockCacheStore) GetActiveTripID(ctx context.Context, employeeID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tripID, ok := m.entries[employeeID]
	if ok {
		atomic.AddInt32(&m.HitCount, 1)
	}
	return tripID, nil
}

func (m *MockCacheStore) SetActiveTripID(ctx context.Context, employeeID, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[employeeID] = tripID
	return nil
}

func (m *MockCacheStore) InvalidateActiveTrip(ctx context.Context, employeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, employeeID)
	return nil
}

// Has reports whether an employee has a cached active trip.
func (m *MockCacheStore) Has(employeeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[employeeID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published notifications.
type MockPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	return nil
}

// Topics returns the published topics in order.
func (m *MockPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.topics...)
}

// ──────────────────────────────────────────────
// HELPERS
// ──────────────────────────────────────────────

var ErrMockDB = errors.New("mock: database unavailable")

// newTestLogger returns a logger that keeps entries in memory.
func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}
