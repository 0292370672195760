package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/app"
	"fleettrack/internal/domain"
	"fleettrack/internal/handler"
	"fleettrack/internal/middleware"
	"fleettrack/internal/service"
	"fleettrack/internal/tracking"
)

var apiSecret = []byte("api-test-secret")

type apiFixture struct {
	router    *gin.Engine
	store     *MockStore
	locks     *MockLockStore
	publisher *MockPublisher
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewMockStore()
	store.AddVehicle(&domain.Vehicle{ID: "veh-1", OrganizationID: "org-1", CurrentOdometer: 12000})
	store.AddRoute(zigzagRoute("route-1", "org-1"))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger, _ := newTestLogger()
	publisher := &MockPublisher{}
	locks := NewMockLockStore()
	notifier := service.NewNotificationService(publisher, logger)

	tripService := service.NewTripService(store, tracking.DefaultRules(), NewMockLocationStore(), NewMockCacheStore(), notifier, logger)
	router := app.NewRouter(app.RouterDeps{
		TripHandler:    handler.NewTripHandler(tripService),
		AnomalyHandler: handler.NewAnomalyHandler(service.NewAnomalyService(store, logger)),
		VehicleHandler: handler.NewVehicleHandler(service.NewReconciliationService(store, locks, notifier, logger)),
		RouteHandler:   handler.NewRouteHandler(service.NewRouteService(store, 40, logger)),
		RedisClient:    client,
		Logger:         logger,
		JWTSecret:      apiSecret,
	})

	return &apiFixture{router: router, store: store, locks: locks, publisher: publisher}
}

func apiToken(t *testing.T, userID, orgID string) string {
	t.Helper()
	claims := middleware.Claims{
		OrganizationID: orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(apiSecret)
	require.NoError(t, err)
	return signed
}

// do sends a request. headers are given as name/value pairs.
func (f *apiFixture) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// tripEnvelope is the subset of the trip details response the tests read.
type tripEnvelope struct {
	Trip      handler.TripResponse       `json:"trip"`
	TaskLinks []handler.TaskLinkResponse `json:"task_links"`
}

type anomalyEnvelope struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Resolved     bool   `json:"resolved"`
	ResolvedByID string `json:"resolved_by_id"`
}

func (f *apiFixture) startTrip(t *testing.T, token string) handler.TripResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/v1/trips", token, map[string]any{
		"vehicle_id": "veh-1",
		"task_type":  "filling",
		"task_ids":   []string{"task-1"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[tripEnvelope](t, w).Trip
}

// ──────────────────────────────────────────────
// 1. AUTH AND HEALTH
// ──────────────────────────────────────────────

func TestAPI_HealthIsPublic(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/v1/trips", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ──────────────────────────────────────────────
// 2. TRIP LIFECYCLE OVER HTTP
// ──────────────────────────────────────────────

func TestAPI_TripLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	token := apiToken(t, "emp-1", "org-1")

	trip := f.startTrip(t, token)
	assert.Equal(t, "emp-1", trip.EmployeeID)
	assert.Equal(t, "active", trip.Status)
	require.NotNil(t, trip.StartOdometer)
	assert.Equal(t, 12000, *trip.StartOdometer)

	// One active trip per employee.
	w := f.do(t, http.MethodPost, "/v1/trips", token, map[string]any{"vehicle_id": "veh-1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/points", token, map[string]any{
		"latitude":    depotLat,
		"longitude":   depotLng,
		"accuracy":    6.0,
		"captured_at": baseTime.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	point := decode[handler.PointResponse](t, w)
	assert.False(t, point.IsFiltered)

	north := depotLat + 600/metersPerDegree
	w = f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/points", token, map[string]any{
		"latitude":    north,
		"longitude":   depotLng,
		"captured_at": baseTime.Add(time.Minute).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.InDelta(t, 600, decode[handler.PointResponse](t, w).DistanceFromPrevMeters, 0.5)

	w = f.do(t, http.MethodGet, "/v1/trips/active", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, trip.ID, decode[handler.TripResponse](t, w).ID)

	w = f.do(t, http.MethodGet, "/v1/trips/"+trip.ID+"/track", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	track := decode[handler.TrackResponse](t, w)
	assert.Len(t, track.Points, 2)
	assert.NotEmpty(t, track.Polyline)

	w = f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/tasks/task-1/complete", token, map[string]any{"notes": "refilled"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode[handler.TaskLinkResponse](t, w).Status)

	w = f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/end", token, map[string]any{"end_odometer": 12001})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ended := decode[handler.TripResponse](t, w)
	assert.Equal(t, "completed", ended.Status)
	assert.Equal(t, 1, ended.VisitedMachinesCount)
	assert.Equal(t, "emp-1", ended.CompletedByID)

	// Terminal trips reject further samples.
	w = f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/points", token, map[string]any{"latitude": depotLat, "longitude": depotLng})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodGet, "/v1/trips/active", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/v1/trips?status=completed", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]handler.TripResponse](t, w), 1)
}

func TestAPI_CancelWithoutBody(t *testing.T) {
	f := newAPIFixture(t)
	token := apiToken(t, "emp-1", "org-1")
	trip := f.startTrip(t, token)

	w := f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decode[handler.TripResponse](t, w).Status)
	assert.Contains(t, f.publisher.Topics(), "orgs/org-1/events/TRIP_CANCELLED")
}

func TestAPI_PointsAreIdempotent(t *testing.T) {
	f := newAPIFixture(t)
	token := apiToken(t, "emp-1", "org-1")
	trip := f.startTrip(t, token)

	body := map[string]any{"latitude": depotLat, "longitude": depotLng, "captured_at": baseTime.Format(time.RFC3339)}
	first := f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/points", token, body, middleware.IdempotencyHeader, "sample-1")
	second := f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/points", token, body, middleware.IdempotencyHeader, "sample-1")

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Len(t, f.store.Points(trip.ID), 1)
	assert.Equal(t, 1, f.store.GetTrip(trip.ID).TotalPoints)
}

func TestAPI_BadRequests(t *testing.T) {
	f := newAPIFixture(t)
	token := apiToken(t, "emp-1", "org-1")
	trip := f.startTrip(t, token)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"malformed json", http.MethodPost, "/v1/trips", "{", http.StatusBadRequest},
		{"unknown task type", http.MethodPost, "/v1/trips", map[string]any{"task_type": "towing", "employee_id": "emp-2"}, http.StatusBadRequest},
		{"point without longitude", http.MethodPost, "/v1/trips/" + trip.ID + "/points", map[string]any{"latitude": 41.3}, http.StatusBadRequest},
		{"point out of range", http.MethodPost, "/v1/trips/" + trip.ID + "/points", map[string]any{"latitude": 95.0, "longitude": 69.2}, http.StatusBadRequest},
		{"list with bad status", http.MethodGet, "/v1/trips?status=paused", nil, http.StatusBadRequest},
		{"list with bad limit", http.MethodGet, "/v1/trips?limit=-3", nil, http.StatusBadRequest},
		{"live without coordinates", http.MethodGet, "/v1/trips/live", nil, http.StatusBadRequest},
		{"unknown trip", http.MethodGet, "/v1/trips/nope", nil, http.StatusNotFound},
		{"reconcile without reading", http.MethodPost, "/v1/vehicles/veh-1/reconciliations", map[string]any{}, http.StatusBadRequest},
		{"optimize with bad flag", http.MethodPost, "/v1/routes/route-1/optimize?apply=maybe", nil, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.path, token, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestAPI_OtherOrganizationSeesNotFound(t *testing.T) {
	f := newAPIFixture(t)
	trip := f.startTrip(t, apiToken(t, "emp-1", "org-1"))
	outsider := apiToken(t, "emp-9", "org-2")

	for _, path := range []string{"/v1/trips/" + trip.ID, "/v1/trips/" + trip.ID + "/track"} {
		w := f.do(t, http.MethodGet, path, outsider, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := f.do(t, http.MethodPost, "/v1/trips/"+trip.ID+"/end", outsider, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.TripStatusActive, f.store.GetTrip(trip.ID).Status)

	w = f.do(t, http.MethodGet, "/v1/trips/active?employee_id=emp-1", outsider, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/v1/trips", outsider, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]handler.TripResponse](t, w))

	w = f.do(t, http.MethodPost, "/v1/routes/route-1/optimize", outsider, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ──────────────────────────────────────────────
// 3. ANOMALIES, RECONCILIATION, ROUTES
// ──────────────────────────────────────────────

func TestAPI_ResolveAnomaly(t *testing.T) {
	f := newAPIFixture(t)
	f.store.AddTrip(&domain.Trip{ID: "trip-1", OrganizationID: "org-1", EmployeeID: "emp-1", Status: domain.TripStatusActive})
	f.store.AddAnomaly(domain.NewTripAnomaly("anom-1", "trip-1", domain.SeverityWarning,
		domain.SpeedViolationDetails{SpeedKmh: 101, MaxAllowedKmh: 80}, depotLat, depotLng, baseTime))
	token := apiToken(t, "disp-1", "org-1")

	w := f.do(t, http.MethodGet, "/v1/anomalies?resolved=false", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[[]anomalyEnvelope](t, w)
	require.Len(t, listed, 1)
	assert.Equal(t, "SPEED_VIOLATION", listed[0].Type)
	assert.Contains(t, w.Body.String(), `"speedKmh":101`)

	w = f.do(t, http.MethodPost, "/v1/anomalies/anom-1/resolve", token, map[string]any{"notes": "checked"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[anomalyEnvelope](t, w)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, "disp-1", resolved.ResolvedByID)

	w = f.do(t, http.MethodPost, "/v1/anomalies/anom-1/resolve", apiToken(t, "disp-2", "org-2"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_Reconciliation(t *testing.T) {
	f := newAPIFixture(t)
	token := apiToken(t, "mgr-1", "org-1")

	w := f.do(t, http.MethodPost, "/v1/vehicles/veh-1/reconciliations", token, map[string]any{"actual_odometer": 12050})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rec := decode[handler.ReconciliationResponse](t, w)
	assert.Equal(t, 50, rec.DifferenceKm)
	assert.Equal(t, "mgr-1", rec.PerformedByID)

	w = f.do(t, http.MethodGet, "/v1/vehicles/veh-1/reconciliations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]handler.ReconciliationResponse](t, w), 1)

	f.locks.Hold("veh-1")
	w = f.do(t, http.MethodPost, "/v1/vehicles/veh-1/reconciliations", token, map[string]any{"actual_odometer": 12060})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/v1/vehicles/veh-1/reconciliations", apiToken(t, "mgr-2", "org-2"), map[string]any{"actual_odometer": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_OptimizeRoute(t *testing.T) {
	f := newAPIFixture(t)
	token := apiToken(t, "disp-1", "org-1")

	w := f.do(t, http.MethodPost, "/v1/routes/route-1/optimize?apply=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[handler.OptimizeRouteResponse](t, w)
	assert.True(t, resp.Optimized)
	assert.True(t, resp.Applied)
	assert.InDelta(t, 3.0, resp.SavingsKm, 0.01)
	require.Len(t, resp.Stops, 5)
	assert.Equal(t, "c", resp.Stops[1].ID)
	assert.Nil(t, resp.Stops[4].Latitude)
	assert.Equal(t, int32(1), f.store.UpdateStopSequencesCallCount)
}
