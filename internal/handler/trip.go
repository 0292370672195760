package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fleettrack/internal/domain"
	"fleettrack/internal/middleware"
	"fleettrack/internal/repository"
	"fleettrack/internal/service"
)

const defaultLiveRadiusKm = 5.0

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// StartTripRequest is the HTTP request body for starting a trip.
type StartTripRequest struct {
	EmployeeID    string   `json:"employee_id,omitempty"` // Defaults to the caller
	VehicleID     string   `json:"vehicle_id,omitempty"`
	RouteID       string   `json:"route_id,omitempty"`
	TaskType      string   `json:"task_type,omitempty"`
	StartOdometer *int     `json:"start_odometer,omitempty"`
	TaskIDs       []string `json:"task_ids,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// AddPointRequest is the HTTP request body for a GPS sample.
type AddPointRequest struct {
	Latitude   *float64   `json:"latitude" binding:"required"`
	Longitude  *float64   `json:"longitude" binding:"required"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	Speed      *float64   `json:"speed,omitempty"`
	Heading    *float64   `json:"heading,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// EndTripRequest is the HTTP request body for completing a trip.
type EndTripRequest struct {
	EndOdometer *int   `json:"end_odometer,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// CancelTripRequest is the HTTP request body for cancelling a trip.
type CancelTripRequest struct {
	Reason string `json:"reason,omitempty"`
}

// LinkTaskRequest is the HTTP request body for linking a task.
type LinkTaskRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

// CompleteTaskRequest is the HTTP request body for completing a linked task.
type CompleteTaskRequest struct {
	Notes string `json:"notes,omitempty"`
}

// TripResponse is the HTTP response for a trip.
type TripResponse struct {
	ID                       string   `json:"id"`
	OrganizationID           string   `json:"organization_id"`
	EmployeeID               string   `json:"employee_id"`
	VehicleID                string   `json:"vehicle_id,omitempty"`
	RouteID                  string   `json:"route_id,omitempty"`
	TaskType                 string   `json:"task_type"`
	Status                   string   `json:"status"`
	StartedAt                string   `json:"started_at"`
	EndedAt                  string   `json:"ended_at,omitempty"`
	StartOdometer            *int     `json:"start_odometer,omitempty"`
	EndOdometer              *int     `json:"end_odometer,omitempty"`
	StartLatitude            *float64 `json:"start_latitude,omitempty"`
	StartLongitude           *float64 `json:"start_longitude,omitempty"`
	EndLatitude              *float64 `json:"end_latitude,omitempty"`
	EndLongitude             *float64 `json:"end_longitude,omitempty"`
	CalculatedDistanceMeters float64  `json:"calculated_distance_meters"`
	TotalPoints              int      `json:"total_points"`
	TotalStops               int      `json:"total_stops"`
	TotalAnomalies           int      `json:"total_anomalies"`
	VisitedMachinesCount     int      `json:"visited_machines_count"`
	LiveLocationActive       bool     `json:"live_location_active"`
	LastLocationUpdate       string   `json:"last_location_update,omitempty"`
	Notes                    string   `json:"notes,omitempty"`
	CompletedByID            string   `json:"completed_by_id,omitempty"`
	CancelledByID            string   `json:"cancelled_by_id,omitempty"`
}

// StopResponse is the HTTP response for a detected stop.
type StopResponse struct {
	ID              string  `json:"id"`
	StartedAt       string  `json:"started_at"`
	EndedAt         string  `json:"ended_at,omitempty"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	DurationSeconds int64   `json:"duration_seconds"`
	PointsCount     int     `json:"points_count"`
}

// TaskLinkResponse is the HTTP response for a linked task.
type TaskLinkResponse struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	Status      string `json:"status"`
	CompletedAt string `json:"completed_at,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// PointResponse is the HTTP response for a stored GPS sample.
type PointResponse struct {
	ID                     string   `json:"id"`
	Latitude               float64  `json:"latitude"`
	Longitude              float64  `json:"longitude"`
	Accuracy               *float64 `json:"accuracy,omitempty"`
	Speed                  *float64 `json:"speed,omitempty"`
	Heading                *float64 `json:"heading,omitempty"`
	CapturedAt             string   `json:"captured_at"`
	IsFiltered             bool     `json:"is_filtered"`
	FilterReason           string   `json:"filter_reason,omitempty"`
	DistanceFromPrevMeters float64  `json:"distance_from_prev_meters"`
}

// TripDetailsResponse is a trip with its stops, anomalies and task links.
type TripDetailsResponse struct {
	Trip      TripResponse       `json:"trip"`
	Stops     []StopResponse     `json:"stops"`
	Anomalies []AnomalyResponse  `json:"anomalies"`
	TaskLinks []TaskLinkResponse `json:"task_links"`
}

// TrackResponse is the accepted path of a trip.
type TrackResponse struct {
	TripID   string          `json:"trip_id"`
	Points   []PointResponse `json:"points"`
	Polyline string          `json:"polyline"`
}

// LiveTripResponse is the last known position of an active trip.
type LiveTripResponse struct {
	TripID     string  `json:"trip_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
}

// StartTrip handles POST /v1/trips
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	employeeID := req.EmployeeID
	if employeeID == "" {
		employeeID = middleware.UserID(c)
	}

	details, err := h.tripService.StartTrip(c.Request.Context(), service.StartTripRequest{
		OrganizationID: middleware.OrganizationID(c),
		EmployeeID:     employeeID,
		VehicleID:      req.VehicleID,
		RouteID:        req.RouteID,
		TaskType:       domain.TaskType(req.TaskType),
		StartOdometer:  req.StartOdometer,
		TaskIDs:        req.TaskIDs,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newTripDetailsResponse(details))
}

// ListTrips handles GET /v1/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	filter := repository.TripFilter{
		OrganizationID: middleware.OrganizationID(c),
		EmployeeID:     c.Query("employee_id"),
		VehicleID:      c.Query("vehicle_id"),
		Status:         domain.TripStatus(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	trips, err := h.tripService.ListTrips(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, newTripResponse(trip))
	}
	respondJSON(c, http.StatusOK, response)
}

// GetActiveTrip handles GET /v1/trips/active
func (h *TripHandler) GetActiveTrip(c *gin.Context) {
	employeeID := c.DefaultQuery("employee_id", middleware.UserID(c))

	trip, err := h.tripService.GetActiveTrip(c.Request.Context(), employeeID)
	if err != nil {
		respondError(c, err)
		return
	}
	if trip == nil || trip.OrganizationID != middleware.OrganizationID(c) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active trip"})
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// FindLiveTrips handles GET /v1/trips/live
func (h *TripHandler) FindLiveTrips(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		respondBadRequest(c, "lat and lng are required")
		return
	}
	radius := defaultLiveRadiusKm
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondBadRequest(c, "invalid radius_km")
			return
		}
		radius = r
	}

	locations, err := h.tripService.FindNearbyLiveTrips(c.Request.Context(), middleware.OrganizationID(c), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]LiveTripResponse, 0, len(locations))
	for _, loc := range locations {
		response = append(response, LiveTripResponse{
			TripID:     loc.TripID,
			Latitude:   loc.Lat,
			Longitude:  loc.Lng,
			DistanceKm: loc.DistanceKm,
		})
	}
	respondJSON(c, http.StatusOK, response)
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	if !h.authorizeTrip(c) {
		return
	}

	details, err := h.tripService.GetTripDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripDetailsResponse(details))
}

// GetTrack handles GET /v1/trips/:id/track
func (h *TripHandler) GetTrack(c *gin.Context) {
	if !h.authorizeTrip(c) {
		return
	}

	track, err := h.tripService.GetTripTrack(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := TrackResponse{
		TripID:   track.TripID,
		Points:   make([]PointResponse, 0, len(track.Points)),
		Polyline: track.Polyline,
	}
	for _, p := range track.Points {
		response.Points = append(response.Points, newPointResponse(p))
	}
	respondJSON(c, http.StatusOK, response)
}

// AddPoint handles POST /v1/trips/:id/points
func (h *TripHandler) AddPoint(c *gin.Context) {
	var req AddPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "latitude and longitude are required")
		return
	}
	if !h.authorizeTrip(c) {
		return
	}

	sample := service.PointSample{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Heading:   req.Heading,
	}
	if req.CapturedAt != nil {
		sample.CapturedAt = *req.CapturedAt
	}

	point, err := h.tripService.AddPoint(c.Request.Context(), c.Param("id"), sample)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newPointResponse(point))
}

// EndTrip handles POST /v1/trips/:id/end
func (h *TripHandler) EndTrip(c *gin.Context) {
	var req EndTripRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if !h.authorizeTrip(c) {
		return
	}

	trip, err := h.tripService.EndTrip(c.Request.Context(), c.Param("id"), service.CompleteTripRequest{
		EndOdometer: req.EndOdometer,
		Notes:       req.Notes,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	var req CancelTripRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if !h.authorizeTrip(c) {
		return
	}

	trip, err := h.tripService.CancelTrip(c.Request.Context(), c.Param("id"), req.Reason, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// LinkTask handles POST /v1/trips/:id/tasks
func (h *TripHandler) LinkTask(c *gin.Context) {
	var req LinkTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "task_id is required")
		return
	}
	if !h.authorizeTrip(c) {
		return
	}

	link, err := h.tripService.LinkTask(c.Request.Context(), c.Param("id"), req.TaskID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newTaskLinkResponse(link))
}

// CompleteTask handles POST /v1/trips/:id/tasks/:taskId/complete
func (h *TripHandler) CompleteTask(c *gin.Context) {
	var req CompleteTaskRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if !h.authorizeTrip(c) {
		return
	}

	link, err := h.tripService.CompleteLinkedTask(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.Notes, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTaskLinkResponse(link))
}

// authorizeTrip responds 404 unless the trip in the path belongs to the
// caller's organization.
func (h *TripHandler) authorizeTrip(c *gin.Context) bool {
	trip, err := h.tripService.GetTripByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return false
	}
	if trip.OrganizationID != middleware.OrganizationID(c) {
		respondError(c, service.ErrNotFound)
		return false
	}
	return true
}

// bindOptionalJSON binds a request body that may be absent.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "invalid request body")
		return false
	}
	return true
}

func newTripResponse(t *domain.Trip) TripResponse {
	return TripResponse{
		ID:                       t.ID,
		OrganizationID:           t.OrganizationID,
		EmployeeID:               t.EmployeeID,
		VehicleID:                t.VehicleID,
		RouteID:                  t.RouteID,
		TaskType:                 string(t.TaskType),
		Status:                   string(t.Status),
		StartedAt:                formatTime(t.StartedAt),
		EndedAt:                  formatTime(t.EndedAt),
		StartOdometer:            t.StartOdometer,
		EndOdometer:              t.EndOdometer,
		StartLatitude:            t.StartLatitude,
		StartLongitude:           t.StartLongitude,
		EndLatitude:              t.EndLatitude,
		EndLongitude:             t.EndLongitude,
		CalculatedDistanceMeters: t.CalculatedDistanceMeters,
		TotalPoints:              t.TotalPoints,
		TotalStops:               t.TotalStops,
		TotalAnomalies:           t.TotalAnomalies,
		VisitedMachinesCount:     t.VisitedMachinesCount,
		LiveLocationActive:       t.LiveLocationActive,
		LastLocationUpdate:       formatTime(t.LastLocationUpdate),
		Notes:                    t.Notes,
		CompletedByID:            t.CompletedByID,
		CancelledByID:            t.CancelledByID,
	}
}

func newTripDetailsResponse(d *domain.TripDetails) TripDetailsResponse {
	response := TripDetailsResponse{
		Trip:      newTripResponse(d.Trip),
		Stops:     make([]StopResponse, 0, len(d.Stops)),
		Anomalies: make([]AnomalyResponse, 0, len(d.Anomalies)),
		TaskLinks: make([]TaskLinkResponse, 0, len(d.TaskLinks)),
	}
	for _, s := range d.Stops {
		response.Stops = append(response.Stops, StopResponse{
			ID:              s.ID,
			StartedAt:       formatTime(s.StartedAt),
			EndedAt:         formatTime(s.EndedAt),
			Latitude:        s.Latitude,
			Longitude:       s.Longitude,
			DurationSeconds: s.DurationSeconds,
			PointsCount:     s.PointsCount,
		})
	}
	for _, a := range d.Anomalies {
		response.Anomalies = append(response.Anomalies, newAnomalyResponse(a))
	}
	for _, l := range d.TaskLinks {
		response.TaskLinks = append(response.TaskLinks, newTaskLinkResponse(l))
	}
	return response
}

func newTaskLinkResponse(l *domain.TripTaskLink) TaskLinkResponse {
	return TaskLinkResponse{
		ID:          l.ID,
		TaskID:      l.TaskID,
		Status:      string(l.Status),
		CompletedAt: formatTime(l.CompletedAt),
		Notes:       l.Notes,
	}
}

func newPointResponse(p *domain.TripPoint) PointResponse {
	return PointResponse{
		ID:                     p.ID,
		Latitude:               p.Latitude,
		Longitude:              p.Longitude,
		Accuracy:               p.Accuracy,
		Speed:                  p.Speed,
		Heading:                p.Heading,
		CapturedAt:             formatTime(p.CapturedAt),
		IsFiltered:             p.IsFiltered,
		FilterReason:           string(p.FilterReason),
		DistanceFromPrevMeters: p.DistanceFromPrevMeters,
	}
}
