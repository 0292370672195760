package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleettrack/internal/domain"
	"fleettrack/internal/middleware"
	"fleettrack/internal/repository"
	"fleettrack/internal/service"
)

// AnomalyHandler handles HTTP requests for trip anomalies.
type AnomalyHandler struct {
	anomalyService *service.AnomalyService
}

// NewAnomalyHandler creates a new AnomalyHandler.
func NewAnomalyHandler(anomalyService *service.AnomalyService) *AnomalyHandler {
	return &AnomalyHandler{anomalyService: anomalyService}
}

// ResolveAnomalyRequest is the HTTP request body for resolving an anomaly.
type ResolveAnomalyRequest struct {
	Notes string `json:"notes,omitempty"`
}

// AnomalyResponse is the HTTP response for an anomaly.
type AnomalyResponse struct {
	ID              string                `json:"id"`
	TripID          string                `json:"trip_id"`
	Type            string                `json:"type"`
	Severity        string                `json:"severity"`
	Details         domain.AnomalyDetails `json:"details"`
	Latitude        float64               `json:"latitude"`
	Longitude       float64               `json:"longitude"`
	DetectedAt      string                `json:"detected_at"`
	Resolved        bool                  `json:"resolved"`
	ResolvedByID    string                `json:"resolved_by_id,omitempty"`
	ResolutionNotes string                `json:"resolution_notes,omitempty"`
	ResolvedAt      string                `json:"resolved_at,omitempty"`
}

// ListAnomalies handles GET /v1/anomalies
func (h *AnomalyHandler) ListAnomalies(c *gin.Context) {
	filter := repository.AnomalyFilter{TripID: c.Query("trip_id")}
	if raw := c.Query("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			respondBadRequest(c, "invalid resolved flag")
			return
		}
		filter.Resolved = &resolved
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	anomalies, err := h.anomalyService.ListAnomalies(c.Request.Context(), middleware.OrganizationID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]AnomalyResponse, 0, len(anomalies))
	for _, a := range anomalies {
		response = append(response, newAnomalyResponse(a))
	}
	respondJSON(c, http.StatusOK, response)
}

// ResolveAnomaly handles POST /v1/anomalies/:id/resolve
func (h *AnomalyHandler) ResolveAnomaly(c *gin.Context) {
	var req ResolveAnomalyRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	anomaly, err := h.anomalyService.ResolveAnomaly(c.Request.Context(), service.ResolveAnomalyRequest{
		AnomalyID:      c.Param("id"),
		UserID:         middleware.UserID(c),
		OrganizationID: middleware.OrganizationID(c),
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newAnomalyResponse(anomaly))
}

func newAnomalyResponse(a *domain.TripAnomaly) AnomalyResponse {
	return AnomalyResponse{
		ID:              a.ID,
		TripID:          a.TripID,
		Type:            string(a.Type),
		Severity:        string(a.Severity),
		Details:         a.Details,
		Latitude:        a.Latitude,
		Longitude:       a.Longitude,
		DetectedAt:      formatTime(a.DetectedAt),
		Resolved:        a.Resolved,
		ResolvedByID:    a.ResolvedByID,
		ResolutionNotes: a.ResolutionNotes,
		ResolvedAt:      formatTime(a.ResolvedAt),
	}
}
