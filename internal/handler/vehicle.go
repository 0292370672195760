package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleettrack/internal/domain"
	"fleettrack/internal/middleware"
	"fleettrack/internal/service"
)

// VehicleHandler handles HTTP requests for vehicle odometer reconciliation.
type VehicleHandler struct {
	reconciliationService *service.ReconciliationService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(reconciliationService *service.ReconciliationService) *VehicleHandler {
	return &VehicleHandler{reconciliationService: reconciliationService}
}

// ReconcileRequest is the HTTP request body for an odometer reconciliation.
type ReconcileRequest struct {
	ActualOdometer *int   `json:"actual_odometer" binding:"required"`
	Notes          string `json:"notes,omitempty"`
}

// ReconciliationResponse is the HTTP response for a reconciliation.
type ReconciliationResponse struct {
	ID                       string  `json:"id"`
	VehicleID                string  `json:"vehicle_id"`
	PreviousOdometer         int     `json:"previous_odometer"`
	ActualOdometer           int     `json:"actual_odometer"`
	DifferenceKm             int     `json:"difference_km"`
	CalculatedDistanceMeters float64 `json:"calculated_distance_meters"`
	PerformedByID            string  `json:"performed_by_id"`
	Notes                    string  `json:"notes,omitempty"`
	CreatedAt                string  `json:"created_at"`
}

// Reconcile handles POST /v1/vehicles/:id/reconciliations
func (h *VehicleHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "actual_odometer is required")
		return
	}

	rec, err := h.reconciliationService.PerformReconciliation(c.Request.Context(), service.ReconciliationRequest{
		OrganizationID: middleware.OrganizationID(c),
		VehicleID:      c.Param("id"),
		ActualOdometer: *req.ActualOdometer,
		PerformedByID:  middleware.UserID(c),
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newReconciliationResponse(rec))
}

// ListReconciliations handles GET /v1/vehicles/:id/reconciliations
func (h *VehicleHandler) ListReconciliations(c *gin.Context) {
	recs, err := h.reconciliationService.ListReconciliations(c.Request.Context(), middleware.OrganizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ReconciliationResponse, 0, len(recs))
	for _, rec := range recs {
		response = append(response, newReconciliationResponse(rec))
	}
	respondJSON(c, http.StatusOK, response)
}

func newReconciliationResponse(r *domain.TripReconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		ID:                       r.ID,
		VehicleID:                r.VehicleID,
		PreviousOdometer:         r.PreviousOdometer,
		ActualOdometer:           r.ActualOdometer,
		DifferenceKm:             r.DifferenceKm,
		CalculatedDistanceMeters: r.CalculatedDistanceMeters,
		PerformedByID:            r.PerformedByID,
		Notes:                    r.Notes,
		CreatedAt:                formatTime(r.CreatedAt),
	}
}
