package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleettrack/internal/middleware"
	"fleettrack/internal/service"
)

// RouteHandler handles HTTP requests for route optimization.
type RouteHandler struct {
	routeService *service.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routeService *service.RouteService) *RouteHandler {
	return &RouteHandler{routeService: routeService}
}

// RouteStopResponse is one stop in the proposed visiting order.
type RouteStopResponse struct {
	ID        string   `json:"id"`
	MachineID string   `json:"machine_id"`
	Sequence  int      `json:"sequence"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// OptimizeRouteResponse is the HTTP response for a route optimization.
type OptimizeRouteResponse struct {
	RouteID                   string              `json:"route_id"`
	Optimized                 bool                `json:"optimized"`
	Applied                   bool                `json:"applied"`
	OriginalDistanceKm        float64             `json:"original_distance_km"`
	OptimizedDistanceKm       float64             `json:"optimized_distance_km"`
	SavingsKm                 float64             `json:"savings_km"`
	EstimatedTimeSavedMinutes float64             `json:"estimated_time_saved_minutes"`
	GeocodedStops             int                 `json:"geocoded_stops"`
	UngeocodedStops           int                 `json:"ungeocoded_stops"`
	Polyline                  string              `json:"polyline"`
	Stops                     []RouteStopResponse `json:"stops"`
}

// OptimizeRoute handles POST /v1/routes/:id/optimize
func (h *RouteHandler) OptimizeRoute(c *gin.Context) {
	apply := false
	if raw := c.Query("apply"); raw != "" {
		var err error
		if apply, err = strconv.ParseBool(raw); err != nil {
			respondBadRequest(c, "invalid apply flag")
			return
		}
	}

	resp, err := h.routeService.OptimizeRoute(c.Request.Context(), middleware.OrganizationID(c), c.Param("id"), apply)
	if err != nil {
		respondError(c, err)
		return
	}

	result := resp.Result
	response := OptimizeRouteResponse{
		RouteID:                   resp.RouteID,
		Optimized:                 result.Optimized,
		Applied:                   resp.Applied,
		OriginalDistanceKm:        result.OriginalDistanceKm,
		OptimizedDistanceKm:       result.OptimizedDistanceKm,
		SavingsKm:                 result.SavingsKm,
		EstimatedTimeSavedMinutes: result.EstimatedTimeSavedMinutes,
		GeocodedStops:             result.GeocodedStops,
		UngeocodedStops:           result.UngeocodedStops,
		Polyline:                  resp.Polyline,
		Stops:                     make([]RouteStopResponse, 0, len(result.Stops)),
	}
	for _, s := range result.Stops {
		response.Stops = append(response.Stops, RouteStopResponse{
			ID:        s.ID,
			MachineID: s.MachineID,
			Sequence:  s.Sequence,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
		})
	}

	respondJSON(c, http.StatusOK, response)
}
