package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fleettrack/internal/handler"
	"fleettrack/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	AnomalyHandler *handler.AnomalyHandler
	VehicleHandler *handler.VehicleHandler
	RouteHandler   *handler.RouteHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	Logger         logrus.FieldLogger
	JWTSecret      []byte
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes. Idempotency keys are scoped to the caller, so the
	// identity has to be known first.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTSecret))
	v1.Use(middleware.NewRelicIdentity())
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	{
		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.StartTrip)
			trips.GET("", deps.TripHandler.ListTrips)
			trips.GET("/active", deps.TripHandler.GetActiveTrip)
			trips.GET("/live", deps.TripHandler.FindLiveTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.GET("/:id/track", deps.TripHandler.GetTrack)
			trips.POST("/:id/points", deps.TripHandler.AddPoint)
			trips.POST("/:id/end", deps.TripHandler.EndTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.POST("/:id/tasks", deps.TripHandler.LinkTask)
			trips.POST("/:id/tasks/:taskId/complete", deps.TripHandler.CompleteTask)
		}

		// Anomaly routes.
		anomalies := v1.Group("/anomalies")
		{
			anomalies.GET("", deps.AnomalyHandler.ListAnomalies)
			anomalies.POST("/:id/resolve", deps.AnomalyHandler.ResolveAnomaly)
		}

		// Vehicle routes.
		vehicles := v1.Group("/vehicles")
		{
			vehicles.POST("/:id/reconciliations", deps.VehicleHandler.Reconcile)
			vehicles.GET("/:id/reconciliations", deps.VehicleHandler.ListReconciliations)
		}

		// Route routes.
		routes := v1.Group("/routes")
		{
			routes.POST("/:id/optimize", deps.RouteHandler.OptimizeRoute)
		}
	}

	return router
}
