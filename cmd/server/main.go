package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fleettrack/internal/app"
	"fleettrack/internal/config"
	"fleettrack/internal/handler"
	"fleettrack/internal/ingest"
	internalRedis "fleettrack/internal/redis"
	"fleettrack/internal/repository/postgres"
	"fleettrack/internal/service"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	configureLogger(logger, cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.WithError(err).Fatal("failed to migrate database")
		}
	}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	server, mqttClient := wire(db, redisClient, nrApp, cfg, logger)
	if mqttClient != nil {
		if err := mqttClient.Connect(ctx); err != nil {
			logger.WithError(err).Warn("mqtt broker not reachable yet, retrying in background")
		}
		defer mqttClient.Close()
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

func configureLogger(logger *logrus.Logger, cfg config.LogConfig) {
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// wire builds the service graph. The MQTT client is nil when ingest is disabled.
func wire(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *logrus.Logger) (*http.Server, *ingest.Client) {
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	store := postgres.NewStore(db)

	var (
		mqttClient *ingest.Client
		publisher  service.Publisher
	)
	if cfg.MQTT.Enabled {
		mqttClient = ingest.NewClient(cfg.MQTT, logger)
		publisher = mqttClient
	}

	notificationService := service.NewNotificationService(publisher, logger)
	tripService := service.NewTripService(store, cfg.Tracking, locationStore, cacheStore, notificationService, logger)
	anomalyService := service.NewAnomalyService(store, logger)
	reconciliationService := service.NewReconciliationService(store, lockStore, notificationService, logger)
	routeService := service.NewRouteService(store, cfg.Routing.AverageSpeedKmh, logger)
	if mqttClient != nil {
		mqttClient.HandlePoints(ingest.NewPointHandler(tripService, cfg.MQTT.TopicPrefix, logger))
	}

	router := app.NewRouter(app.RouterDeps{
		TripHandler:    handler.NewTripHandler(tripService),
		AnomalyHandler: handler.NewAnomalyHandler(anomalyService),
		VehicleHandler: handler.NewVehicleHandler(reconciliationService),
		RouteHandler:   handler.NewRouteHandler(routeService),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Logger:         logger,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, mqttClient
}
