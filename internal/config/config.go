package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"fleettrack/internal/domain"
	"fleettrack/internal/routing"
	"fleettrack/internal/tracking"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Auth     AuthConfig
	MQTT     MQTTConfig
	Log      LogConfig
	Tracking tracking.Rules
	Routing  RoutingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// AuthConfig holds access token verification settings.
type AuthConfig struct {
	JWTSecret string
}

// MQTTConfig holds the device telemetry broker settings.
type MQTTConfig struct {
	Enabled     bool
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// RoutingConfig holds route optimization settings.
type RoutingConfig struct {
	AverageSpeedKmh float64
}

// Load loads configuration from environment variables. Tracking thresholds
// start from tracking.DefaultRules, are overlaid with TRACKING_RULES_FILE when
// set, and then with individual TRACKING_* variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "fleettrack"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "fleettrack"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		MQTT: MQTTConfig{
			Enabled:     getBoolEnv("MQTT_ENABLED", false),
			BrokerURL:   getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "fleettrack"),
			Username:    getEnv("MQTT_USERNAME", ""),
			Password:    getEnv("MQTT_PASSWORD", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "fleettrack"),
			QoS:         byte(getIntEnv("MQTT_QOS", 1)),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracking: tracking.DefaultRules(),
		Routing: RoutingConfig{
			AverageSpeedKmh: getFloatEnv("ROUTING_AVERAGE_SPEED_KMH", routing.DefaultAverageSpeedKmh),
		},
	}

	if path := os.Getenv("TRACKING_RULES_FILE"); path != "" {
		if err := LoadRulesFile(path, &cfg.Tracking); err != nil {
			return nil, err
		}
	}
	applyTrackingEnv(&cfg.Tracking)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that the service cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("config: MQTT_QOS must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	r := c.Tracking
	if r.MaxAccuracyMeters <= 0 || r.MaxPlausibleSpeedKmh <= 0 || r.StopRadiusMeters <= 0 ||
		r.RouteDeviationMeters <= 0 || r.DefaultSpeedLimitKmh <= 0 {
		return fmt.Errorf("config: tracking thresholds must be positive")
	}
	if r.StopMinDuration <= 0 || r.MaxIdleDuration <= 0 {
		return fmt.Errorf("config: tracking durations must be positive")
	}
	if r.PointWindow < 2 {
		return fmt.Errorf("config: tracking point window must be at least 2, got %d", r.PointWindow)
	}
	return nil
}

// rulesFile mirrors tracking.Rules in YAML. Absent keys keep their current value.
type rulesFile struct {
	MaxAccuracyMeters    *float64           `yaml:"max_accuracy_meters"`
	MaxPlausibleSpeedKmh *float64           `yaml:"max_plausible_speed_kmh"`
	StopRadiusMeters     *float64           `yaml:"stop_radius_meters"`
	StopMinDuration      *time.Duration     `yaml:"stop_min_duration"`
	MaxIdleDuration      *time.Duration     `yaml:"max_idle_duration"`
	RouteDeviationMeters *float64           `yaml:"route_deviation_meters"`
	DefaultSpeedLimitKmh *float64           `yaml:"default_speed_limit_kmh"`
	SpeedLimitsKmh       map[string]float64 `yaml:"speed_limits_kmh"`
	PointWindow          *int               `yaml:"point_window"`
}

// LoadRulesFile overlays the YAML file at path onto rules.
func LoadRulesFile(path string, rules *tracking.Rules) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read tracking rules: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse tracking rules %s: %w", path, err)
	}

	setFloat(&rules.MaxAccuracyMeters, f.MaxAccuracyMeters)
	setFloat(&rules.MaxPlausibleSpeedKmh, f.MaxPlausibleSpeedKmh)
	setFloat(&rules.StopRadiusMeters, f.StopRadiusMeters)
	setFloat(&rules.RouteDeviationMeters, f.RouteDeviationMeters)
	setFloat(&rules.DefaultSpeedLimitKmh, f.DefaultSpeedLimitKmh)
	if f.StopMinDuration != nil {
		rules.StopMinDuration = *f.StopMinDuration
	}
	if f.MaxIdleDuration != nil {
		rules.MaxIdleDuration = *f.MaxIdleDuration
	}
	if f.PointWindow != nil {
		rules.PointWindow = *f.PointWindow
	}

	if len(f.SpeedLimitsKmh) > 0 {
		limits := make(map[domain.TaskType]float64, len(rules.SpeedLimitsKmh)+len(f.SpeedLimitsKmh))
		for t, v := range rules.SpeedLimitsKmh {
			limits[t] = v
		}
		for name, v := range f.SpeedLimitsKmh {
			t := domain.TaskType(name)
			if !t.Valid() {
				return fmt.Errorf("config: tracking rules %s: unknown task type %q", path, name)
			}
			limits[t] = v
		}
		rules.SpeedLimitsKmh = limits
	}

	return nil
}

func applyTrackingEnv(rules *tracking.Rules) {
	rules.MaxAccuracyMeters = getFloatEnv("TRACKING_MAX_ACCURACY_METERS", rules.MaxAccuracyMeters)
	rules.MaxPlausibleSpeedKmh = getFloatEnv("TRACKING_MAX_PLAUSIBLE_SPEED_KMH", rules.MaxPlausibleSpeedKmh)
	rules.StopRadiusMeters = getFloatEnv("TRACKING_STOP_RADIUS_METERS", rules.StopRadiusMeters)
	rules.StopMinDuration = getDurationEnv("TRACKING_STOP_MIN_DURATION", rules.StopMinDuration)
	rules.MaxIdleDuration = getDurationEnv("TRACKING_MAX_IDLE_DURATION", rules.MaxIdleDuration)
	rules.RouteDeviationMeters = getFloatEnv("TRACKING_ROUTE_DEVIATION_METERS", rules.RouteDeviationMeters)
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
