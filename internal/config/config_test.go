package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/domain"
	"fleettrack/internal/tracking"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TRACKING_RULES_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, tracking.DefaultRules().StopMinDuration, cfg.Tracking.StopMinDuration)
	assert.Greater(t, cfg.Routing.AverageSpeedKmh, 0.0)
	assert.LessOrEqual(t, cfg.MQTT.QoS, byte(2))
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_RulesFileThenEnv(t *testing.T) {
	path := writeRules(t, `
max_accuracy_meters: 35
stop_min_duration: 5m
max_idle_duration: 45m
speed_limits_kmh:
  filling: 70
  repair: 100
`)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TRACKING_RULES_FILE", path)
	t.Setenv("TRACKING_MAX_ACCURACY_METERS", "40")

	cfg, err := Load()
	require.NoError(t, err)

	rules := cfg.Tracking
	assert.Equal(t, 40.0, rules.MaxAccuracyMeters, "env wins over the file")
	assert.Equal(t, 5*time.Minute, rules.StopMinDuration)
	assert.Equal(t, 45*time.Minute, rules.MaxIdleDuration)
	assert.Equal(t, 70.0, rules.SpeedLimitFor(domain.TaskTypeFilling))
	assert.Equal(t, 100.0, rules.SpeedLimitFor(domain.TaskTypeRepair))
	assert.Equal(t, 80.0, rules.SpeedLimitFor(domain.TaskTypeCollection), "unlisted types keep defaults")
	assert.Equal(t, tracking.DefaultRules().StopRadiusMeters, rules.StopRadiusMeters)
}

func TestLoadRulesFile_DoesNotMutateDefaults(t *testing.T) {
	path := writeRules(t, "speed_limits_kmh:\n  mixed: 60\n")

	rules := tracking.DefaultRules()
	require.NoError(t, LoadRulesFile(path, &rules))
	assert.Equal(t, 60.0, rules.SpeedLimitFor(domain.TaskTypeMixed))
	assert.Equal(t, 80.0, tracking.DefaultRules().SpeedLimitFor(domain.TaskTypeMixed))
}

func TestLoadRulesFile_Errors(t *testing.T) {
	rules := tracking.DefaultRules()

	err := LoadRulesFile(writeRules(t, "speed_limits_kmh:\n  towing: 60\n"), &rules)
	assert.ErrorContains(t, err, "unknown task type")

	err = LoadRulesFile(writeRules(t, "stop_min_duration: [1, 2]\n"), &rules)
	assert.ErrorContains(t, err, "parse tracking rules")

	err = LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"), &rules)
	assert.ErrorContains(t, err, "read tracking rules")
}

func TestValidate_RejectsBadThresholds(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{JWTSecret: "x"}, Tracking: tracking.DefaultRules()}
	require.NoError(t, cfg.Validate())

	cfg.Tracking.PointWindow = 1
	assert.Error(t, cfg.Validate())

	cfg.Tracking = tracking.DefaultRules()
	cfg.Tracking.StopRadiusMeters = 0
	assert.Error(t, cfg.Validate())

	cfg.Tracking = tracking.DefaultRules()
	cfg.MQTT.QoS = 3
	assert.Error(t, cfg.Validate())
}
