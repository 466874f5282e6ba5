package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airvitals/airvitals/internal/config"
	"github.com/airvitals/airvitals/internal/geolocation"
)

var configKeys = []string{
	"APP_PORT", "APP_ENV", "REQUIRE_TLS",
	"AIRVISUAL_API_KEY", "AIRVISUAL_BASE_URL", "AIRVISUAL_TIMEOUT",
	"LOCATION_SOURCE", "LOCATION_LAT", "LOCATION_LON", "LOCATION_PERMISSION", "LOCATION_DEVICE", "LOCATION_IP_URL",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLE_RATIO",
	"KAFKA_BROKERS", "KAFKA_TOPIC_TRANSITIONS",
	"PUBSUB_PROJECT_ID", "PUBSUB_SUBSCRIPTION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.False(t, cfg.App.RequireTLS)
	assert.Empty(t, cfg.AirVisual.APIKey)
	assert.Equal(t, "http://api.airvisual.com/v2", cfg.AirVisual.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.AirVisual.Timeout)
	assert.Equal(t, config.LocationSourceStatic, cfg.Location.Source)
	assert.True(t, cfg.Location.Position.IsSentinel())
	assert.Equal(t, geolocation.PermissionGranted, cfg.Location.Permission)
	assert.True(t, cfg.Location.DeviceSupported)
	assert.Equal(t, geolocation.DefaultIPLookupURL, cfg.Location.IPLookupURL)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "airvitals-commands", cfg.PubSub.Subscription)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AIRVISUAL_API_KEY", "secret")
	t.Setenv("AIRVISUAL_TIMEOUT", "3s")
	t.Setenv("LOCATION_SOURCE", "IP")
	t.Setenv("LOCATION_LAT", "52.37")
	t.Setenv("LOCATION_LON", "4.89")
	t.Setenv("LOCATION_PERMISSION", "denied")
	t.Setenv("LOCATION_DEVICE", "false")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.1")
	t.Setenv("REQUIRE_TLS", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("PUBSUB_PROJECT_ID", "airvitals-dev")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "secret", cfg.AirVisual.APIKey)
	assert.Equal(t, 3*time.Second, cfg.AirVisual.Timeout)
	assert.Equal(t, config.LocationSourceIP, cfg.Location.Source)
	assert.Equal(t, geolocation.Coordinates{Latitude: 52.37, Longitude: 4.89}, cfg.Location.Position)
	assert.Equal(t, geolocation.PermissionDenied, cfg.Location.Permission)
	assert.False(t, cfg.Location.DeviceSupported)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.1, cfg.Telemetry.SampleRatio)
	assert.True(t, cfg.App.RequireTLS)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "airvitals-dev", cfg.PubSub.ProjectID)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("AIRVISUAL_TIMEOUT", "soon")
	t.Setenv("LOCATION_LAT", "north")
	t.Setenv("LOCATION_DEVICE", "maybe")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.AirVisual.Timeout)
	assert.Zero(t, cfg.Location.Position.Latitude)
	assert.True(t, cfg.Location.DeviceSupported)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown location source", "LOCATION_SOURCE", "gps"},
		{"unknown permission", "LOCATION_PERMISSION", "ask"},
		{"latitude out of range", "LOCATION_LAT", "123"},
		{"sample ratio above one", "OTEL_SAMPLE_RATIO", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("AIRVISUAL_API_KEY")
	os.Unsetenv("APP_PORT")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AIRVISUAL_API_KEY=from-dotenv\nAPP_PORT=7070\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		os.Unsetenv("AIRVISUAL_API_KEY")
		os.Unsetenv("APP_PORT")
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.AirVisual.APIKey)
	assert.Equal(t, "7070", cfg.App.Port)
}
