// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/airvitals/airvitals/internal/geolocation"
)

// Location sources.
const (
	LocationSourceStatic = "static"
	LocationSourceIP     = "ip"
)

// ErrInvalidConfig is returned for values that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete service configuration.
type Config struct {
	App       AppConfig
	AirVisual AirVisualConfig
	Location  LocationConfig
	Telemetry TelemetryConfig
	Kafka     KafkaConfig
	PubSub    PubSubConfig
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Port        string
	Environment string

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool
}

// AirVisualConfig configures the AirVisual client. The API key is passed
// through unvalidated.
type AirVisualConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// LocationConfig selects and configures the locator.
type LocationConfig struct {
	Source string

	// Position is used by the static source.
	Position geolocation.Coordinates

	Permission geolocation.Permission

	// DeviceSupported false emulates a device without location services.
	DeviceSupported bool

	IPLookupURL string
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// KafkaConfig configures the transition publisher. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers          []string
	TopicTransitions string
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// PubSubConfig configures the worker command subscription.
type PubSubConfig struct {
	ProjectID    string
	Subscription string
}

// Load reads configuration. A .env file in the working directory is loaded
// first when present; real environment variables take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Port:        getEnv("APP_PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
			RequireTLS:  getEnvAsBool("REQUIRE_TLS", false),
		},
		AirVisual: AirVisualConfig{
			APIKey:  getEnv("AIRVISUAL_API_KEY", ""),
			BaseURL: getEnv("AIRVISUAL_BASE_URL", "http://api.airvisual.com/v2"),
			Timeout: getEnvAsDuration("AIRVISUAL_TIMEOUT", 10*time.Second),
		},
		Location: LocationConfig{
			Source: strings.ToLower(getEnv("LOCATION_SOURCE", LocationSourceStatic)),
			Position: geolocation.Coordinates{
				Latitude:  getEnvAsFloat("LOCATION_LAT", 0),
				Longitude: getEnvAsFloat("LOCATION_LON", 0),
			},
			Permission:      geolocation.Permission(strings.ToLower(getEnv("LOCATION_PERMISSION", string(geolocation.PermissionGranted)))),
			DeviceSupported: getEnvAsBool("LOCATION_DEVICE", true),
			IPLookupURL:     getEnv("LOCATION_IP_URL", geolocation.DefaultIPLookupURL),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
		Kafka: KafkaConfig{
			Brokers:          getEnvAsList("KAFKA_BROKERS"),
			TopicTransitions: getEnv("KAFKA_TOPIC_TRANSITIONS", "airvitals.refresh.transitions"),
		},
		PubSub: PubSubConfig{
			ProjectID:    getEnv("PUBSUB_PROJECT_ID", ""),
			Subscription: getEnv("PUBSUB_SUBSCRIPTION", "airvitals-commands"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Location.Source {
	case LocationSourceStatic, LocationSourceIP:
	default:
		return fmt.Errorf("%w: LOCATION_SOURCE %q", ErrInvalidConfig, c.Location.Source)
	}
	switch c.Location.Permission {
	case geolocation.PermissionGranted, geolocation.PermissionDenied:
	default:
		return fmt.Errorf("%w: LOCATION_PERMISSION %q", ErrInvalidConfig, c.Location.Permission)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: OTEL_SAMPLE_RATIO %v", ErrInvalidConfig, c.Telemetry.SampleRatio)
	}
	if err := c.Location.Position.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
