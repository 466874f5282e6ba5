// Package app assembles the refresh controller and its collaborators from
// configuration. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airvitals/airvitals/internal/airquality/airvisual"
	"github.com/airvitals/airvitals/internal/config"
	"github.com/airvitals/airvitals/internal/events"
	"github.com/airvitals/airvitals/internal/geolocation"
	"github.com/airvitals/airvitals/internal/provider/resilience"
	"github.com/airvitals/airvitals/internal/refresh"
)

const ipLocatorName = "ip-api"

// App holds the wired components.
type App struct {
	Controller *refresh.Controller
	Registry   *resilience.Registry

	// Publisher is nil when no Kafka brokers are configured.
	Publisher *events.Publisher

	logger   zerolog.Logger
	mounting sync.WaitGroup
}

// New wires the locator, the AirVisual client, the controller and, when
// enabled, the transition publisher.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	registry := resilience.NewRegistry()

	providerMetrics, err := resilience.NewProviderMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating provider metrics: %w", err)
	}
	refreshMetrics, err := refresh.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating refresh metrics: %w", err)
	}

	httpCfg := resilience.SingleShotClientConfig(airvisual.ProviderName)
	httpCfg.Timeout = cfg.AirVisual.Timeout
	httpCfg.Registry = registry
	httpCfg.Metrics = providerMetrics
	httpCfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(logger)
	httpCfg.Logger = logger

	provider := airvisual.NewClient(airvisual.ClientConfig{
		APIKey:     cfg.AirVisual.APIKey,
		BaseURL:    cfg.AirVisual.BaseURL,
		HTTPClient: resilience.NewClient(httpCfg),
		Logger:     logger.With().Str("provider", airvisual.ProviderName).Logger(),
	})

	controller := refresh.NewController(refresh.Config{
		Locator:  NewLocator(cfg.Location, registry, providerMetrics, logger),
		Provider: provider,
		Metrics:  refreshMetrics,
		Logger:   logger.With().Str("component", "refresh").Logger(),
	})

	a := &App{
		Controller: controller,
		Registry:   registry,
		logger:     logger,
	}

	if cfg.Kafka.Enabled() {
		a.Publisher = events.NewPublisher(events.PublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.TopicTransitions,
			Logger:  logger.With().Str("component", "events").Logger(),
		})
		controller.Subscribe(a.Publisher.Listener())
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.TopicTransitions).
			Msg("transition publisher enabled")
	}

	return a, nil
}

// NewLocator builds the configured locator. The IP locator's client is
// registered so it shows up in the status endpoint.
func NewLocator(cfg config.LocationConfig, registry *resilience.Registry, metrics *resilience.ProviderMetrics, logger zerolog.Logger) geolocation.Locator {
	if cfg.Source == config.LocationSourceIP {
		cb := resilience.DefaultCircuitBreakerConfig(ipLocatorName)
		cb.OnStateChange = resilience.LogStateChanges(logger)
		return geolocation.NewIPLocator(geolocation.IPConfig{
			LookupURL: cfg.IPLookupURL,
			HTTPClient: resilience.NewClient(resilience.ClientConfig{
				Name:           ipLocatorName,
				Timeout:        5 * time.Second,
				Retry:          geolocation.IPRetryPolicy(),
				CircuitBreaker: &cb,
				Registry:       registry,
				Metrics:        metrics,
				Logger:         logger,
			}),
		})
	}

	return geolocation.NewStaticLocator(geolocation.StaticConfig{
		Position:    cfg.Position,
		Permission:  cfg.Permission,
		Unsupported: !cfg.DeviceSupported,
	})
}

// Start runs the mount sequence in the background.
func (a *App) Start(ctx context.Context) {
	a.mounting.Add(1)
	go func() {
		defer a.mounting.Done()
		s, err := a.Controller.Mount(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Str("phase", string(s.Phase)).Msg("initial location failed")
			return
		}
		a.logger.Info().Str("phase", string(s.Phase)).Msg("initial refresh finished")
	}()
}

// Close waits for the mount sequence and background refreshes, then
// flushes queued events.
func (a *App) Close() error {
	a.mounting.Wait()
	a.Controller.Wait()

	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	return errors.Join(errs...)
}
