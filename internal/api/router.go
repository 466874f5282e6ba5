// Package api provides the HTTP API for AirVitals.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airvitals/airvitals/internal/api/handler"
	"github.com/airvitals/airvitals/internal/api/middleware"
	"github.com/airvitals/airvitals/internal/api/response"
	"github.com/airvitals/airvitals/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Controller drives the air quality state.
	Controller handler.Refresher

	// Registry feeds /v1/ops/status (optional).
	Registry *resilience.Registry

	// RequireTLS rejects forwarded plain-HTTP requests.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "airvitals-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "No route matches "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r, r.Method+" is not supported on "+r.URL.Path)
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Controller, cfg.Registry)
	airQualityHandler := handler.NewAirQualityHandler(cfg.Controller)
	locationHandler := handler.NewLocationHandler(cfg.Controller, cfg.Logger)
	aqiHandler := handler.NewAQIHandler()

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min
	refreshRateLimit := middleware.RateLimitByIP(middleware.RefreshRateLimit)   // 5 req/min

	r.Route("/v1", func(r chi.Router) {
		// Probes are not rate limited
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)

			r.Route("/air-quality", func(r chi.Router) {
				r.Get("/", airQualityHandler.GetAirQuality)
				// Reaches the provider
				r.With(refreshRateLimit).Post("/refresh", airQualityHandler.Refresh)
			})

			r.Route("/location", func(r chi.Router) {
				r.With(middleware.RequireJSON).Put("/", locationHandler.UpdateLocation)
				r.With(refreshRateLimit).Post("/locate", locationHandler.Locate)
			})

			r.Route("/aqi", func(r chi.Router) {
				r.Get("/classify", aqiHandler.Classify)
				r.Get("/bands", aqiHandler.Bands)
			})
		})
	})

	return r
}
