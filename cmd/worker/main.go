// Package main provides the entrypoint for the AirVitals command worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/airvitals/airvitals/internal/api/handler"
	"github.com/airvitals/airvitals/internal/app"
	"github.com/airvitals/airvitals/internal/config"
	"github.com/airvitals/airvitals/internal/telemetry"
	"github.com/airvitals/airvitals/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airvitals-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting AirVitals worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.PubSub.ProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}

	workerCfg := worker.DefaultConfig()
	workerCfg.ProjectID = cfg.PubSub.ProjectID
	workerCfg.SubscriptionName = cfg.PubSub.Subscription

	dispatcher := worker.NewDispatcher(application.Controller, application.Registry, log)
	subscriber, err := worker.NewPubSubHandler(ctx, workerCfg, dispatcher, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}

	// Cloud Run needs an HTTP listener
	ops := handler.NewOpsHandler(Version, BuildTime, application.Controller, application.Registry)
	mux := chi.NewRouter()
	mux.Get("/health", ops.HealthCheck)
	mux.Get("/status", ops.SystemStatus)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	application.Start(ctx)

	go func() {
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("pubsub receive stopped")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
	if err := subscriber.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close pubsub client")
	}
	if err := application.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close application")
	}

	log.Info().Msg("worker stopped")
}
