package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/airvitals/airvitals/internal/provider/resilience"
	"github.com/airvitals/airvitals/internal/refresh"
)

// Errors returned by Dispatch. A failed command is redelivered; a
// malformed or unknown one is not.
var (
	ErrMalformedCommand = errors.New("malformed command")
	ErrUnknownJob       = errors.New("unknown job type")
	ErrJobFailed        = errors.New("job failed")
)

// Controller is the subset of the refresh controller driven by commands.
type Controller interface {
	State() refresh.State
	Refresh(ctx context.Context) (refresh.State, error)
	Locate(ctx context.Context) (refresh.State, error)
}

// Dispatcher runs commands against a controller.
type Dispatcher struct {
	controller Controller
	registry   *resilience.Registry
	logger     zerolog.Logger
}

// NewDispatcher creates a dispatcher. registry may be nil.
func NewDispatcher(controller Controller, registry *resilience.Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{controller: controller, registry: registry, logger: logger}
}

// Retryable reports whether a Dispatch error warrants redelivery.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrMalformedCommand) && !errors.Is(err, ErrUnknownJob)
}

// Dispatch decodes one message body and runs it.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) (string, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}

	switch cmd.JobType {
	case JobManualRefresh:
		return cmd.JobType, d.manualRefresh(ctx)
	case JobLocate:
		return cmd.JobType, d.locate(ctx)
	case JobHealthCheck:
		return cmd.JobType, d.healthCheck()
	default:
		return cmd.JobType, fmt.Errorf("%w: %q", ErrUnknownJob, cmd.JobType)
	}
}

func (d *Dispatcher) manualRefresh(ctx context.Context) error {
	s, err := d.controller.Refresh(ctx)
	switch {
	case errors.Is(err, refresh.ErrNoCoordinates):
		// nothing to refresh until a position arrives
		d.logger.Warn().Msg("manual refresh skipped, no location acquired")
		return nil
	case err != nil:
		return fmt.Errorf("%w: %w", ErrJobFailed, err)
	case s.Phase == refresh.PhaseError:
		return fmt.Errorf("%w: %s", ErrJobFailed, s.Message)
	}

	event := d.logger.Info().Uint64("generation", s.Generation)
	if s.Report != nil {
		event = event.
			Str("place", s.Report.Place()).
			Float64("aqi_us", s.Report.Current.Pollution.AQIUS)
	}
	event.Msg("manual refresh completed")
	return nil
}

// locate reruns the location chain. Location failures are user-facing
// state, not job failures.
func (d *Dispatcher) locate(ctx context.Context) error {
	s, err := d.controller.Locate(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrJobFailed, err)
	}
	if err != nil {
		d.logger.Info().Err(err).Str("failure", string(s.Failure)).Msg("relocation failed")
		return nil
	}
	if s.Phase == refresh.PhaseError {
		return fmt.Errorf("%w: %s", ErrJobFailed, s.Message)
	}
	return nil
}

func (d *Dispatcher) healthCheck() error {
	s := d.controller.State()
	level := resilience.HealthOK
	if d.registry != nil {
		level = d.registry.Overall()
	}

	d.logger.Info().
		Str("phase", string(s.Phase)).
		Str("providers", level).
		Msg("health check")

	if level == resilience.HealthDown {
		return fmt.Errorf("%w: provider circuit open", ErrJobFailed)
	}
	return nil
}
