package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/airvitals/airvitals/internal/airquality"
	"github.com/airvitals/airvitals/internal/geolocation"
	"github.com/airvitals/airvitals/internal/telemetry"
)

// ErrNoCoordinates is returned by Refresh and Trigger before a position is known.
var ErrNoCoordinates = errors.New("no coordinates available")

const flightKey = "nearest_city"

// Transition is delivered to listeners for every state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Listener observes transitions. Listeners may be called from different
// goroutines and must not block.
type Listener func(Transition)

// Config holds the controller dependencies.
type Config struct {
	Locator  geolocation.Locator
	Provider airquality.Provider

	// Clock defaults to time.Now.
	Clock func() time.Time

	// Metrics is optional.
	Metrics *Metrics

	Logger zerolog.Logger
}

// Controller owns the display state and sequences location and fetch work.
type Controller struct {
	locator  geolocation.Locator
	provider airquality.Provider
	clock    func() time.Time
	metrics  *Metrics
	logger   zerolog.Logger

	mu        sync.Mutex
	state     State
	pending   bool
	mounted   bool
	listeners []Listener

	flights  singleflight.Group
	inflight sync.WaitGroup
}

// NewController creates a controller in the initial state.
func NewController(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		locator:  cfg.Locator,
		provider: cfg.Provider,
		clock:    clock,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		state:    Initial(),
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a listener for subsequent transitions.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Mount runs the location chain once. Later calls return the current state.
func (c *Controller) Mount(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.mounted {
		s := c.state
		c.mu.Unlock()
		return s, nil
	}
	c.mounted = true
	c.mu.Unlock()

	return c.Locate(ctx)
}

// Locate runs the location chain: support check, permission request, one
// position reading. Before a position is known a failure leaves the phase at
// LOADING with a message; afterwards the last report stays on display and
// only the message is recorded. A cancelled ctx returns without a transition.
// A new position is handed to UpdateCoordinates.
func (c *Controller) Locate(ctx context.Context) (State, error) {
	if !c.locator.Supported() {
		c.logger.Warn().Str("locator", c.locator.Name()).Msg("location services unsupported")
		return c.locationFailed(FailureUnsupportedEnvironment, MessageUnsupportedEnvironment), geolocation.ErrUnsupportedEnvironment
	}

	perm, err := c.locator.RequestPermission(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return c.State(), ctxErr
	}
	if err != nil || perm != geolocation.PermissionGranted {
		c.logger.Warn().Err(err).Str("locator", c.locator.Name()).Msg("location permission denied")
		return c.locationFailed(FailurePermissionDenied, MessagePermissionDenied), wrapLocation(geolocation.ErrPermissionDenied, err)
	}

	pos, err := c.locator.CurrentPosition(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return c.State(), ctxErr
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("locator", c.locator.Name()).Msg("position unavailable")
		return c.locationFailed(FailurePositionUnavailable, MessagePositionUnavailable), wrapLocation(geolocation.ErrPositionUnavailable, err)
	}

	return c.UpdateCoordinates(ctx, pos)
}

// wrapLocation tags err with kind unless it already carries it.
func wrapLocation(kind, err error) error {
	switch {
	case err == nil:
		return kind
	case errors.Is(err, kind):
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// UpdateCoordinates stores a position. When it differs from the stored one
// and is not the (0,0) sentinel, a fetch runs and the resulting state is
// returned.
func (c *Controller) UpdateCoordinates(ctx context.Context, pos geolocation.Coordinates) (State, error) {
	if err := pos.Validate(); err != nil {
		return c.State(), err
	}

	var changed bool
	s := c.apply(func(s State) State {
		changed = s.Coordinates != pos
		if changed && !pos.IsSentinel() {
			c.pending = true
		}
		return WithCoordinates(s, pos)
	})

	if !changed || pos.IsSentinel() {
		return s, nil
	}
	return c.fetch(ctx)
}

// Refresh forces LOADING and fetches with the last known coordinates. The
// location chain is never re-run. Fetch failures are reported through the
// returned state, not the error.
func (c *Controller) Refresh(ctx context.Context) (State, error) {
	if _, err := c.forceLoading(); err != nil {
		return c.State(), err
	}
	return c.fetch(ctx)
}

// Trigger is Refresh without waiting: the returned state is already LOADING
// and the fetch completes in the background.
func (c *Controller) Trigger(ctx context.Context) (State, error) {
	s, err := c.forceLoading()
	if err != nil {
		return s, err
	}

	ctx = context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if _, err := c.fetch(ctx); err != nil {
			c.logger.Error().Err(err).Msg("background refresh failed")
		}
	}()
	return s, nil
}

// Wait blocks until background refreshes started by Trigger have finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) forceLoading() (State, error) {
	var err error
	s := c.apply(func(s State) State {
		if s.Coordinates.IsSentinel() {
			err = ErrNoCoordinates
			return s
		}
		c.pending = true
		return ForceLoading(s)
	})
	return s, err
}

func (c *Controller) locationFailed(kind FailureKind, msg string) State {
	return c.apply(func(s State) State { return LocationFailed(s, kind, msg) })
}

// fetch joins or starts the single flight. Callers that raced the end of a
// flight see pending still set and start another one.
func (c *Controller) fetch(ctx context.Context) (State, error) {
	for {
		ch := c.flights.DoChan(flightKey, func() (any, error) {
			return c.run(context.WithoutCancel(ctx)), nil
		})

		select {
		case res := <-ch:
			c.mu.Lock()
			pending := c.pending
			c.mu.Unlock()
			if !pending {
				return res.Val.(State), nil
			}
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

// run performs fetches until no request is pending. A result for
// coordinates that changed during the call is discarded.
func (c *Controller) run(ctx context.Context) State {
	for {
		var (
			pos   geolocation.Coordinates
			start State
			skip  bool
		)
		c.mu.Lock()
		if !c.pending || c.state.Coordinates.IsSentinel() {
			c.pending = false
			skip = true
		} else {
			c.pending = false
			pos = c.state.Coordinates
		}
		c.mu.Unlock()
		if skip {
			return c.State()
		}

		start = c.apply(func(s State) State { return BeginFetch(s, c.clock()) })

		ctx, span := telemetry.Tracer(instrumentationName).Start(ctx, "refresh.fetch")
		span.SetAttributes(
			attribute.Float64("geo.lat", pos.Latitude),
			attribute.Float64("geo.lon", pos.Longitude),
			attribute.Int64("refresh.generation", int64(start.Generation)),
		)

		report, err := c.provider.NearestCity(ctx, pos)

		var stale bool
		end := c.apply(func(s State) State {
			if s.Coordinates != pos {
				stale = true
				c.pending = true
				return s
			}
			c.pending = false
			if err != nil {
				return Fail(s, MessageFetchFailed)
			}
			return Succeed(s, report, c.clock())
		})

		elapsed := c.clock().Sub(start.FetchStartedAt)
		switch {
		case stale:
			span.SetAttributes(attribute.Bool("refresh.stale", true))
			c.metrics.record(ctx, "stale", elapsed, end)
			c.logger.Debug().Msg("coordinates changed during fetch, fetching again")
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.metrics.record(ctx, "error", elapsed, end)
			c.logger.Warn().Err(err).Str("provider", c.provider.Name()).Msg("air quality fetch failed")
		default:
			c.metrics.record(ctx, "success", elapsed, end)
			c.logger.Info().
				Str("provider", c.provider.Name()).
				Str("place", report.Place()).
				Float64("aqi_us", report.Current.Pollution.AQIUS).
				Dur("elapsed", elapsed).
				Msg("air quality refreshed")
		}
		span.End()

		if !stale {
			return end
		}
	}
}

// apply runs a transition under the lock and notifies listeners after
// releasing it. fn may touch controller fields guarded by mu.
func (c *Controller) apply(fn func(State) State) State {
	c.mu.Lock()
	from := c.state
	to := fn(from)
	c.state = to
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	if to == from {
		return to
	}
	t := Transition{From: from, To: to, At: c.clock()}
	for _, l := range listeners {
		l(t)
	}
	return to
}
