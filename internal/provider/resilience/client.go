package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the provider while its
// breaker is open or saturated half-open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// DefaultUserAgent is sent when a request carries no User-Agent.
const DefaultUserAgent = "airvitals/1.0"

// RetryPolicy controls exponential backoff between attempts. The zero value
// sends each request once.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func (p RetryPolicy) backoff(ctx context.Context) backoff.BackOff {
	if p.MaxRetries == 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	if bo.InitialInterval <= 0 {
		bo.InitialInterval = 100 * time.Millisecond
	}
	bo.MaxInterval = p.MaxInterval
	if bo.MaxInterval <= 0 {
		bo.MaxInterval = 5 * time.Second
	}
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxRetries), ctx)
}

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name keys the breaker, the registry entry and the metric attributes.
	Name string

	// Timeout bounds each attempt (default: 10s).
	Timeout time.Duration

	Retry RetryPolicy

	// CircuitBreaker defaults to DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry and Metrics are optional.
	Registry *Registry
	Metrics  *ProviderMetrics

	// Logger receives a debug line per retried attempt.
	Logger zerolog.Logger

	UserAgent string
}

// DefaultClientConfig returns a retrying client configuration.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:           name,
		Timeout:        10 * time.Second,
		Retry:          DefaultRetryPolicy(),
		CircuitBreaker: &cb,
		Logger:         zerolog.Nop(),
	}
}

// SingleShotClientConfig is DefaultClientConfig without retries. Used for
// providers where a failed attempt must surface to the user immediately.
func SingleShotClientConfig(name string) ClientConfig {
	cfg := DefaultClientConfig(name)
	cfg.Retry = RetryPolicy{}
	return cfg
}

// Client is an HTTP client guarded by a circuit breaker.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
}

// NewClient creates a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	cb := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cb = *cfg.CircuitBreaker
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    NewCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type param, not response
		config:     cfg,
	}

	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.config.Name
}

// Do sends req using its own context.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext sends req through the breaker, retrying transport errors and
// 5xx responses according to the retry policy. A 5xx that is still failing
// after the last attempt is returned with a nil error; the breaker, registry
// and metrics all count it as a failure.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.send(ctx, req)
	c.record(ctx, req, resp, err, time.Since(start))
	return resp, err
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	var last *http.Response
	keep := func(resp *http.Response) {
		if last != nil && last != resp {
			last.Body.Close()
		}
		last = resp
	}

	operation := func() error {
		resp, err := c.attempt(ctx, req)
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case resp != nil:
			keep(resp)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.config.Logger.Debug().
			Err(err).
			Str("provider", c.config.Name).
			Dur("backoff", wait).
			Msg("retrying provider request")
	}

	if err := backoff.RetryNotify(operation, c.config.Retry.backoff(ctx), notify); err != nil {
		if last != nil {
			return last, nil
		}
		return nil, err
	}
	return last, nil
}

func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
		out := req.Clone(ctx)
		if out.Header.Get("User-Agent") == "" {
			out.Header.Set("User-Agent", c.config.UserAgent)
		}
		resp, err := c.httpClient.Do(out)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

func (c *Client) record(ctx context.Context, req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	if err == nil && resp != nil && resp.StatusCode >= http.StatusInternalServerError {
		err = &ServerError{StatusCode: resp.StatusCode}
	}

	if c.config.Metrics != nil {
		c.config.Metrics.RecordRequest(ctx, c.config.Name, req.URL.Path, elapsed, err)
	}
	if c.config.Registry == nil {
		return
	}
	if err != nil {
		c.config.Registry.RecordFailure(c.config.Name, err)
	} else {
		c.config.Registry.RecordSuccess(c.config.Name)
	}
}

// ServerError is a 5xx provider response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the breaker's counts for the current generation.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
