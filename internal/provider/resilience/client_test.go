package resilience_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airvitals/airvitals/internal/provider/resilience"
)

var fastRetry = resilience.RetryPolicy{
	MaxRetries:      5,
	InitialInterval: 5 * time.Millisecond,
	MaxInterval:     20 * time.Millisecond,
}

// tolerant never trips within a test.
func tolerant(name string) *resilience.CircuitBreakerConfig {
	cb := resilience.DefaultCircuitBreakerConfig(name)
	cb.ReadyToTrip = resilience.FailureRatio(100, 0.5)
	return &cb
}

// statusSequence serves the given statuses in order, repeating the last one.
func statusSequence(statuses ...int) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
	}))
	return server, &calls
}

func get(t *testing.T, ctx context.Context, client *resilience.Client, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return client.Do(req)
}

func TestClient_SetsUserAgent(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.UserAgent())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.DefaultClientConfig("ua"))

	resp, err := get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/2")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{resilience.DefaultUserAgent, "custom/2"}, agents)
	assert.Equal(t, "ua", client.Name())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	server, calls := statusSequence(http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusOK)
	defer server.Close()

	client := resilience.NewClient(resilience.ClientConfig{
		Name:           "retry",
		Retry:          fastRetry,
		CircuitBreaker: tolerant("retry"),
	})

	resp, err := get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ExhaustedRetriesReturnLastResponse(t *testing.T) {
	server, calls := statusSequence(http.StatusInternalServerError)
	defer server.Close()

	registry := resilience.NewRegistry()
	policy := fastRetry
	policy.MaxRetries = 2

	client := resilience.NewClient(resilience.ClientConfig{
		Name:           "exhausted",
		Retry:          policy,
		CircuitBreaker: tolerant("exhausted"),
		Registry:       registry,
	})

	resp, err := get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())

	health := registry.GetHealth("exhausted")
	require.NotNil(t, health)
	assert.Equal(t, "server error: Internal Server Error", health.LastError)
}

func TestClient_SingleShotSendsOnce(t *testing.T) {
	server, calls := statusSequence(http.StatusBadGateway, http.StatusOK)
	defer server.Close()

	client := resilience.NewClient(resilience.SingleShotClientConfig("single"))

	resp, err := get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	server, calls := statusSequence(http.StatusBadRequest)
	defer server.Close()

	client := resilience.NewClient(resilience.ClientConfig{Name: "4xx", Retry: fastRetry})

	resp, err := get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BreakerOpens(t *testing.T) {
	server, calls := statusSequence(http.StatusInternalServerError)
	defer server.Close()

	cfg := resilience.SingleShotClientConfig("trip")
	cfg.CircuitBreaker.ReadyToTrip = resilience.ConsecutiveFailures(2)
	client := resilience.NewClient(cfg)

	for i := 0; i < 2; i++ {
		resp, err := get(t, context.Background(), client, server.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())

	resp, err := get(t, context.Background(), client, server.URL)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the provider")
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := resilience.SingleShotClientConfig("slow")
	cfg.Timeout = 50 * time.Millisecond
	client := resilience.NewClient(cfg)

	resp, err := get(t, context.Background(), client, server.URL)
	assert.Nil(t, resp)
	assert.Error(t, err)
}

func TestClient_CanceledContextStopsRetries(t *testing.T) {
	server, calls := statusSequence(http.StatusOK)
	defer server.Close()

	client := resilience.NewClient(resilience.ClientConfig{Name: "cancel", Retry: fastRetry})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := get(t, ctx, client, server.URL)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestClient_LogsRetries(t *testing.T) {
	server, _ := statusSequence(http.StatusServiceUnavailable, http.StatusOK)
	defer server.Close()

	var buf bytes.Buffer
	client := resilience.NewClient(resilience.ClientConfig{
		Name:           "noisy",
		Retry:          fastRetry,
		CircuitBreaker: tolerant("noisy"),
		Logger:         zerolog.New(&buf).Level(zerolog.DebugLevel),
	})

	resp, err := get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, buf.String(), "retrying provider request")
	assert.Contains(t, buf.String(), `"provider":"noisy"`)
}

func TestClient_RecordsOutcomesInRegistry(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	metrics, err := resilience.NewProviderMetrics()
	require.NoError(t, err)

	cfg := resilience.SingleShotClientConfig("recorded")
	cfg.Registry = registry
	cfg.Metrics = metrics
	client := resilience.NewClient(cfg)

	resp, err := get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	health := registry.GetHealth("recorded")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	fail.Store(true)
	resp, err = get(t, context.Background(), client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	health = registry.GetHealth("recorded")
	require.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "Service Unavailable")
}

func TestClientConfigs(t *testing.T) {
	cfg := resilience.DefaultClientConfig("airvisual")
	assert.Equal(t, "airvisual", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, resilience.DefaultRetryPolicy(), cfg.Retry)
	require.NotNil(t, cfg.CircuitBreaker)
	assert.Equal(t, "airvisual", cfg.CircuitBreaker.Name)

	single := resilience.SingleShotClientConfig("airvisual")
	assert.Zero(t, single.Retry)
	assert.NotNil(t, single.CircuitBreaker)
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := resilience.DefaultCircuitBreakerConfig("test")

	assert.Equal(t, "test", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.ReadyToTrip)
}

func TestTripPolicies(t *testing.T) {
	tests := []struct {
		name   string
		trip   func(gobreaker.Counts) bool
		counts gobreaker.Counts
		want   bool
	}{
		{"default no requests", resilience.DefaultReadyToTrip, gobreaker.Counts{}, false},
		{"default too few requests", resilience.DefaultReadyToTrip, gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{"default low failure rate", resilience.DefaultReadyToTrip, gobreaker.Counts{Requests: 10, TotalFailures: 4}, false},
		{"default half failing", resilience.DefaultReadyToTrip, gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
		{"default five of five", resilience.DefaultReadyToTrip, gobreaker.Counts{Requests: 5, TotalFailures: 5}, true},
		{"ratio custom", resilience.FailureRatio(2, 0.9), gobreaker.Counts{Requests: 2, TotalFailures: 1}, false},
		{"consecutive below", resilience.ConsecutiveFailures(3), gobreaker.Counts{ConsecutiveFailures: 2}, false},
		{"consecutive reached", resilience.ConsecutiveFailures(3), gobreaker.Counts{ConsecutiveFailures: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trip(tt.counts))
		})
	}
}

func TestServerError(t *testing.T) {
	err := &resilience.ServerError{StatusCode: http.StatusBadGateway}
	assert.Equal(t, "server error: Bad Gateway", err.Error())
}

func TestLogStateChanges(t *testing.T) {
	var buf bytes.Buffer
	onChange := resilience.LogStateChanges(zerolog.New(&buf))

	onChange("airvisual", gobreaker.StateClosed, gobreaker.StateOpen)

	assert.Contains(t, buf.String(), `"breaker":"airvisual"`)
	assert.Contains(t, buf.String(), `"to":"open"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
