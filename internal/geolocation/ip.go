package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/airvitals/airvitals/internal/provider/resilience"
)

// DefaultIPLookupURL is the ip-api.com JSON endpoint.
const DefaultIPLookupURL = "http://ip-api.com/json/"

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IPConfig configures an IPLocator.
type IPConfig struct {
	// LookupURL is the lookup endpoint (defaults to DefaultIPLookupURL).
	LookupURL string

	// HTTPClient is the HTTP client to use. If nil a resilient client is created.
	HTTPClient HTTPDoer

	// Timeout for lookups (default: 5s).
	Timeout time.Duration
}

// IPLocator approximates the position from the public IP address.
// Permission is always granted since no device sensor is involved.
type IPLocator struct {
	lookupURL  string
	httpClient HTTPDoer
}

// IPRetryPolicy is the retry policy used for IP lookups. A lookup has no
// user-visible fetch attached, so transient failures are retried.
func IPRetryPolicy() resilience.RetryPolicy {
	return resilience.RetryPolicy{
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// NewIPLocator creates an IP based locator.
func NewIPLocator(cfg IPConfig) *IPLocator {
	lookupURL := cfg.LookupURL
	if lookupURL == "" {
		lookupURL = DefaultIPLookupURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    "ip-api",
			Timeout: timeout,
			Retry:   IPRetryPolicy(),
		})
	}

	return &IPLocator{
		lookupURL:  strings.TrimSuffix(lookupURL, "/") + "/",
		httpClient: httpClient,
	}
}

// Name returns the locator name.
func (l *IPLocator) Name() string {
	return "ip"
}

// Supported always reports true.
func (l *IPLocator) Supported() bool {
	return true
}

// RequestPermission always grants.
func (l *IPLocator) RequestPermission(_ context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// CurrentPosition resolves the caller's public IP to coordinates.
func (l *IPLocator) CurrentPosition(ctx context.Context) (Coordinates, error) {
	url := l.lookupURL + "?fields=status,message,lat,lon"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Coordinates{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("%w: unexpected status code: %d", ErrPositionUnavailable, resp.StatusCode)
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coordinates{}, fmt.Errorf("decoding response: %w", err)
	}

	if body.Status != "success" {
		return Coordinates{}, fmt.Errorf("%w: %s", ErrPositionUnavailable, body.Message)
	}

	c := Coordinates{Latitude: body.Lat, Longitude: body.Lon}
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}
