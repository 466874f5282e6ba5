// Package airvisual provides a client for the IQAir AirVisual API.
package airvisual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airvitals/airvitals/internal/airquality"
	"github.com/airvitals/airvitals/internal/geolocation"
	"github.com/airvitals/airvitals/internal/provider/resilience"
	"github.com/airvitals/airvitals/internal/weather"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "airvisual"

	// DefaultBaseURL is the AirVisual v2 API base URL.
	DefaultBaseURL = "http://api.airvisual.com/v2"
)

// ClientConfig holds configuration for the AirVisual client.
type ClientConfig struct {
	// APIKey is the AirVisual API key. An empty key is sent as-is and
	// rejected by the provider.
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a single-shot resilient
	// client is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an AirVisual API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new AirVisual client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.SingleShotClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// NearestCity fetches the report of the city nearest to the coordinates.
func (c *Client) NearestCity(ctx context.Context, at geolocation.Coordinates) (*airquality.Report, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("key", c.apiKey)
	endpoint := c.baseURL + "/nearest_city?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Float64("lat", at.Latitude).
		Float64("lon", at.Longitude).
		Msg("fetching nearest city report")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", airquality.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	var envelope responseEnvelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode != http.StatusOK {
		// AirVisual reports auth and quota errors as {"status":"fail","data":{"message":...}}
		msg := ""
		if decodeErr == nil {
			msg = envelope.failureMessage()
		}
		return nil, fmt.Errorf("%w: unexpected status code %d %s", airquality.ErrProviderUnavailable, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", airquality.ErrMalformedResponse, decodeErr)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("%w: status %q: %s", airquality.ErrProviderUnavailable, envelope.Status, envelope.failureMessage())
	}

	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil, fmt.Errorf("%w: missing data", airquality.ErrMalformedResponse)
	}
	var data cityData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decoding data: %w", airquality.ErrMalformedResponse, err)
	}
	if data.Current == nil || data.Current.Pollution == nil {
		return nil, fmt.Errorf("%w: missing current pollution", airquality.ErrMalformedResponse)
	}

	return c.toReport(&data), nil
}

// toReport converts the AirVisual payload to the domain model.
func (c *Client) toReport(d *cityData) *airquality.Report {
	report := &airquality.Report{
		City:    d.City,
		State:   d.State,
		Country: d.Country,
		Location: airquality.Location{
			Type:        d.Location.Type,
			Coordinates: d.Location.Coordinates,
		},
		Current: airquality.Current{
			Weather: toObservation(d.Current.Weather),
			Pollution: airquality.Pollution{
				MeasuredAt: parseTimestamp(d.Current.Pollution.Ts),
				AQIUS:      d.Current.Pollution.AQIUS,
				MainUS:     d.Current.Pollution.MainUS,
				AQICN:      d.Current.Pollution.AQICN,
				MainCN:     d.Current.Pollution.MainCN,
			},
		},
		Forecasts: make([]airquality.Forecast, 0, len(d.Forecasts)),
		FetchedAt: c.now(),
		Provider:  ProviderName,
	}

	for _, f := range d.Forecasts {
		report.Forecasts = append(report.Forecasts, airquality.Forecast{
			Weather: toObservation(f.weatherData),
			TempMin: f.TpMin,
			AQIUS:   f.AQIUS,
			AQICN:   f.AQICN,
		})
	}

	return report
}

func toObservation(w weatherData) weather.Observation {
	return weather.Observation{
		ObservedAt:    parseTimestamp(w.Ts),
		Temperature:   w.Tp,
		Pressure:      w.Pr,
		Humidity:      w.Hu,
		WindSpeed:     w.Ws,
		WindDirection: w.Wd,
		IconCode:      w.Ic,
	}
}

// parseTimestamp parses provider timestamps such as "2019-04-08T18:00:00.000Z".
// Unparseable values yield the zero time.
func parseTimestamp(ts string) time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AirVisual API response structures.

type responseEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (e *responseEnvelope) failureMessage() string {
	var failure struct {
		Message string `json:"message"`
	}
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &failure) != nil {
		return ""
	}
	return failure.Message
}

type cityData struct {
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Location struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	} `json:"location"`
	Current   *currentData   `json:"current"`
	Forecasts []forecastData `json:"forecasts"`
}

// Pollution is required; a response without it is rejected.
type currentData struct {
	Weather   weatherData    `json:"weather"`
	Pollution *pollutionData `json:"pollution"`
}

type pollutionData struct {
	Ts     string  `json:"ts"`
	AQIUS  float64 `json:"aqius"`
	MainUS string  `json:"mainus"`
	AQICN  float64 `json:"aqicn"`
	MainCN string  `json:"maincn"`
}

type weatherData struct {
	Ts string  `json:"ts"`
	Tp float64 `json:"tp"`
	Pr float64 `json:"pr"`
	Hu float64 `json:"hu"`
	Ws float64 `json:"ws"`
	Wd float64 `json:"wd"`
	Ic string  `json:"ic"`
}

type forecastData struct {
	weatherData
	TpMin float64 `json:"tp_min"`
	AQIUS float64 `json:"aqius"`
	AQICN float64 `json:"aqicn"`
}
