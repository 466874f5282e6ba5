package refresh

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/airvitals/airvitals/internal/telemetry"
)

const instrumentationName = "github.com/airvitals/airvitals/internal/refresh"

// Metrics records fetch outcomes.
type Metrics struct {
	fetchDuration metric.Float64Histogram
	fetchTotal    metric.Int64Counter
	lastAQI       metric.Float64Gauge
}

// NewMetrics creates the refresh instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := telemetry.Meter(instrumentationName)

	fetchDuration, err := meter.Float64Histogram(
		"refresh.fetch.duration",
		metric.WithDescription("Duration of air quality fetches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fetchTotal, err := meter.Int64Counter(
		"refresh.fetch.total",
		metric.WithDescription("Total number of air quality fetches by outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	lastAQI, err := meter.Float64Gauge(
		"refresh.aqi.us",
		metric.WithDescription("US AQI of the last successful fetch"),
		metric.WithUnit("{index}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		fetchDuration: fetchDuration,
		fetchTotal:    fetchTotal,
		lastAQI:       lastAQI,
	}, nil
}

func (m *Metrics) record(ctx context.Context, outcome string, elapsed time.Duration, s State) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.fetchDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.fetchTotal.Add(ctx, 1, attrs)
	if s.Report != nil {
		m.lastAQI.Record(ctx, s.Report.Current.Pollution.AQIUS)
	}
}
