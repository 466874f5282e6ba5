// Package airquality provides the nearest-city air quality report and the
// provider contract used to fetch it.
package airquality

import (
	"context"
	"errors"
	"time"

	"github.com/airvitals/airvitals/internal/aqi"
	"github.com/airvitals/airvitals/internal/geolocation"
	"github.com/airvitals/airvitals/internal/weather"
)

// Provider errors.
var (
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrMalformedResponse   = errors.New("malformed provider response")
)

// Provider fetches the report for the city nearest to a position.
type Provider interface {
	// NearestCity issues one request for the given coordinates.
	NearestCity(ctx context.Context, at geolocation.Coordinates) (*Report, error)

	// Name returns the provider name for logging.
	Name() string
}

// Location is the GeoJSON point of the reporting city.
type Location struct {
	Type string
	// Coordinates are ordered [longitude, latitude].
	Coordinates [2]float64
}

// Point converts the GeoJSON position to coordinates.
func (l Location) Point() geolocation.Coordinates {
	return geolocation.Coordinates{Latitude: l.Coordinates[1], Longitude: l.Coordinates[0]}
}

// Pollution is the current pollution reading of a city.
type Pollution struct {
	MeasuredAt time.Time

	// AQIUS is the US EPA index.
	AQIUS float64
	// MainUS is the main pollutant for the US index, e.g. "p2".
	MainUS string

	// AQICN is the China MEP index.
	AQICN float64
	// MainCN is the main pollutant for the China index.
	MainCN string
}

// Classification classifies the US index.
func (p Pollution) Classification() (aqi.Classification, error) {
	return aqi.Classify(aqi.Reading(p.AQIUS))
}

// Current groups the current weather and pollution readings.
type Current struct {
	Weather   weather.Observation
	Pollution Pollution
}

// Forecast is one entry of the provider forecast list.
type Forecast struct {
	Weather weather.Observation

	// TempMin is the forecast minimum temperature in Celsius.
	TempMin float64

	AQIUS float64
	AQICN float64
}

// Classification classifies the forecast US index.
func (f Forecast) Classification() (aqi.Classification, error) {
	return aqi.Classify(aqi.Reading(f.AQIUS))
}

// Report is the nearest-city payload.
type Report struct {
	City    string
	State   string
	Country string

	Location Location
	Current  Current

	Forecasts []Forecast

	// FetchedAt is when this report was retrieved from the provider.
	FetchedAt time.Time

	// Provider identifies the data source.
	Provider string
}

// Place returns the "City, Country" caption.
func (r *Report) Place() string {
	switch {
	case r.City == "":
		return r.Country
	case r.Country == "":
		return r.City
	default:
		return r.City + ", " + r.Country
	}
}
