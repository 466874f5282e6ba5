// Package weather holds the weather conditions reported alongside air quality.
package weather

import (
	"math"
	"time"
)

// Observation is a weather reading at a point in time.
type Observation struct {
	ObservedAt time.Time

	// Temperature in Celsius
	Temperature float64

	// Atmospheric pressure in hPa
	Pressure float64

	// Humidity percentage (0-100)
	Humidity float64

	// Wind data
	WindSpeed     float64 // m/s
	WindDirection float64 // degrees (0-360, 0=N, 90=E, 180=S, 270=W)

	// IconCode is the provider's weather icon code, e.g. "01d" or "10n".
	IconCode string
}

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionFewClouds    Condition = "FEW_CLOUDS"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionShowers      Condition = "SHOWERS"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Condition maps the icon code to a condition.
// Codes follow the OpenWeatherMap scheme: two digits plus a d/n day marker.
func (o *Observation) Condition() Condition {
	return ConditionFromIcon(o.IconCode)
}

// IsDaytime reports whether the icon code carries the day marker.
func (o *Observation) IsDaytime() bool {
	return len(o.IconCode) == 3 && o.IconCode[2] == 'd'
}

// ConditionFromIcon maps a provider icon code to a condition.
func ConditionFromIcon(code string) Condition {
	if len(code) < 2 {
		return ConditionUnknown
	}
	switch code[:2] {
	case "01":
		return ConditionClear
	case "02":
		return ConditionFewClouds
	case "03", "04":
		return ConditionClouds
	case "09":
		return ConditionShowers
	case "10":
		return ConditionRain
	case "11":
		return ConditionThunderstorm
	case "13":
		return ConditionSnow
	case "50":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}

// WindCategory categorizes wind speed for air quality impact assessment.
type WindCategory string

const (
	WindCalm     WindCategory = "CALM"     // < 1 m/s - pollutants accumulate
	WindLight    WindCategory = "LIGHT"    // 1-3 m/s - minimal dispersion
	WindModerate WindCategory = "MODERATE" // 3-8 m/s - good dispersion
	WindStrong   WindCategory = "STRONG"   // > 8 m/s - excellent dispersion
)

// WindCategory returns the wind category for the observation.
func (o *Observation) WindCategory() WindCategory {
	switch {
	case o.WindSpeed < 1:
		return WindCalm
	case o.WindSpeed < 3:
		return WindLight
	case o.WindSpeed < 8:
		return WindModerate
	default:
		return WindStrong
	}
}

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CompassPoint returns the 8-wind compass point the wind blows from.
func (o *Observation) CompassPoint() string {
	deg := math.Mod(o.WindDirection, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Round(deg/45)) % len(compassPoints)
	return compassPoints[idx]
}
