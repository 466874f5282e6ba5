// Package aqi maps Air Quality Index readings to their presentation band.
package aqi

import (
	"errors"
	"math"
)

// ErrInvalidReading is returned for negative or non-finite readings.
var ErrInvalidReading = errors.New("invalid AQI reading")

// Reading is a unitless pollution index as reported by the provider.
type Reading float64

// Valid reports whether the reading lies in the classifiable domain.
func (r Reading) Valid() bool {
	f := float64(r)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

// Icon identifies the glyph shown next to a reading.
type Icon string

const (
	IconAirPurifier      Icon = "air-purifier"
	IconFaceMask         Icon = "face-mask"
	IconCloudAlert       Icon = "cloud-alert"
	IconSmog             Icon = "smog"
	IconExclamationThick Icon = "exclamation-thick"
	IconSkull            Icon = "skull"
)

// Label is the human-readable severity of a band.
type Label string

const (
	LabelGood          Label = "Good"
	LabelModerate      Label = "Moderate"
	LabelUnhealthy     Label = "Unhealthy"
	LabelVeryUnhealthy Label = "Very Unhealthy"
	LabelHazardous     Label = "Hazardous"
	LabelSevere        Label = "Severe"
)

// ColorPair holds the card fill and border colours of a band.
type ColorPair struct {
	Fill   string
	Border string
}

// Band is one row of the threshold table.
// UpperBound is inclusive; the last band has UpperBound = +Inf.
type Band struct {
	UpperBound float64
	Icon       Icon
	Colors     ColorPair
	Label      Label
}

// Bounded reports whether the band has a finite upper bound.
func (b Band) Bounded() bool {
	return !math.IsInf(b.UpperBound, 1)
}

// Classification is the presentation attributes derived from a reading.
type Classification struct {
	Reading Reading
	Icon    Icon
	Colors  ColorPair
	Label   Label
}

// bands is ordered by ascending upper bound.
var bands = [...]Band{
	{UpperBound: 50, Icon: IconAirPurifier, Colors: ColorPair{Fill: "#e8f5e9", Border: "#66bb6a"}, Label: LabelGood},
	{UpperBound: 100, Icon: IconFaceMask, Colors: ColorPair{Fill: "#fff3e0", Border: "#ffa726"}, Label: LabelModerate},
	{UpperBound: 150, Icon: IconCloudAlert, Colors: ColorPair{Fill: "#fff8e1", Border: "#ffd54f"}, Label: LabelUnhealthy},
	{UpperBound: 200, Icon: IconSmog, Colors: ColorPair{Fill: "#ffebee", Border: "#ef5350"}, Label: LabelVeryUnhealthy},
	{UpperBound: 300, Icon: IconExclamationThick, Colors: ColorPair{Fill: "#f3e5f5", Border: "#ab47bc"}, Label: LabelHazardous},
	{UpperBound: math.Inf(1), Icon: IconSkull, Colors: ColorPair{Fill: "#fce4ec", Border: "#c2185b"}, Label: LabelSevere},
}

// Bands returns a copy of the threshold table.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands[:])
	return out
}
