package aqi

import (
	"fmt"
	"math"
)

// Classify returns the band attributes for a reading.
// Band upper bounds are inclusive: 50 is Good, 51 is Moderate.
func Classify(r Reading) (Classification, error) {
	if !r.Valid() {
		return Classification{}, fmt.Errorf("%w: %v", ErrInvalidReading, float64(r))
	}

	b := bandFor(r)
	return Classification{
		Reading: r,
		Icon:    b.Icon,
		Colors:  b.Colors,
		Label:   b.Label,
	}, nil
}

// MustClassify is like Classify but panics on an invalid reading.
func MustClassify(r Reading) Classification {
	c, err := Classify(r)
	if err != nil {
		panic(err)
	}
	return c
}

// IconFor returns the icon for a reading.
func IconFor(r Reading) (Icon, error) {
	c, err := Classify(r)
	return c.Icon, err
}

// ColorsFor returns the colour pair for a reading.
func ColorsFor(r Reading) (ColorPair, error) {
	c, err := Classify(r)
	return c.Colors, err
}

// LabelFor returns the severity label for a reading.
func LabelFor(r Reading) (Label, error) {
	c, err := Classify(r)
	return c.Label, err
}

func bandFor(r Reading) Band {
	f := float64(r)
	for _, b := range bands {
		if f <= b.UpperBound {
			return b
		}
	}
	// unreachable for valid readings, the last band is unbounded
	return bands[len(bands)-1]
}

// Gauge geometry for the circular AQI indicator.
const (
	GaugeRadius      = 80.0
	GaugeStrokeWidth = 15.0
	GaugeScaleMax    = 500.0
)

// Gauge describes the arcs of the circular AQI indicator.
type Gauge struct {
	Radius        float64
	StrokeWidth   float64
	Center        float64
	Circumference float64
	// Progress is the dash length of the foreground arc.
	Progress float64
	Stroke   string
}

// NewGauge computes the gauge for a classification.
// Progress scales linearly to GaugeScaleMax and is capped at a full circle.
func NewGauge(c Classification) Gauge {
	circumference := 2 * math.Pi * GaugeRadius
	progress := math.Min(float64(c.Reading)/GaugeScaleMax*circumference, circumference)

	return Gauge{
		Radius:        GaugeRadius,
		StrokeWidth:   GaugeStrokeWidth,
		Center:        GaugeRadius + GaugeStrokeWidth,
		Circumference: circumference,
		Progress:      progress,
		Stroke:        c.Colors.Border,
	}
}
