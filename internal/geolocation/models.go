// Package geolocation acquires the device position used to query the
// air-quality provider.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Locator errors.
var (
	ErrPermissionDenied       = errors.New("location permission denied")
	ErrUnsupportedEnvironment = errors.New("location unsupported in this environment")
	ErrPositionUnavailable    = errors.New("position unavailable")
	ErrInvalidCoordinates     = errors.New("invalid coordinates")
)

// Coordinates is a WGS84 position. The zero value is the "not yet acquired"
// sentinel.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsSentinel reports whether the coordinates cannot be used for a fetch.
// Both components must be non-zero for a position to count as acquired.
func (c Coordinates) IsSentinel() bool {
	return c.Latitude == 0 || c.Longitude == 0
}

// Validate checks the coordinate ranges. NaN is rejected.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinates, c.Latitude, c.Longitude)
	}
	return nil
}

// Permission is the outcome of a foreground location permission request.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Locator is the device geolocation service.
type Locator interface {
	// Supported reports whether the runtime can provide a location at all.
	Supported() bool

	// RequestPermission asks for foreground location access.
	RequestPermission(ctx context.Context) (Permission, error)

	// CurrentPosition takes a single position reading.
	CurrentPosition(ctx context.Context) (Coordinates, error)

	// Name returns the locator name for logging.
	Name() string
}
