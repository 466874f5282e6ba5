package geolocation

import (
	"context"
	"sync"
)

// StaticConfig configures a StaticLocator.
type StaticConfig struct {
	// Position is returned by every CurrentPosition call.
	Position Coordinates

	// Permission is the answer to RequestPermission (default: granted).
	Permission Permission

	// Unsupported simulates a runtime without location capabilities,
	// e.g. an emulator.
	Unsupported bool
}

// StaticLocator serves a fixed, configured position.
type StaticLocator struct {
	mu  sync.RWMutex
	cfg StaticConfig
}

// NewStaticLocator creates a locator that always reports cfg.Position.
func NewStaticLocator(cfg StaticConfig) *StaticLocator {
	if cfg.Permission == "" {
		cfg.Permission = PermissionGranted
	}
	return &StaticLocator{cfg: cfg}
}

// Name returns the locator name.
func (l *StaticLocator) Name() string {
	return "static"
}

// Supported reports whether the locator emulates a capable device.
func (l *StaticLocator) Supported() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.cfg.Unsupported
}

// RequestPermission returns the configured permission.
func (l *StaticLocator) RequestPermission(ctx context.Context) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return PermissionDenied, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Permission, nil
}

// CurrentPosition returns the configured position.
func (l *StaticLocator) CurrentPosition(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cfg.Position.IsSentinel() {
		return Coordinates{}, ErrPositionUnavailable
	}
	return l.cfg.Position, nil
}

// SetPosition moves the static position.
func (l *StaticLocator) SetPosition(c Coordinates) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Position = c
}

// SetPermission changes the permission answer, e.g. after the user grants
// access in the system settings.
func (l *StaticLocator) SetPermission(p Permission) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Permission = p
}
