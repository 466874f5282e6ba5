// Package refresh drives the location → fetch → display cycle of the
// nearest-city air quality report.
//
// The display state is an immutable State value. Every change goes through
// one of the named transition functions in this file; the Controller only
// sequences them.
package refresh

import (
	"time"

	"github.com/airvitals/airvitals/internal/airquality"
	"github.com/airvitals/airvitals/internal/geolocation"
)

// Phase is the display phase of the report.
type Phase string

const (
	PhaseLoading Phase = "LOADING"
	PhaseSuccess Phase = "SUCCESS"
	PhaseError   Phase = "ERROR"
)

// FailureKind classifies the last failure. Empty when there is none.
type FailureKind string

const (
	FailureNone                   FailureKind = ""
	FailurePermissionDenied       FailureKind = "PERMISSION_DENIED"
	FailureUnsupportedEnvironment FailureKind = "UNSUPPORTED_ENVIRONMENT"
	FailurePositionUnavailable    FailureKind = "POSITION_UNAVAILABLE"
	FailureNetworkOrParse         FailureKind = "NETWORK_OR_PARSE_FAILURE"
)

// IsLocation reports whether the failure came from the location chain.
func (k FailureKind) IsLocation() bool {
	switch k {
	case FailurePermissionDenied, FailureUnsupportedEnvironment, FailurePositionUnavailable:
		return true
	default:
		return false
	}
}

// User-visible messages.
const (
	MessageUnsupportedEnvironment = "Oops, this will not work on Snack in an Android Emulator. Try it on your device!"
	MessagePermissionDenied       = "Permission to access location was denied"
	MessagePositionUnavailable    = "Unable to determine your location"
	MessageFetchFailed            = "Failed to fetch data. Please try again later."
)

// State is a snapshot of the controller. Values are never mutated in place.
type State struct {
	Phase Phase

	// Coordinates are the last known position; (0,0) until located.
	Coordinates geolocation.Coordinates

	// Report is set only in PhaseSuccess.
	Report *airquality.Report

	// Message is the user-visible error string, empty when there is none.
	Message string
	Failure FailureKind

	FetchStartedAt time.Time
	RefreshedAt    time.Time

	// Generation counts fetches entered.
	Generation uint64
}

// Loading reports whether the state is in PhaseLoading.
func (s State) Loading() bool { return s.Phase == PhaseLoading }

// Initial is the state before anything has happened.
func Initial() State {
	return State{Phase: PhaseLoading}
}

// WithCoordinates stores a position. A pending location failure is cleared.
func WithCoordinates(s State, c geolocation.Coordinates) State {
	s.Coordinates = c
	if s.Failure.IsLocation() {
		s.Failure = FailureNone
		s.Message = ""
	}
	return s
}

// LocationFailed records a location-chain failure. Before any position is
// known the phase is left at PhaseLoading and the message is the only
// signal. Once coordinates exist the phase and report are kept.
func LocationFailed(s State, kind FailureKind, msg string) State {
	s.Failure = kind
	s.Message = msg
	if s.Coordinates.IsSentinel() {
		s.Phase = PhaseLoading
		s.Report = nil
	}
	return s
}

// BeginFetch enters the fetching state.
func BeginFetch(s State, at time.Time) State {
	s.Phase = PhaseLoading
	s.Report = nil
	s.Message = ""
	s.Failure = FailureNone
	s.FetchStartedAt = at
	s.Generation++
	return s
}

// Succeed stores a fetched report.
func Succeed(s State, report *airquality.Report, at time.Time) State {
	s.Phase = PhaseSuccess
	s.Report = report
	s.Message = ""
	s.Failure = FailureNone
	s.RefreshedAt = at
	return s
}

// Fail records a failed fetch. No report survives a failure.
func Fail(s State, msg string) State {
	s.Phase = PhaseError
	s.Report = nil
	s.Message = msg
	s.Failure = FailureNetworkOrParse
	return s
}

// ForceLoading is the manual refresh entry: the display goes back to
// loading while the coordinates are kept.
func ForceLoading(s State) State {
	s.Phase = PhaseLoading
	s.Report = nil
	return s
}
