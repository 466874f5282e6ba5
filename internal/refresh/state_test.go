package refresh_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/airvitals/airvitals/internal/airquality"
	"github.com/airvitals/airvitals/internal/geolocation"
	"github.com/airvitals/airvitals/internal/refresh"
)

var amsterdam = geolocation.Coordinates{Latitude: 52.37, Longitude: 4.89}

func TestInitial(t *testing.T) {
	s := refresh.Initial()
	assert.Equal(t, refresh.PhaseLoading, s.Phase)
	assert.True(t, s.Coordinates.IsSentinel())
	assert.Nil(t, s.Report)
	assert.Empty(t, s.Message)
	assert.Equal(t, refresh.FailureNone, s.Failure)
	assert.Zero(t, s.Generation)
}

func TestLocationFailed_StaysLoading(t *testing.T) {
	s := refresh.LocationFailed(refresh.Initial(), refresh.FailurePermissionDenied, refresh.MessagePermissionDenied)
	assert.Equal(t, refresh.PhaseLoading, s.Phase)
	assert.Equal(t, refresh.FailurePermissionDenied, s.Failure)
	assert.Equal(t, "Permission to access location was denied", s.Message)
}

func TestLocationFailed_KeepsAcquiredReport(t *testing.T) {
	report := &airquality.Report{City: "Amsterdam"}
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ok := refresh.Succeed(refresh.BeginFetch(refresh.WithCoordinates(refresh.Initial(), amsterdam), t0), report, t0.Add(time.Second))

	s := refresh.LocationFailed(ok, refresh.FailurePositionUnavailable, refresh.MessagePositionUnavailable)
	assert.Equal(t, refresh.PhaseSuccess, s.Phase)
	assert.Same(t, report, s.Report)
	assert.Equal(t, refresh.MessagePositionUnavailable, s.Message)
	assert.Nil(t, refresh.LocationFailed(refresh.Initial(), refresh.FailurePositionUnavailable, "x").Report)
}

func TestWithCoordinates_ClearsLocationFailure(t *testing.T) {
	s := refresh.LocationFailed(refresh.Initial(), refresh.FailureUnsupportedEnvironment, refresh.MessageUnsupportedEnvironment)
	s = refresh.WithCoordinates(s, amsterdam)
	assert.Equal(t, amsterdam, s.Coordinates)
	assert.Empty(t, s.Message)
	assert.Equal(t, refresh.FailureNone, s.Failure)

	failed := refresh.Fail(refresh.WithCoordinates(refresh.Initial(), amsterdam), refresh.MessageFetchFailed)
	moved := refresh.WithCoordinates(failed, geolocation.Coordinates{Latitude: 1, Longitude: 2})
	assert.Equal(t, refresh.MessageFetchFailed, moved.Message, "fetch failures survive a position change")
}

func TestFetchCycle(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	report := &airquality.Report{City: "Amsterdam"}

	s := refresh.WithCoordinates(refresh.Initial(), amsterdam)
	s = refresh.BeginFetch(s, t0)
	assert.Equal(t, refresh.PhaseLoading, s.Phase)
	assert.Equal(t, t0, s.FetchStartedAt)
	assert.Equal(t, uint64(1), s.Generation)

	ok := refresh.Succeed(s, report, t0.Add(time.Second))
	assert.Equal(t, refresh.PhaseSuccess, ok.Phase)
	assert.Same(t, report, ok.Report)
	assert.True(t, ok.RefreshedAt.After(ok.FetchStartedAt))
	assert.Empty(t, ok.Message)

	again := refresh.ForceLoading(ok)
	assert.Equal(t, refresh.PhaseLoading, again.Phase)
	assert.Nil(t, again.Report)
	assert.Equal(t, amsterdam, again.Coordinates)

	bad := refresh.Fail(refresh.BeginFetch(again, t0.Add(2*time.Second)), refresh.MessageFetchFailed)
	assert.Equal(t, refresh.PhaseError, bad.Phase)
	assert.Nil(t, bad.Report)
	assert.Equal(t, "Failed to fetch data. Please try again later.", bad.Message)
	assert.Equal(t, refresh.FailureNetworkOrParse, bad.Failure)
	assert.Equal(t, uint64(2), bad.Generation)

	// BeginFetch clears the previous error
	retry := refresh.BeginFetch(bad, t0.Add(3*time.Second))
	assert.Empty(t, retry.Message)
	assert.Equal(t, refresh.FailureNone, retry.Failure)
}

func TestTransitionsDoNotMutateInput(t *testing.T) {
	s := refresh.WithCoordinates(refresh.Initial(), amsterdam)
	_ = refresh.BeginFetch(s, time.Now())
	_ = refresh.Fail(s, "x")
	assert.Equal(t, refresh.PhaseLoading, s.Phase)
	assert.Zero(t, s.Generation)
	assert.Empty(t, s.Message)
}

func TestFailureKind_IsLocation(t *testing.T) {
	assert.True(t, refresh.FailurePermissionDenied.IsLocation())
	assert.True(t, refresh.FailureUnsupportedEnvironment.IsLocation())
	assert.True(t, refresh.FailurePositionUnavailable.IsLocation())
	assert.False(t, refresh.FailureNetworkOrParse.IsLocation())
	assert.False(t, refresh.FailureNone.IsLocation())
}
