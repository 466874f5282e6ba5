package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/airvitals/airvitals/internal/api/response"
	"github.com/airvitals/airvitals/internal/geolocation"
	"github.com/airvitals/airvitals/internal/refresh"
)

// Refresher is the subset of the refresh controller used by the API.
type Refresher interface {
	StateSource
	Trigger(ctx context.Context) (refresh.State, error)
	Locate(ctx context.Context) (refresh.State, error)
	UpdateCoordinates(ctx context.Context, pos geolocation.Coordinates) (refresh.State, error)
}

// AirQualityHandler serves the current report and manual refreshes.
type AirQualityHandler struct {
	refresher Refresher
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(refresher Refresher) *AirQualityHandler {
	return &AirQualityHandler{refresher: refresher}
}

// GetAirQuality handles GET /v1/air-quality.
func (h *AirQualityHandler) GetAirQuality(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, stateView(h.refresher.State()))
}

// Refresh handles POST /v1/air-quality/refresh. The fetch runs in the
// background; the response carries the LOADING state.
func (h *AirQualityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.refresher.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, refresh.ErrNoCoordinates) {
			response.Conflict(w, r, "No location has been acquired yet")
			return
		}
		response.InternalError(w, r, "Refresh could not be started")
		return
	}
	response.Accepted(w, r, "/v1/air-quality", stateView(s))
}
