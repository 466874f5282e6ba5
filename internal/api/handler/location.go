package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/airvitals/airvitals/internal/api/models"
	"github.com/airvitals/airvitals/internal/api/response"
	"github.com/airvitals/airvitals/internal/geolocation"
)

// LocationHandler accepts pushed positions and relocation requests.
type LocationHandler struct {
	refresher Refresher
	logger    zerolog.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(refresher Refresher, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{refresher: refresher, logger: logger}
}

// UpdateLocation handles PUT /v1/location. A changed position fetches a new
// report before responding.
func (h *LocationHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var input models.LocationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid location", errs)
		return
	}

	pos := geolocation.Coordinates{Latitude: *input.Latitude, Longitude: *input.Longitude}
	s, err := h.refresher.UpdateCoordinates(r.Context(), pos)
	if err != nil {
		if errors.Is(err, geolocation.ErrInvalidCoordinates) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		// the request went away; the fetch itself carries on
		h.logger.Debug().Err(err).Msg("location update returned early")
	}
	response.JSON(w, r, http.StatusOK, stateView(s))
}

// Locate handles POST /v1/location/locate. Location failures are reported
// through the state message.
func (h *LocationHandler) Locate(w http.ResponseWriter, r *http.Request) {
	s, err := h.refresher.Locate(r.Context())
	if err != nil {
		h.logger.Info().Err(err).Msg("relocation failed")
	}
	response.JSON(w, r, http.StatusOK, stateView(s))
}
