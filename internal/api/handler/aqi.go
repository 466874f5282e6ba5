package handler

import (
	"net/http"
	"strconv"

	"github.com/airvitals/airvitals/internal/api/models"
	"github.com/airvitals/airvitals/internal/api/response"
	"github.com/airvitals/airvitals/internal/aqi"
)

// AQIHandler exposes the classifier.
type AQIHandler struct{}

// NewAQIHandler creates a new AQIHandler.
func NewAQIHandler() *AQIHandler {
	return &AQIHandler{}
}

// Classify handles GET /v1/aqi/classify?value=.
func (h *AQIHandler) Classify(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("value")
	if raw == "" {
		response.BadRequest(w, r, "value is required", []models.FieldError{
			{Field: "value", Message: "value is required", Code: models.CodeRequired},
		})
		return
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		response.BadRequest(w, r, "value must be a number", []models.FieldError{
			{Field: "value", Message: "value must be a number", Code: models.CodeInvalidNumber},
		})
		return
	}

	c, err := aqi.Classify(aqi.Reading(value))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "value", Message: "value must be a finite, non-negative number", Code: models.CodeOutOfRange},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.ClassifyResponse{
		Classification: classificationView(c),
		Gauge:          gaugeView(aqi.NewGauge(c)),
	})
}

// Bands handles GET /v1/aqi/bands.
func (h *AQIHandler) Bands(w http.ResponseWriter, r *http.Request) {
	bands := aqi.Bands()
	list := models.BandList{Items: make([]models.Band, 0, len(bands))}
	for _, b := range bands {
		list.Items = append(list.Items, bandView(b))
	}
	response.JSON(w, r, http.StatusOK, list)
}
