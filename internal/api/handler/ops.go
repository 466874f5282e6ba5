// Package handler provides HTTP handlers for the AirVitals API.
package handler

import (
	"net/http"
	"time"

	"github.com/airvitals/airvitals/internal/api/models"
	"github.com/airvitals/airvitals/internal/api/response"
	"github.com/airvitals/airvitals/internal/provider/resilience"
	"github.com/airvitals/airvitals/internal/refresh"
)

// StateSource exposes the current refresh state.
type StateSource interface {
	State() refresh.State
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	state     StateSource
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, state StateSource, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		state:     state,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. The service is ready once a
// report has been fetched successfully.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	s := h.state.State()

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"phase": string(s.Phase),
		},
	}
	if s.Phase != refresh.PhaseSuccess {
		health.Status = models.HealthStatusFail
		if s.Message != "" {
			health.Details["message"] = s.Message
		}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and refresh status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	s := h.state.State()

	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Refresh: models.RefreshStatus{
			Phase:       string(s.Phase),
			Generation:  s.Generation,
			RefreshedAt: models.TimestampPtr(s.RefreshedAt),
		},
		Providers: []models.ProviderStatus{},
	}

	if h.registry != nil {
		status.Status = healthStatus(h.registry.Overall())
		for _, p := range h.registry.GetAllHealth() {
			status.Providers = append(status.Providers, providerStatus(p))
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(p *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            p.Name,
		Status:              healthStatus(p.Level()),
		CircuitState:        p.CircuitState.String(),
		ConsecutiveFailures: p.Counts.ConsecutiveFailures,
	}
	if p.LastSuccessAt != nil {
		ps.LastSuccessAt = models.TimestampPtr(*p.LastSuccessAt)
	}
	if p.LastFailureAt != nil {
		ps.LastFailureAt = models.TimestampPtr(*p.LastFailureAt)
	}
	if p.LastError != "" {
		msg := p.LastError
		ps.Message = &msg
	}
	return ps
}

func healthStatus(level string) models.HealthStatus {
	switch level {
	case resilience.HealthDown:
		return models.HealthStatusFail
	case resilience.HealthDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
