package handler

import (
	"encoding/json"
	"net/http"

	"groupcast/internal/service"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	healthService *service.HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(healthService *service.HealthChecker) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// HandleHealth handles GET requests to the /health endpoint
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	// Only accept GET requests
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Method not allowed",
		})
		return
	}

	// Perform health check
	healthStatus, err := h.healthService.CheckHealth()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Failed to perform health check",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")

	// Degraded still answers 200: the API itself works, a collaborator is
	// down. Only an unusable database reports 503.
	switch healthStatus.Status {
	case service.StatusHealthy, service.StatusDegraded:
		w.WriteHeader(http.StatusOK)
	case service.StatusUnhealthy:
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	// Encode and send health status response
	if err := json.NewEncoder(w).Encode(healthStatus); err != nil {
		// Response is already sent; nothing to do
		return
	}
}
