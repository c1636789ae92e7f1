package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fe-v2/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version"`
	Service   string        `json:"service"`
	Storage   StorageHealth `json:"storage"`
	AuthReady bool          `json:"auth_ready"`
}

// StorageHealth reports the session storage backend
type StorageHealth struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()
	backend := h.container.GetStorage()

	logger.Debug("Health check requested")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "fe-v2",
		Storage:   StorageHealth{Backend: backend.Name(), Status: "healthy"},
		AuthReady: h.container.GetSessionService().AuthReady(),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := backend.Health(ctx); err != nil {
		logger.WithError(err).Warn("Storage health check failed")
		response.Status = "unhealthy"
		response.Storage.Status = "unhealthy"
		response.Storage.Error = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode health check response")
	}
}
