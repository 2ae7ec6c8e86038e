package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/teamhub/internal/assistant"
	"github.com/ashureev/teamhub/internal/history"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	history  *history.Store
	writer   *history.AsyncWriter
	sessions *assistant.Sessions
	conns    *ConnManager
}

// NewHealthHandler creates a new health handler. Any dependency may be nil.
func NewHealthHandler(hist *history.Store, writer *history.AsyncWriter, sessions *assistant.Sessions, conns *ConnManager) *HealthHandler {
	return &HealthHandler{history: hist, writer: writer, sessions: sessions, conns: conns}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if h.history != nil {
		if err := h.history.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			status["status"] = "degraded"
			checks["history"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["history"] = "ok"
		}
	}
	if h.writer != nil {
		status["history_writer"] = h.writer.Stats()
	}
	if h.sessions != nil {
		status["conversations_in_memory"] = h.sessions.Len()
	}
	if h.conns != nil {
		status["websocket_connections"] = h.conns.Count()
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
