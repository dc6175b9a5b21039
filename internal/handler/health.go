package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"lokasi-umkm-backend/internal/ports"
)

// HealthHandler exposes a readiness probe.
type HealthHandler struct {
	DB ports.HealthChecker
}

func (h HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Health(ctx); err != nil {
		writeRawJSON(w, http.StatusServiceUnavailable, apiResponse{
			Success: false,
			Message: "database unavailable",
			Data:    map[string]string{"status": "degraded"},
		})
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]string{"status": "ok"})
}
