package handlers

import (
	"context"
	"net/http"
	"time"

	"AlertMate/go-backend/internal/models"
	"AlertMate/go-backend/internal/services"
)

const Version = "1.0"

// HealthChecker is implemented by services.LandmarkClient.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

type StatusHandler struct {
	metrics *services.Metrics
	model   HealthChecker
	store   Store
}

func (h *StatusHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "alertmate",
		"status":  "running",
		"version": Version,
		"endpoints": []string{
			"/api/health", "/api/metrics", "/ws/monitor",
			"/api/register", "/api/login", "/api/logout", "/api/me",
			"/api/sessions", "/api/events",
		},
	})
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	st := models.HealthStatus{
		Status:         "healthy",
		GoBackend:      "running",
		ActiveSessions: h.metrics.GetActiveSessions(),
		UptimeSec:      int(h.metrics.Uptime().Seconds()),
		Version:        Version,
	}
	if h.model != nil {
		st.LandmarkModel = h.model.HealthCheck(ctx)
	}
	if h.store != nil {
		st.Database = h.store.Ping(ctx) == nil
	}
	if !st.LandmarkModel {
		st.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, st)
}

func (h *StatusHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	snap := h.metrics.Snapshot()
	snap["timestamp"] = time.Now().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, snap)
}
