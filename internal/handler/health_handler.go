package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bracket-be/pkg/database"
	"bracket-be/pkg/redis"
)

// HealthHandler reports service liveness and dependency health.
type HealthHandler struct {
	db    *database.PostgresDB
	cache *redis.Client
}

func NewHealthHandler(db *database.PostgresDB, cache *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	overall := "ok"
	status := http.StatusOK
	checks := map[string]string{}

	if err := h.db.Health(ctx); err != nil {
		checks["database"] = "unhealthy"
		overall = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "healthy"
	}

	switch {
	case h.cache == nil:
		checks["redis"] = "disabled"
	case h.cache.Health(ctx) != nil:
		// Cache loss degrades latency, not correctness.
		checks["redis"] = "unhealthy"
	default:
		checks["redis"] = "healthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": overall,
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
