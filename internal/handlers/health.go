package handlers

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"time"

	"raggy/internal/contextutil"
	"raggy/internal/vectorstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	mirror             vectorstore.VectorStore
	collectionName     string
	started            time.Time
	healthCheckTimeout time.Duration
	now                func() time.Time
}

// NewHealthHandler creates a new HealthHandler. mirror may be nil when no
// vector mirror is configured.
func NewHealthHandler(mirror vectorstore.VectorStore, collectionName string) *HealthHandler {
	return &HealthHandler{
		mirror:             mirror,
		collectionName:     collectionName,
		started:            time.Now(),
		healthCheckTimeout: 5 * time.Second,
		now:                time.Now,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// "ok" or "degraded"
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	UptimeSeconds float64           `json:"uptimeSeconds"`
	Checks        map[string]string `json:"checks"`
	Issues        []string          `json:"issues,omitempty"`
}

// ServeHTTP reports process uptime and, when configured, mirror
// reachability. Returns 503 when a configured dependency is unavailable.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	var issues []string
	if h.mirror != nil {
		if h.checkMirror(checkCtx, logger) {
			checks["mirror"] = "ok"
		} else {
			checks["mirror"] = "error"
			issues = append(issues, "mirror_unavailable")
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	now := h.now()
	writeJSON(ctx, w, httpStatus, HealthResponse{
		Status:        status,
		Timestamp:     now.UTC().Format(time.RFC3339),
		UptimeSeconds: math.Round(now.Sub(h.started).Seconds()*1000) / 1000,
		Checks:        checks,
		Issues:        issues,
	})
}

// checkMirror checks that the mirror answers. A collection that does not
// exist yet is healthy; it is created on the first ingest.
func (h *HealthHandler) checkMirror(ctx context.Context, logger *slog.Logger) bool {
	exists, err := h.mirror.CollectionExists(ctx, h.collectionName)
	if err != nil {
		logger.WarnContext(ctx, "mirror health check failed", "error", err)
		return false
	}
	if !exists {
		logger.DebugContext(ctx, "mirror collection does not exist yet", "collection", h.collectionName)
	}
	return true
}
