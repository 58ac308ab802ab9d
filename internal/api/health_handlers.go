package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker defines the interface for components that can be health checked.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// readyTimeout bounds all dependency checks of one readiness probe.
const readyTimeout = 5 * time.Second

// HealthHandlers provides health and readiness check endpoints for Kubernetes probes.
type HealthHandlers struct {
	// Required: the cluster database.
	mongoChecker HealthChecker

	// Optional dependencies. A nil checker is reported as "disabled".
	dbChecker     HealthChecker
	redisChecker  HealthChecker
	binaryChecker HealthChecker

	now func() time.Time
}

// HealthHandlersConfig configures the health check handlers.
type HealthHandlersConfig struct {
	MongoChecker  HealthChecker
	DBChecker     HealthChecker // PostgreSQL article source
	RedisChecker  HealthChecker // snapshot cache
	BinaryChecker HealthChecker // S3-compatible endpoint
}

// NewHealthHandlers creates a new health check handler.
func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	return &HealthHandlers{
		mongoChecker:  config.MongoChecker,
		dbChecker:     config.DBChecker,
		redisChecker:  config.RedisChecker,
		binaryChecker: config.BinaryChecker,
		now:           time.Now,
	}
}

// HealthResponse represents the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness probe).
// If we can respond, we're alive.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": "ok"},
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready (readiness probe).
//
// MongoDB and the PostgreSQL article source are critical: a failure returns
// 503. The snapshot cache and the object store endpoint only degrade the
// service, so their failures are reported without failing the probe.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	critical := []struct {
		name    string
		checker HealthChecker
	}{
		{"mongodb", h.mongoChecker},
		{"postgres", h.dbChecker},
	}
	for _, c := range critical {
		status := check(ctx, c.name, c.checker)
		checks[c.name] = status
		if status == "error" {
			healthy = false
		}
	}

	optional := []struct {
		name    string
		checker HealthChecker
	}{
		{"redis", h.redisChecker},
		{"object_store", h.binaryChecker},
	}
	for _, c := range optional {
		status := check(ctx, c.name, c.checker)
		if status == "error" {
			status = "degraded"
		}
		checks[c.name] = status
	}

	// Metrics are always available (Prometheus registry is always initialized)
	checks["metrics"] = "ok"

	status, statusCode := "healthy", http.StatusOK
	if !healthy {
		status, statusCode = "unhealthy", http.StatusServiceUnavailable
	}

	h.write(w, statusCode, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

func check(ctx context.Context, name string, checker HealthChecker) string {
	if checker == nil {
		return "disabled"
	}
	if err := checker.HealthCheck(ctx); err != nil {
		slog.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
		return "error"
	}
	return "ok"
}

func (h *HealthHandlers) write(w http.ResponseWriter, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}
