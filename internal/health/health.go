// Package health provides liveness and readiness endpoints for this process.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Monitor is the part of the service monitor readiness depends on.
type Monitor interface {
	Sweeps() int64
	Running() bool
	LastChecked() time.Time
}

// HealthCheck serves /health and /ready.
type HealthCheck struct {
	monitor Monitor
	version string
	started time.Time
	logger  *zap.Logger
}

// NewHealthCheck creates a new HealthCheck instance.
func NewHealthCheck(monitor Monitor, version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		monitor: monitor,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler handles GET /health requests.
// Returns 200 OK if the process is running.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "healthy",
		Service: "startup-os",
		Version: hc.version,
		Uptime:  time.Since(hc.started).Round(time.Second).String(),
	})
}

// ReadinessHandler handles GET /ready requests.
// Returns 200 OK once the first sweep has completed.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if hc.monitor.Sweeps() == 0 {
		hc.logger.Debug("readiness probe before first sweep",
			zap.Bool("sweep_running", hc.monitor.Running()))
		writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{
			Status: "not_ready",
			Checks: map[string]string{"monitor": "waiting for first sweep"},
		})
		return
	}

	writeJSON(w, http.StatusOK, ReadinessResponse{
		Status: "ready",
		Checks: map[string]string{
			"monitor":      "ready",
			"last_checked": hc.monitor.LastChecked().UTC().Format(time.RFC3339),
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
