package handlers

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/echowall/echowall/internal/errors"
)

// HealthResponse represents the aggregate health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse represents an individual probe response
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker defines the interface for health checkable components
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthManager manages health checks and probe states
type HealthManager struct {
	checkers map[string]HealthChecker
	version  string
}

var healthManager *HealthManager

// InitHealthManager initializes the global health manager
func InitHealthManager(version string) {
	healthManager = NewHealthManager(version)
}

// GetHealthManager returns the global health manager
func GetHealthManager() *HealthManager {
	return healthManager
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.checkers[name] = checker
}

// runHealthChecks executes all registered health checks
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	checks := make(map[string]string)

	for name, checker := range hm.checkers {
		select {
		case <-ctx.Done():
			checks[name] = "timeout"
			return checks
		default:
			if err := checker.CheckHealth(ctx); err != nil {
				checks[name] = "unhealthy"
			} else {
				checks[name] = "healthy"
			}
		}
	}

	return checks
}

// determineOverallStatus determines the aggregate health status
func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	degraded := false
	for _, status := range checks {
		if status == "unhealthy" {
			return "unhealthy"
		}
		if status == "degraded" || status == "timeout" {
			degraded = true
		}
	}

	if degraded {
		return "degraded"
	}

	return "healthy"
}

func (hm *HealthManager) probe(w http.ResponseWriter, r *http.Request, name string, timeout time.Duration) {
	checkCtx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := hm.runHealthChecks(checkCtx)
	status := hm.determineOverallStatus(checks)

	if status == "unhealthy" {
		respondWithError(w, r, apperrors.NewServiceUnavailable(name+" probe failed"))
		return
	}

	writeJSON(w, http.StatusOK, ProbeResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}

// HealthHandler handles aggregate health check requests
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm := healthManager
	if hm == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailable("health manager not initialized"))
		return
	}

	checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := hm.runHealthChecks(checkCtx)
	status := hm.determineOverallStatus(checks)

	if status == "unhealthy" {
		respondWithError(w, r, apperrors.NewServiceUnavailable("aggregate health check failed"))
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if healthManager == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailable("health manager not initialized"))
		return
	}
	healthManager.probe(w, r, "liveness", 2*time.Second)
}

// ReadinessHandler handles readiness probe requests
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if healthManager == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailable("health manager not initialized"))
		return
	}
	healthManager.probe(w, r, "readiness", 5*time.Second)
}

// StartupHandler handles startup probe requests
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	if healthManager == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailable("health manager not initialized"))
		return
	}
	healthManager.probe(w, r, "startup", 3*time.Second)
}
