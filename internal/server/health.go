package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker provides health check endpoints for liveness and
// readiness probes, plus a detailed view carrying pipeline activity.
type HealthChecker struct {
	// ready indicates whether the service finished startup
	ready atomic.Bool
	// shuttingDown is set once graceful shutdown begins
	shuttingDown atomic.Bool
	// startTime tracks when the service started
	startTime time.Time

	mu          sync.Mutex
	lastSuccess time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker() *HealthChecker {
	h := &HealthChecker{
		startTime: time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the service.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetShuttingDown marks the service as draining; readiness goes
// negative so traffic stops while in-flight cycles finish.
func (h *HealthChecker) SetShuttingDown() {
	h.shuttingDown.Store(true)
}

// RecordSuccess notes a successful processing cycle outcome, surfaced
// on the detailed health endpoint.
func (h *HealthChecker) RecordSuccess(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSuccess = t
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	LastSuccess string `json:"last_success,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// Liveness probes indicate whether the process should be restarted.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOk = false
		} else {
			checks["ready"] = healthStatusOK
		}

		if h.shuttingDown.Load() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		response := HealthResponse{Checks: checks}
		if allOk {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// DetailedHealthHandler returns an HTTP handler for the
// /healthz/detailed endpoint.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		h.mu.Lock()
		lastSuccess := h.lastSuccess
		h.mu.Unlock()

		response := DetailedHealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}
		if !lastSuccess.IsZero() {
			response.LastSuccess = lastSuccess.UTC().Format(time.RFC3339)
		}

		if !h.ready.Load() {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		} else if h.shuttingDown.Load() {
			response.Status = healthStatusShuttingDown
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
