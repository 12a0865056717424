package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultOpsAddr is the default address for the ops server.
	DefaultOpsAddr = ":9090"

	// DefaultReadTimeout is the default read timeout for the ops server.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default write timeout for the ops server.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the default idle timeout for the ops server.
	DefaultIdleTimeout = 60 * time.Second
)

// OpsServer serves Prometheus metrics and health probes on a dedicated
// port, isolated from any application traffic.
type OpsServer struct {
	httpServer *http.Server
	addr       string
	health     *HealthChecker
}

// NewOpsServer creates an ops server exposing /metrics plus the health
// endpoints of the given checker.
func NewOpsServer(addr string, health *HealthChecker) *OpsServer {
	if addr == "" {
		addr = DefaultOpsAddr
	}
	return &OpsServer{
		addr:   addr,
		health: health,
	}
}

// Start starts the ops server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *OpsServer) Start() error {
	mux := http.NewServeMux()

	// The OpenTelemetry prometheus exporter registers metrics to the
	// global Prometheus registry, which promhttp.Handler() exposes.
	mux.Handle("/metrics", promhttp.Handler())
	s.health.RegisterHealthEndpoints(mux)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	slog.Info("starting ops server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the ops server.
func (s *OpsServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		slog.Info("shutting down ops server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured address for the ops server.
func (s *OpsServer) Addr() string {
	return s.addr
}
