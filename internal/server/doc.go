// Package server provides the ops HTTP server: Prometheus metrics and
// health probe endpoints on a dedicated port, separate from the
// processing loops.
//
// The HealthChecker exposes liveness (/healthz), readiness (/readyz),
// and a detailed endpoint reporting uptime and the time of the last
// successful processing cycle.
package server
