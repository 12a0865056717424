// Package instrumentation provides OpenTelemetry instrumentation for
// the mailroom service.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for processing cycles and external API calls
//   - Optional tracing for cycle flows
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Pipeline Metrics:
//   - emails_processed_total: Counter of processed emails by result (success, duplicate, error)
//   - cycle_duration_seconds: Histogram of polling cycle durations by loop
//   - items_needing_review_total: Counter of items flagged for manual review
//
// External API Metrics:
//   - external_calls_total: Counter of external service calls by service, operation, status
//   - external_call_duration_seconds: Histogram of external call durations
//
// Scheduler Metrics:
//   - agendas_generated_total: Counter of pending-to-generated agenda transitions
//   - reminders_sent_total: Counter of meeting reminders by kind
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (stdout, none, default: none)
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: mailroom)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "mailroom",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordEmailProcessed(ctx, instrumentation.ResultSuccess)
//	recorder.RecordExternalCall(ctx, "notion", "query", "success", time.Since(start))
package instrumentation
