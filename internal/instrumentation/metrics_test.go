package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestMetrics_RecordEmailProcessed(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordEmailProcessed(ctx, ResultSuccess)
	metrics.RecordEmailProcessed(ctx, ResultDuplicate)
	metrics.RecordEmailProcessed(ctx, ResultError)
}

func TestMetrics_RecordCycle(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t).Metrics()

	// Should not panic
	metrics.RecordCycle(ctx, LoopEmail, 2*time.Second)
	metrics.RecordCycle(ctx, LoopMeeting, 500*time.Millisecond)
}

func TestMetrics_RecordExternalCall(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t).Metrics()

	// Should not panic
	metrics.RecordExternalCall(ctx, ServiceGmail, "list", StatusSuccess, 200*time.Millisecond)
	metrics.RecordExternalCall(ctx, ServiceNotion, "query", StatusError, 500*time.Millisecond)
	metrics.RecordExternalCall(ctx, ServiceClaude, "complete", StatusSuccess, 3*time.Second)
}

func TestMetrics_SchedulerCounters(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t).Metrics()

	// Should not panic
	metrics.RecordAgendaGenerated(ctx)
	metrics.RecordReminderSent(ctx, "approval_nag")
	metrics.RecordReminderSent(ctx, "day_before")
	metrics.RecordNeedsReview(ctx)

	adapter := NewSchedulerMetrics(metrics)
	adapter.AgendaGenerated()
	adapter.ReminderSent("minutes")
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil even when disabled")
	}

	// All these should not panic even with nil underlying metrics
	metrics.RecordEmailProcessed(ctx, ResultSuccess)
	metrics.RecordCycle(ctx, LoopEmail, time.Second)
	metrics.RecordExternalCall(ctx, ServiceGmail, "list", StatusSuccess, time.Second)
	metrics.RecordAgendaGenerated(ctx)
	metrics.RecordReminderSent(ctx, "minutes")
	metrics.RecordNeedsReview(ctx)
}

func TestProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to report disabled")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected a noop tracer, got nil")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider should be a no-op, got %v", err)
	}
}
