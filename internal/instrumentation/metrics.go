package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrResult    = "result"
	attrLoop      = "loop"
	attrService   = "service"
	attrOperation = "operation"
	attrStatus    = "status"
	attrKind      = "kind"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// Pipeline metrics
	emailsProcessedTotal metric.Int64Counter
	cycleDuration        metric.Float64Histogram
	itemsNeedingReview   metric.Int64Counter

	// External API metrics
	externalCallsTotal   metric.Int64Counter
	externalCallDuration metric.Float64Histogram

	// Scheduler metrics
	agendasGeneratedTotal metric.Int64Counter
	remindersSentTotal    metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.emailsProcessedTotal, err = meter.Int64Counter(
		"emails_processed_total",
		metric.WithDescription("Emails processed per result: success, duplicate, or error"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create emails_processed_total counter: %w", err)
	}

	m.cycleDuration, err = meter.Float64Histogram(
		"cycle_duration_seconds",
		metric.WithDescription("Duration of one polling cycle in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle_duration_seconds histogram: %w", err)
	}

	m.itemsNeedingReview, err = meter.Int64Counter(
		"items_needing_review_total",
		metric.WithDescription("Items created with the needs-review processing status"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create items_needing_review_total counter: %w", err)
	}

	m.externalCallsTotal, err = meter.Int64Counter(
		"external_calls_total",
		metric.WithDescription("Calls to external services"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create external_calls_total counter: %w", err)
	}

	m.externalCallDuration, err = meter.Float64Histogram(
		"external_call_duration_seconds",
		metric.WithDescription("External service call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create external_call_duration_seconds histogram: %w", err)
	}

	m.agendasGeneratedTotal, err = meter.Int64Counter(
		"agendas_generated_total",
		metric.WithDescription("Meeting agendas moved from pending to generated"),
		metric.WithUnit("{agenda}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agendas_generated_total counter: %w", err)
	}

	m.remindersSentTotal, err = meter.Int64Counter(
		"reminders_sent_total",
		metric.WithDescription("Meeting reminders sent, by kind"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminders_sent_total counter: %w", err)
	}

	return m, nil
}

// RecordEmailProcessed records the outcome of one processed email.
// Result should be one of: ResultSuccess, ResultDuplicate, ResultError.
func (m *Metrics) RecordEmailProcessed(ctx context.Context, result string) {
	if m.emailsProcessedTotal == nil {
		return // Instrumentation not initialized
	}

	m.emailsProcessedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordCycle records how long one polling cycle took.
// Loop should be LoopEmail or LoopMeeting.
func (m *Metrics) RecordCycle(ctx context.Context, loop string, duration time.Duration) {
	if m.cycleDuration == nil {
		return // Instrumentation not initialized
	}

	m.cycleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrLoop, loop),
	))
}

// RecordNeedsReview records an item flagged for manual review.
func (m *Metrics) RecordNeedsReview(ctx context.Context) {
	if m.itemsNeedingReview == nil {
		return // Instrumentation not initialized
	}

	m.itemsNeedingReview.Add(ctx, 1)
}

// RecordExternalCall records an external service call with service,
// operation, status, and duration.
//
// Parameters:
//   - service: external service name (gmail, drive, notion, claude, geocode, smtp)
//   - operation: operation type (list, get, create, update, query, send, etc.)
//   - status: result status ("success" or "error")
//   - duration: time taken for the call
func (m *Metrics) RecordExternalCall(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.externalCallsTotal == nil || m.externalCallDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.externalCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.externalCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAgendaGenerated records a pending-to-generated agenda transition.
func (m *Metrics) RecordAgendaGenerated(ctx context.Context) {
	if m.agendasGeneratedTotal == nil {
		return // Instrumentation not initialized
	}

	m.agendasGeneratedTotal.Add(ctx, 1)
}

// RecordReminderSent records one meeting reminder by kind
// (approval_nag, day_before, minutes).
func (m *Metrics) RecordReminderSent(ctx context.Context, kind string) {
	if m.remindersSentTotal == nil {
		return // Instrumentation not initialized
	}

	m.remindersSentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
	))
}

// SchedulerMetrics adapts Metrics to the agenda scheduler's counter
// interface.
type SchedulerMetrics struct {
	m *Metrics
}

// NewSchedulerMetrics wraps a Metrics for use by the agenda scheduler.
func NewSchedulerMetrics(m *Metrics) *SchedulerMetrics {
	return &SchedulerMetrics{m: m}
}

// AgendaGenerated implements the scheduler metrics interface.
func (s *SchedulerMetrics) AgendaGenerated() {
	s.m.RecordAgendaGenerated(context.Background())
}

// ReminderSent implements the scheduler metrics interface.
func (s *SchedulerMetrics) ReminderSent(kind string) {
	s.m.RecordReminderSent(context.Background(), kind)
}
