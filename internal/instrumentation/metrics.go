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
	// Common attributes (reused across metrics)
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrCategory  = "category"
	attrStep      = "step"
	attrSender    = "sender_domain"
)

// Metrics provides methods for recording observability metrics.
// All Record methods are safe to call on a nil or zero-value receiver;
// they simply do nothing when instrumentation is not initialized.
type Metrics struct {
	// Triage metrics
	messagesProcessedTotal metric.Int64Counter
	triageFailuresTotal    metric.Int64Counter
	attachmentsSavedTotal  metric.Int64Counter
	repliesSentTotal       metric.Int64Counter
	cycleDuration          metric.Float64Histogram

	// Gmail API metrics
	gmailOperationsTotal   metric.Int64Counter
	gmailOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal         metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// Triage metrics
	m.messagesProcessedTotal, err = meter.Int64Counter(
		"triage_messages_processed_total",
		metric.WithDescription("Total number of messages processed by the triage cycle"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_messages_processed_total counter: %w", err)
	}

	m.triageFailuresTotal, err = meter.Int64Counter(
		"triage_failures_total",
		metric.WithDescription("Total number of per-message triage step failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_failures_total counter: %w", err)
	}

	m.attachmentsSavedTotal, err = meter.Int64Counter(
		"triage_attachments_saved_total",
		metric.WithDescription("Total number of attachments written to disk"),
		metric.WithUnit("{attachment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_attachments_saved_total counter: %w", err)
	}

	m.repliesSentTotal, err = meter.Int64Counter(
		"triage_replies_sent_total",
		metric.WithDescription("Total number of automatic replies sent"),
		metric.WithUnit("{reply}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_replies_sent_total counter: %w", err)
	}

	m.cycleDuration, err = meter.Float64Histogram(
		"triage_cycle_duration_seconds",
		metric.WithDescription("Duration of a full triage cycle in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_cycle_duration_seconds histogram: %w", err)
	}

	// Gmail API metrics
	m.gmailOperationsTotal, err = meter.Int64Counter(
		"gmail_api_operations_total",
		metric.WithDescription("Total number of Gmail API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operations_total counter: %w", err)
	}

	m.gmailOperationDuration, err = meter.Float64Histogram(
		"gmail_api_operation_duration_seconds",
		metric.WithDescription("Gmail API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operation_duration_seconds histogram: %w", err)
	}

	// OAuth Metrics
	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	return m, nil
}

// RecordMessageProcessed records a processed message with its category and
// final status ("success", "error" or "skipped").
func (m *Metrics) RecordMessageProcessed(ctx context.Context, category, status string) {
	if m == nil || m.messagesProcessedTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrCategory, category),
		attribute.String(attrStatus, status),
	}

	m.messagesProcessedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTriageFailure records a per-message step failure.
// Step should be one of: "fetch", "classify", "label", "reply", "attachments".
func (m *Metrics) RecordTriageFailure(ctx context.Context, step string) {
	if m == nil || m.triageFailuresTotal == nil {
		return // Instrumentation not initialized
	}

	m.triageFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStep, step),
	))
}

// RecordAttachmentsSaved records the number of attachments written to disk
// for a single message.
func (m *Metrics) RecordAttachmentsSaved(ctx context.Context, count int64) {
	if m == nil || m.attachmentsSavedTotal == nil || count <= 0 {
		return
	}

	m.attachmentsSavedTotal.Add(ctx, count)
}

// RecordReplySent records a sent reply with its category and, when detailed
// labels are enabled, the sender domain.
func (m *Metrics) RecordReplySent(ctx context.Context, category, senderDomain string) {
	if m == nil || m.repliesSentTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrCategory, category),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && senderDomain != "" {
		attrs = append(attrs, attribute.String(attrSender, senderDomain))
	}

	m.repliesSentTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCycleDuration records the duration of a full triage cycle.
func (m *Metrics) RecordCycleDuration(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.cycleDuration == nil {
		return // Instrumentation not initialized
	}

	m.cycleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrStatus, status),
	))
}

// RecordGmailOperation records a Gmail API operation with operation type,
// status, and duration.
//
// Parameters:
//   - operation: Operation type (list, get, attachment, label, modify, send)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGmailOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.gmailOperationsTotal == nil || m.gmailOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.gmailOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.gmailOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records an OAuth authentication attempt with result.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure", "expired"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}
