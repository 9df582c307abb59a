// Package instrumentation provides OpenTelemetry instrumentation for the
// inboxpilot triage cycle.
//
// This package enables observability through:
//   - OpenTelemetry metrics for triage outcomes, Gmail API calls, and OAuth operations
//   - Tracing for the run cycle and per-message processing
//   - OTLP and stdout export support; "none" disables export while keeping
//     the instruments wired
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Triage Metrics:
//   - triage_messages_processed_total: Counter of processed messages by category and status
//   - triage_failures_total: Counter of per-message step failures by step
//   - triage_attachments_saved_total: Counter of attachments written to disk
//   - triage_replies_sent_total: Counter of automatic replies by category
//   - triage_cycle_duration_seconds: Histogram of full cycle durations
//
// Gmail API Metrics:
//   - gmail_api_operations_total: Counter of Gmail API operations by operation and status
//   - gmail_api_operation_duration_seconds: Histogram of Gmail API operation durations
//
// OAuth Authentication Metrics:
//   - oauth_auth_total: Counter of OAuth authentication events by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// # Tracing
//
// Spans are created for:
//   - The triage cycle (triage.run)
//   - Per-message processing (triage.message)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (otlp, stdout, none, default: none)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: inboxpilot)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "inboxpilot",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordMessageProcessed(ctx, "Work", "success")
//	recorder.RecordCycleDuration(ctx, "success", time.Since(start))
package instrumentation
