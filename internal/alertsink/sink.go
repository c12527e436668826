// Package alertsink provides delivery channels for health alerts. It
// defines implementations of the health.Sink interface so different
// destinations (Slack, logs, nothing) can be used interchangeably through
// dependency injection.
package alertsink

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"meetscribe/internal/resilience/apperr"
	"meetscribe/internal/resilience/health"
)

// LogSink writes alerts to the structured log. It is always safe to use
// and serves as the default sink when no webhook is configured.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink creates a LogSink over the given logger (nil means the
// default logger).
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

// Name implements health.Sink.
func (s *LogSink) Name() string { return "log" }

// Dispatch implements health.Sink.
func (s *LogSink) Dispatch(alert health.Alert) error {
	attrs := []any{
		slog.String("rule", alert.Rule.ID),
		slog.String("service", alert.Service),
		slog.String("metric", string(alert.Rule.Metric)),
		slog.Float64("value", alert.Value),
		slog.Float64("threshold", alert.Rule.Threshold),
	}
	switch alert.Rule.Severity {
	case apperr.SeverityCritical, apperr.SeverityHigh:
		s.Logger.Error("health alert", attrs...)
	default:
		s.Logger.Warn("health alert", attrs...)
	}
	return nil
}

// NoopSink discards alerts. Used when alerting is disabled.
type NoopSink struct{}

// Name implements health.Sink.
func (NoopSink) Name() string { return "noop" }

// Dispatch implements health.Sink.
func (NoopSink) Dispatch(health.Alert) error { return nil }

// Webhook error types shared by HTTP-based sinks.

// RateLimitError represents a 429 rate limit response from a webhook
// service.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx client error from a webhook service.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("webhook client error %d: %s", e.StatusCode, e.Message)
}

// ServerError represents a 5xx server error from a webhook service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("webhook server error %d: %s", e.StatusCode, e.Message)
}

// IsRetryableWebhookError reports whether a webhook delivery error is worth
// retrying. Server errors are; client errors are not; rate limits carry
// their own retry-after signal.
func IsRetryableWebhookError(err error) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return false
	}
	return true
}
