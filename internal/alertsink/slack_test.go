package alertsink

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meetscribe/internal/resilience/apperr"
	"meetscribe/internal/resilience/health"
)

func testAlert() health.Alert {
	return health.Alert{
		Rule: health.Rule{
			ID:            "transcription-error-rate",
			Service:       "transcription",
			Metric:        health.MetricErrorRate,
			Operator:      health.OpGreaterThan,
			Threshold:     0.2,
			Severity:      apperr.SeverityHigh,
			SeverityLabel: "high",
			Enabled:       true,
		},
		Service: "transcription",
		Value:   0.35,
		FiredAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestSlackSinkDispatchSuccess(t *testing.T) {
	var received slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewSlackSink(SlackConfig{WebhookURL: server.URL})
	if err := sink.Dispatch(testAlert()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Text == "" {
		t.Error("payload should carry fallback text")
	}
	if len(received.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(received.Blocks))
	}
	if received.Blocks[0].Type != "section" || received.Blocks[0].Text == nil {
		t.Error("first block should be a section with text")
	}
	if !strings.Contains(received.Blocks[0].Text.Text, "transcription") {
		t.Errorf("section text should name the service, got %q", received.Blocks[0].Text.Text)
	}
	if received.Blocks[1].Type != "context" {
		t.Errorf("second block should be context, got %q", received.Blocks[1].Type)
	}
}

func TestSlackSinkDispatchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sink := NewSlackSink(SlackConfig{WebhookURL: server.URL})
	err := sink.Dispatch(testAlert())

	var rateLimitErr *RateLimitError
	if !errors.As(err, &rateLimitErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateLimitErr.RetryAfter != 30*time.Second {
		t.Errorf("expected retry-after 30s, got %v", rateLimitErr.RetryAfter)
	}
}

func TestSlackSinkDispatchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewSlackSink(SlackConfig{WebhookURL: server.URL})
	err := sink.Dispatch(testAlert())

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", serverErr.StatusCode)
	}
}

func TestSlackSinkDispatchClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	sink := NewSlackSink(SlackConfig{WebhookURL: server.URL})
	err := sink.Dispatch(testAlert())

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if !strings.Contains(clientErr.Message, "invalid_payload") {
		t.Errorf("expected body in message, got %q", clientErr.Message)
	}
}

func TestSlackSinkUnreachableWebhook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // immediately closed: connection refused

	sink := NewSlackSink(SlackConfig{WebhookURL: server.URL, Timeout: time.Second})
	if err := sink.Dispatch(testAlert()); err == nil {
		t.Error("expected error for unreachable webhook")
	}
}

func TestIsRetryableWebhookError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &ServerError{StatusCode: 502}, true},
		{"client error", &ClientError{StatusCode: 400}, false},
		{"rate limit", &RateLimitError{RetryAfter: time.Second}, false},
		{"transport error", errors.New("dial: connection refused"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableWebhookError(tc.err); got != tc.want {
				t.Errorf("IsRetryableWebhookError(%v) = %t, want %t", tc.err, got, tc.want)
			}
		})
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	sink := NewLogSink(nil)
	if err := sink.Dispatch(testAlert()); err != nil {
		t.Errorf("log sink should not fail, got %v", err)
	}
	if sink.Name() != "log" {
		t.Errorf("unexpected name %q", sink.Name())
	}
}

func TestNoopSink(t *testing.T) {
	sink := NoopSink{}
	if err := sink.Dispatch(testAlert()); err != nil {
		t.Errorf("noop sink should not fail, got %v", err)
	}
}
