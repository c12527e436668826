package alertsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"meetscribe/internal/resilience/health"
)

// SlackConfig contains configuration for the Slack webhook sink.
type SlackConfig struct {
	// WebhookURL is the Slack Incoming Webhook URL (includes the token).
	WebhookURL string

	// Timeout is the HTTP request timeout for webhook calls.
	Timeout time.Duration
}

// SlackSink delivers health alerts to Slack via an Incoming Webhook.
// Deliveries are rate limited to 1 request/second, the webhook limit
// Slack documents. The aggregator's debounce window keeps volume low;
// the limiter only guards against bursts when many rules fire at once.
type SlackSink struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewSlackSink creates a SlackSink with the given configuration.
func NewSlackSink(config SlackConfig) *SlackSink {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &SlackSink{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Name implements health.Sink.
func (s *SlackSink) Name() string { return "slack" }

// slackPayload is the Block Kit payload sent to the webhook.
type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string           `json:"type"`
	Text     *slackTextObject `json:"text,omitempty"`
	Elements []slackTextObject `json:"elements,omitempty"`
}

type slackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Dispatch implements health.Sink. It blocks on the rate limiter, then
// posts a Block Kit message describing the breached rule.
func (s *SlackSink) Dispatch(alert health.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("slack rate limiter: %w", err)
	}

	payload := buildPayload(alert)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send slack webhook: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("closing slack response body", slog.Any("error", cerr))
		}
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode, Message: readBody(resp.Body)}
	default:
		return &ClientError{StatusCode: resp.StatusCode, Message: readBody(resp.Body)}
	}
}

// buildPayload formats an alert as a Block Kit message: a section block
// with the breach details and a context block with rule identity and time.
func buildPayload(alert health.Alert) slackPayload {
	fallback := fmt.Sprintf("[%s] %s %s breached on %s",
		alert.Rule.Severity, alert.Rule.Metric, alert.Rule.Operator, alert.Service)

	section := fmt.Sprintf("*%s alert on `%s`*\n`%s` is %.2f (threshold: %s %.2f)",
		alert.Rule.Severity, alert.Service,
		alert.Rule.Metric, alert.Value, alert.Rule.Operator, alert.Rule.Threshold)

	contextText := fmt.Sprintf("rule `%s` • %s", alert.Rule.ID, alert.FiredAt.Format(time.RFC3339))

	return slackPayload{
		Text: fallback,
		Blocks: []slackBlock{
			{
				Type: "section",
				Text: &slackTextObject{Type: "mrkdwn", Text: section},
			},
			{
				Type: "context",
				Elements: []slackTextObject{
					{Type: "mrkdwn", Text: contextText},
				},
			},
		},
	}
}

// retryAfter parses the Retry-After header from a 429 response.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

// readBody reads a small error body for diagnostics.
func readBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return string(b)
}
