// Package monitor wires the resilience core into a runnable service: it
// loads configuration, serves health and metrics endpoints, and loads alert
// rules from a YAML file.
package monitor

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"meetscribe/internal/pkg/config"
)

// Config holds the configuration for the monitor service. All fields have
// defaults, and invalid environment values fall back to those defaults with
// a warning rather than failing startup.
type Config struct {
	// MetricsPort is the port for the Prometheus metrics server.
	// Range: 1024-65535. Default: 9090.
	MetricsPort int

	// HealthPort is the port for the health check HTTP server.
	// Range: 1024-65535. Default: 9091.
	HealthPort int

	// AlertDebounce is the minimum interval between repeated alerts for
	// the same rule. Must be positive. Default: 5 minutes.
	AlertDebounce time.Duration

	// RulesFile is the path to a YAML file of alert rules loaded at
	// startup. Empty means only built-in rules apply.
	RulesFile string

	// SlackWebhookURL enables the Slack alert sink when non-empty. The
	// URL must be an HTTPS hooks.slack.com webhook.
	SlackWebhookURL string

	// DatabaseURL enables the postgres prober when non-empty.
	DatabaseURL string

	// RedisAddr enables the redis prober when non-empty (host:port).
	RedisAddr string

	// TranscriptionStatusURL enables the HTTP prober for the
	// transcription provider when non-empty.
	TranscriptionStatusURL string
}

// DefaultConfig returns a Config with production defaults and no optional
// integrations enabled.
func DefaultConfig() Config {
	return Config{
		MetricsPort:   9090,
		HealthPort:    9091,
		AlertDebounce: 5 * time.Minute,
	}
}

// Validate checks the configuration, collecting all violations into one
// error.
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("MetricsPort: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("HealthPort: %w", err))
	}
	if c.MetricsPort == c.HealthPort {
		errs = append(errs, fmt.Errorf("MetricsPort and HealthPort must differ, both are %d", c.MetricsPort))
	}
	if err := config.ValidatePositiveDuration(c.AlertDebounce); err != nil {
		errs = append(errs, fmt.Errorf("AlertDebounce: %w", err))
	}
	if c.SlackWebhookURL != "" {
		if err := validateSlackWebhookURL(c.SlackWebhookURL); err != nil {
			errs = append(errs, fmt.Errorf("SlackWebhookURL: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the monitor configuration from environment
// variables with fallback to defaults, logging each fallback as a warning
// and recording fallback state on the given metrics (nil means no
// recording).
//
// Environment variables:
//   - METRICS_PORT: metrics server port (default 9090)
//   - HEALTH_PORT: health server port (default 9091)
//   - ALERT_DEBOUNCE: debounce window, Go duration (default 5m)
//   - ALERT_RULES_FILE: path to YAML rules (optional)
//   - SLACK_WEBHOOK_URL: Slack incoming webhook (optional)
//   - DATABASE_URL: postgres DSN for the datastore prober (optional)
//   - REDIS_ADDR: redis address for the cache prober (optional)
//   - TRANSCRIPTION_STATUS_URL: provider status endpoint (optional)
func LoadConfigFromEnv(logger *slog.Logger, metrics *config.Metrics) (*Config, error) {
	defaults := DefaultConfig()
	var fallbackFields []string

	warn := func(field string, warnings []string) {
		for _, w := range warnings {
			logger.Warn("configuration fallback", slog.String("field", field), slog.String("detail", w))
		}
		if len(warnings) > 0 {
			fallbackFields = append(fallbackFields, field)
		}
	}

	portRange := func(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

	metricsPort := config.LoadEnvInt("METRICS_PORT", defaults.MetricsPort, portRange)
	warn("metrics_port", metricsPort.Warnings)

	healthPort := config.LoadEnvInt("HEALTH_PORT", defaults.HealthPort, portRange)
	warn("health_port", healthPort.Warnings)

	debounce := config.LoadEnvDuration("ALERT_DEBOUNCE", defaults.AlertDebounce, config.ValidatePositiveDuration)
	warn("alert_debounce", debounce.Warnings)

	slackURL := config.LoadEnvStringValidated("SLACK_WEBHOOK_URL", "", validateSlackWebhookURL)
	warn("slack_webhook_url", slackURL.Warnings)

	cfg := &Config{
		MetricsPort:            metricsPort.Value,
		HealthPort:             healthPort.Value,
		AlertDebounce:          debounce.Value,
		RulesFile:              config.LoadEnvString("ALERT_RULES_FILE", ""),
		SlackWebhookURL:        slackURL.Value,
		DatabaseURL:            config.LoadEnvString("DATABASE_URL", ""),
		RedisAddr:              config.LoadEnvString("REDIS_ADDR", ""),
		TranscriptionStatusURL: config.LoadEnvString("TRANSCRIPTION_STATUS_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if metrics != nil {
		metrics.RecordLoad(fallbackFields)
	}
	return cfg, nil
}

// validateSlackWebhookURL checks that a webhook URL is an HTTPS
// hooks.slack.com endpoint, so a misconfigured URL cannot leak alert
// contents elsewhere.
func validateSlackWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("webhook URL must use https, got %q", u.Scheme)
	}
	if u.Host != "hooks.slack.com" {
		return fmt.Errorf("unexpected webhook host %q", u.Host)
	}
	return nil
}
