// Package health accumulates error counts and latency samples per logical
// service, derives a three-level health status, and evaluates debounced
// alert rules against a mutable rule set. A background scheduler owned by
// the aggregator sweeps registered probes and resets the hourly error
// counters.
package health

import (
	"context"
	"time"

	"meetscribe/internal/resilience/apperr"
)

// Status is the derived three-level health classification.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

// String returns the status label used in logs and API responses.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Derivation thresholds. Error rate is errors-per-minute over the current
// hourly window (count/60), a deliberately coarse proxy rather than a true
// rolling rate.
const (
	unhealthyErrorRate = 0.2
	degradedErrorRate  = 0.1
	unhealthyLatency   = 10 * time.Second
	degradedLatency    = 5 * time.Second

	// maxSamples bounds the response-time FIFO per service.
	maxSamples = 100

	// errorWindow is the reset interval for the per-service error counter.
	errorWindow = time.Hour
)

// ServiceHealth is the derived metric snapshot for one logical service.
type ServiceHealth struct {
	Service         string        `json:"service"`
	Status          Status        `json:"-"`
	StatusLabel     string        `json:"status"`
	ErrorRate       float64       `json:"error_rate"`
	AvgResponseTime time.Duration `json:"-"`
	AvgResponseMs   float64       `json:"avg_response_time_ms"`
	LastCheck       time.Time     `json:"last_check"`
}

// SystemHealth aggregates every tracked service. The overall status is the
// worst individual status.
type SystemHealth struct {
	Status      Status          `json:"-"`
	StatusLabel string          `json:"status"`
	Services    []ServiceHealth `json:"services"`
	CheckedAt   time.Time       `json:"checked_at"`
}

// Operator compares a metric value against a rule threshold.
type Operator string

const (
	OpGreaterThan Operator = "gt"
	OpLessThan    Operator = "lt"
	OpEqual       Operator = "eq"
)

// Metric names a field of ServiceHealth that a rule evaluates.
type Metric string

const (
	MetricErrorRate       Metric = "error_rate"
	MetricAvgResponseTime Metric = "avg_response_time_ms"
)

// Rule is a threshold alert over one service metric. Rules are mutable at
// runtime through the aggregator's CRUD methods and may be loaded from a
// YAML file at startup.
type Rule struct {
	ID        string          `json:"id" yaml:"id"`
	Service   string          `json:"service" yaml:"service"`
	Metric    Metric          `json:"metric" yaml:"metric"`
	Threshold float64         `json:"threshold" yaml:"threshold"`
	Operator  Operator        `json:"operator" yaml:"operator"`
	Severity  apperr.Severity `json:"-" yaml:"-"`
	// SeverityLabel mirrors Severity for serialized forms ("low", "medium",
	// "high", "critical").
	SeverityLabel string `json:"severity" yaml:"severity"`
	Enabled       bool   `json:"enabled" yaml:"enabled"`
}

// Alert is a rule breach that passed the debounce window.
type Alert struct {
	Rule    Rule      `json:"rule"`
	Service string    `json:"service"`
	Value   float64   `json:"value"`
	FiredAt time.Time `json:"fired_at"`
}

// Sink receives dispatched alerts. Implementations live in the alertsink
// package; dispatch failures are logged, never propagated to recorders.
type Sink interface {
	Dispatch(alert Alert) error
	Name() string
}

// Prober is a synthetic health check swept by the background scheduler,
// independent of the error/latency reports arriving from live traffic.
type Prober interface {
	// Service returns the logical service name the probe reports under.
	Service() string
	// Probe performs one synthetic check.
	Probe(ctx context.Context) error
}

// Clock abstracts time for deterministic debounce and window-reset tests.
type Clock interface {
	Now() time.Time
}

// systemClock is the default Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
