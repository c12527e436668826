// Package metrics provides centralized Prometheus metrics for the resilience core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker metrics track gate state and traffic per named circuit.
var (
	// CircuitState reports the current state of each circuit.
	// Values: 0=closed, 1=open, 2=half-open.
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resilience_circuit_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit"},
	)

	// CircuitTransitionsTotal counts state transitions per circuit.
	CircuitTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_circuit_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"circuit", "from", "to"},
	)

	// CircuitExecutionsTotal counts gated calls by outcome.
	// Outcomes: success, failure, short_circuit, fallback.
	CircuitExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_circuit_executions_total",
			Help: "Total number of calls through the circuit gate by outcome",
		},
		[]string{"circuit", "outcome"},
	)
)

// Retry metrics track executor behavior across all policies.
var (
	// RetryAttemptsTotal counts individual attempts by outcome.
	// Outcomes: success, retry, abort, exhausted.
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_retry_attempts_total",
			Help: "Total number of retry executor attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Health aggregator metrics expose derived status and alerting activity.
var (
	// ServiceHealthStatus reports the derived status per logical service.
	// Values: 0=healthy, 1=degraded, 2=unhealthy.
	ServiceHealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resilience_service_health_status",
			Help: "Derived health status per service (0=healthy, 1=degraded, 2=unhealthy)",
		},
		[]string{"service"},
	)

	// AlertsDispatchedTotal counts alerts that passed the debounce window.
	AlertsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_alerts_dispatched_total",
			Help: "Total number of alerts dispatched to sinks",
		},
		[]string{"service", "severity"},
	)

	// AlertsSuppressedTotal counts alerts suppressed by the debounce window.
	AlertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by debouncing",
		},
		[]string{"service"},
	)

	// ProbeDuration measures background health probe latency.
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resilience_probe_duration_seconds",
			Help:    "Background health probe duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// ProbeFailuresTotal counts failed background health probes.
	ProbeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_probe_failures_total",
			Help: "Total number of failed background health probes",
		},
		[]string{"service"},
	)

	// RecoveryActionsTotal counts recovery planner decisions by action type.
	RecoveryActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_recovery_actions_total",
			Help: "Total number of recovery actions planned by type and error kind",
		},
		[]string{"action", "kind"},
	)
)
