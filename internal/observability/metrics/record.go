package metrics

import "time"

// SetCircuitState updates the state gauge for a circuit.
// State values follow the circuit package: 0=closed, 1=open, 2=half-open.
func SetCircuitState(circuit string, state float64) {
	CircuitState.WithLabelValues(circuit).Set(state)
}

// RecordCircuitTransition records a circuit state transition.
func RecordCircuitTransition(circuit, from, to string) {
	CircuitTransitionsTotal.WithLabelValues(circuit, from, to).Inc()
}

// RecordCircuitExecution records the outcome of a gated call.
// Outcome should be one of "success", "failure", "short_circuit", "fallback".
func RecordCircuitExecution(circuit, outcome string) {
	CircuitExecutionsTotal.WithLabelValues(circuit, outcome).Inc()
}

// RecordRetryAttempt records a single retry executor attempt.
// Outcome should be one of "success", "retry", "abort", "exhausted".
func RecordRetryAttempt(outcome string) {
	RetryAttemptsTotal.WithLabelValues(outcome).Inc()
}

// SetServiceHealth updates the derived health gauge for a service.
// Status values follow the health package: 0=healthy, 1=degraded, 2=unhealthy.
func SetServiceHealth(service string, status float64) {
	ServiceHealthStatus.WithLabelValues(service).Set(status)
}

// RecordAlertDispatched records an alert that was sent to the sinks.
func RecordAlertDispatched(service, severity string) {
	AlertsDispatchedTotal.WithLabelValues(service, severity).Inc()
}

// RecordAlertSuppressed records an alert suppressed by the debounce window.
func RecordAlertSuppressed(service string) {
	AlertsSuppressedTotal.WithLabelValues(service).Inc()
}

// RecordProbe records the duration and outcome of a background health probe.
func RecordProbe(service string, duration time.Duration, err error) {
	ProbeDuration.WithLabelValues(service).Observe(duration.Seconds())
	if err != nil {
		ProbeFailuresTotal.WithLabelValues(service).Inc()
	}
}

// RecordRecoveryAction records a recovery planner decision.
func RecordRecoveryAction(action, kind string) {
	RecoveryActionsTotal.WithLabelValues(action, kind).Inc()
}
