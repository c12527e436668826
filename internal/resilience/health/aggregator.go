package health

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"meetscribe/internal/observability/metrics"
)

// defaultDebounce is the minimum interval between repeated dispatches of
// the same rule.
const defaultDebounce = 5 * time.Minute

// AggregatorConfig configures an Aggregator. Zero values take defaults.
type AggregatorConfig struct {
	// Debounce is the per-rule alert suppression window. Default: 5 minutes.
	Debounce time.Duration

	// Sinks receive dispatched alerts. An empty list means alerts are only
	// logged.
	Sinks []Sink

	// Clock abstraction for tests. Default: system time.
	Clock Clock
}

// Aggregator tracks per-service error counts and latency samples, derives
// health status, and evaluates alert rules on every report.
//
// All shared state sits behind a single mutex; the tables are small and the
// work inside the critical section is pure arithmetic, so contention stays
// negligible. Alert dispatch happens outside the lock.
type Aggregator struct {
	clock    Clock
	debounce time.Duration
	sinks    []Sink

	mu       sync.Mutex
	services map[string]*serviceState
	rules    map[string]Rule
	fired    map[string]time.Time
	probers  []Prober
	cron     *cron.Cron
}

// serviceState is the raw rolling input for one service.
type serviceState struct {
	errorCount  int
	windowStart time.Time
	samples     []time.Duration
	lastCheck   time.Time
}

// NewAggregator creates an aggregator with the given configuration.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	return &Aggregator{
		clock:    cfg.Clock,
		debounce: cfg.Debounce,
		sinks:    cfg.Sinks,
		services: make(map[string]*serviceState),
		rules:    make(map[string]Rule),
		fired:    make(map[string]time.Time),
	}
}

// RecordError increments the hourly error counter for a service,
// recomputes its metric, and evaluates its alert rules.
func (a *Aggregator) RecordError(service string) {
	now := a.clock.Now()

	a.mu.Lock()
	st := a.ensure(service, now)
	st.maybeResetWindow(now)
	st.errorCount++
	st.lastCheck = now
	snapshot := a.deriveLocked(service, st)
	alerts := a.evaluateLocked(snapshot, now)
	a.mu.Unlock()

	metrics.SetServiceHealth(service, float64(snapshot.Status))
	a.dispatch(alerts)
}

// RecordResponseTime appends a latency sample to the bounded window for a
// service, recomputes its metric, and evaluates its alert rules.
func (a *Aggregator) RecordResponseTime(service string, d time.Duration) {
	now := a.clock.Now()

	a.mu.Lock()
	st := a.ensure(service, now)
	st.maybeResetWindow(now)
	st.samples = append(st.samples, d)
	if len(st.samples) > maxSamples {
		st.samples = st.samples[len(st.samples)-maxSamples:]
	}
	st.lastCheck = now
	snapshot := a.deriveLocked(service, st)
	alerts := a.evaluateLocked(snapshot, now)
	a.mu.Unlock()

	metrics.SetServiceHealth(service, float64(snapshot.Status))
	a.dispatch(alerts)
}

// ServiceHealth returns the derived metric for one service.
// The second return is false when the service has never reported.
func (a *Aggregator) ServiceHealth(service string) (ServiceHealth, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.services[service]
	if !ok {
		return ServiceHealth{}, false
	}
	st.maybeResetWindow(a.clock.Now())
	return a.deriveLocked(service, st), true
}

// SystemHealth aggregates all tracked services. The overall status is
// unhealthy if any service is unhealthy, else degraded if any is degraded,
// else healthy.
func (a *Aggregator) SystemHealth() SystemHealth {
	now := a.clock.Now()

	a.mu.Lock()
	services := make([]ServiceHealth, 0, len(a.services))
	for name, st := range a.services {
		st.maybeResetWindow(now)
		services = append(services, a.deriveLocked(name, st))
	}
	a.mu.Unlock()

	sort.Slice(services, func(i, j int) bool { return services[i].Service < services[j].Service })

	overall := StatusHealthy
	for _, s := range services {
		if s.Status > overall {
			overall = s.Status
		}
	}
	return SystemHealth{
		Status:      overall,
		StatusLabel: overall.String(),
		Services:    services,
		CheckedAt:   now,
	}
}

// ResetErrorCounters zeroes every service's error counter and restarts its
// hourly window. The scheduler calls this; the counters also reset lazily
// when a report arrives after the window expired.
func (a *Aggregator) ResetErrorCounters() {
	now := a.clock.Now()

	a.mu.Lock()
	for _, st := range a.services {
		st.errorCount = 0
		st.windowStart = now
	}
	a.mu.Unlock()

	slog.Debug("health error counters reset")
}

// ensure returns the state for a service, creating it lazily on first
// report. Caller must hold a.mu.
func (a *Aggregator) ensure(service string, now time.Time) *serviceState {
	st, ok := a.services[service]
	if !ok {
		st = &serviceState{windowStart: now}
		a.services[service] = st
	}
	return st
}

// maybeResetWindow restarts the hourly error window if it has expired.
func (st *serviceState) maybeResetWindow(now time.Time) {
	if now.Sub(st.windowStart) >= errorWindow {
		st.errorCount = 0
		st.windowStart = now
	}
}

// deriveLocked computes the ServiceHealth snapshot for a service.
// Caller must hold a.mu.
func (a *Aggregator) deriveLocked(service string, st *serviceState) ServiceHealth {
	errorRate := float64(st.errorCount) / 60.0

	var avg time.Duration
	if len(st.samples) > 0 {
		var total time.Duration
		for _, s := range st.samples {
			total += s
		}
		avg = total / time.Duration(len(st.samples))
	}

	status := StatusHealthy
	switch {
	case errorRate > unhealthyErrorRate || avg > unhealthyLatency:
		status = StatusUnhealthy
	case errorRate > degradedErrorRate || avg > degradedLatency:
		status = StatusDegraded
	}

	return ServiceHealth{
		Service:         service,
		Status:          status,
		StatusLabel:     status.String(),
		ErrorRate:       errorRate,
		AvgResponseTime: avg,
		AvgResponseMs:   float64(avg) / float64(time.Millisecond),
		LastCheck:       st.lastCheck,
	}
}

// dispatch sends alerts to every sink, outside the aggregator lock.
// Sink failures are logged; a broken sink must not break recording.
func (a *Aggregator) dispatch(alerts []Alert) {
	for _, alert := range alerts {
		slog.Warn("alert fired",
			slog.String("rule", alert.Rule.ID),
			slog.String("service", alert.Service),
			slog.String("metric", string(alert.Rule.Metric)),
			slog.Float64("value", alert.Value),
			slog.Float64("threshold", alert.Rule.Threshold),
			slog.String("severity", alert.Rule.Severity.String()))
		metrics.RecordAlertDispatched(alert.Service, alert.Rule.Severity.String())

		for _, sink := range a.sinks {
			if err := sink.Dispatch(alert); err != nil {
				slog.Error("alert sink dispatch failed",
					slog.String("sink", sink.Name()),
					slog.String("rule", alert.Rule.ID),
					slog.Any("error", err))
			}
		}
	}
}
