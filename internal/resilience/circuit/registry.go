package circuit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"meetscribe/internal/observability/metrics"
	"meetscribe/internal/resilience/apperr"
)

// Operation is a unit of work guarded by a circuit. The registry never
// imposes a timeout; callers own cancellation through ctx.
type Operation func(ctx context.Context) (any, error)

// Registry owns the named circuits for a process. Circuits are registered
// once at startup and live for the process lifetime; requesting an
// unregistered name is a configuration error, not a runtime fault.
//
// The registry holds no lock across operation or fallback invocation:
// the gate decision and the outcome recording are two separate critical
// sections around the (arbitrarily slow) guarded call.
type Registry struct {
	clock Clock

	mu       sync.RWMutex
	circuits map[string]*circuit
}

// NewRegistry creates an empty registry using the system clock.
func NewRegistry() *Registry {
	return NewRegistryWithClock(&SystemClock{})
}

// NewRegistryWithClock creates an empty registry with an injected clock.
// Tests use this to drive recovery timeouts deterministically.
func NewRegistryWithClock(clock Clock) *Registry {
	if clock == nil {
		clock = &SystemClock{}
	}
	return &Registry{
		clock:    clock,
		circuits: make(map[string]*circuit),
	}
}

// Register creates or replaces a circuit in CLOSED state with zero counters.
// Re-registering the same name is idempotent so startup code can run twice
// (for example under a supervisor restart) without carrying stale state.
func (r *Registry) Register(name string, cfg Config) {
	cfg = cfg.normalized()

	r.mu.Lock()
	r.circuits[name] = &circuit{
		name:   name,
		config: cfg,
		state:  StateClosed,
	}
	r.mu.Unlock()

	metrics.SetCircuitState(name, float64(StateClosed))
	slog.Info("circuit registered",
		slog.String("circuit", name),
		slog.Int("failure_threshold", cfg.FailureThreshold),
		slog.Duration("recovery_timeout", cfg.RecoveryTimeout))
}

// Execute runs op through the circuit gate identified by name.
//
// While the circuit is OPEN and the recovery timeout has not elapsed, op is
// never invoked: the fallback result is returned if a fallback was given,
// otherwise a service-unavailable error. Once the timeout elapses the
// circuit moves to HALF_OPEN and op runs as a trial: success closes the
// circuit, failure reopens it with a fresh recovery window.
//
// On failure with a fallback present, the fallback result is returned and
// the original error is still recorded against the circuit.
func (r *Registry) Execute(ctx context.Context, name string, op Operation, fallback Operation) (any, error) {
	c := r.lookup(name)
	if c == nil {
		return nil, apperr.New(apperr.KindConfiguration,
			fmt.Sprintf("circuit %q is not registered", name)).WithService(name)
	}

	proceed, trial := r.gate(c)
	if !proceed {
		metrics.RecordCircuitExecution(name, "short_circuit")
		if fallback != nil {
			slog.Debug("circuit open, using fallback", slog.String("circuit", name))
			return fallback(ctx)
		}
		return nil, apperr.New(apperr.KindServiceUnavailable,
			fmt.Sprintf("circuit %q is open", name)).WithService(name)
	}
	if trial {
		slog.Info("circuit attempting trial call", slog.String("circuit", name))
	}

	result, err := op(ctx)
	if err == nil {
		r.recordSuccess(c)
		metrics.RecordCircuitExecution(name, "success")
		return result, nil
	}

	r.recordFailure(c)
	metrics.RecordCircuitExecution(name, "failure")
	if fallback != nil {
		metrics.RecordCircuitExecution(name, "fallback")
		return fallback(ctx)
	}
	return nil, err
}

// gate decides whether the guarded operation may run. It returns
// proceed=false when the circuit is open and not yet reset-eligible, and
// trial=true when this call transitioned the circuit to HALF_OPEN.
func (r *Registry) gate(c *circuit) (proceed, trial bool) {
	now := r.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return true, false
	}

	// Opening always sets nextAttemptTime; this lazy assignment is purely
	// defensive against a circuit observed OPEN before its timer landed.
	// The current call is deliberately not eligible in that case.
	if c.nextAttemptTime.IsZero() {
		c.nextAttemptTime = now.Add(c.config.RecoveryTimeout)
		return false, false
	}

	if now.Before(c.nextAttemptTime) {
		return false, false
	}

	c.transition(StateHalfOpen)
	return true, true
}

// recordSuccess commits a successful outcome: any success resets the
// consecutive failure count, and a half-open success closes the circuit.
func (r *Registry) recordSuccess(c *circuit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.failureCount = 0

	if c.state == StateHalfOpen {
		c.nextAttemptTime = time.Time{}
		c.transition(StateClosed)
	}
}

// recordFailure commits a failed outcome. In CLOSED state the consecutive
// failure count advances and crossing the threshold opens the circuit
// exactly once; in HALF_OPEN state the trial failure reopens the circuit
// with a freshly computed recovery window.
func (r *Registry) recordFailure(c *circuit) {
	now := r.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.lastFailureTime = now

	switch c.state {
	case StateClosed:
		if c.failureCount >= c.config.FailureThreshold {
			c.nextAttemptTime = now.Add(c.config.RecoveryTimeout)
			c.transition(StateOpen)
		}
	case StateHalfOpen:
		c.nextAttemptTime = now.Add(c.config.RecoveryTimeout)
		c.transition(StateOpen)
	case StateOpen:
		// A failure recorded while already open (late completion of an
		// in-flight call): counters advance, the window stays as-is.
	}
}

// transition moves the circuit to a new state and emits the log line and
// metrics for the change. Caller must hold c.mu.
func (c *circuit) transition(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to

	metrics.SetCircuitState(c.name, float64(to))
	metrics.RecordCircuitTransition(c.name, from.String(), to.String())
	slog.Warn("circuit state changed",
		slog.String("circuit", c.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("failure_count", c.failureCount))
}

// IsOpen reports whether the named circuit is currently open.
// Unregistered names report false.
func (r *Registry) IsOpen(name string) bool {
	c := r.lookup(name)
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

// Stats returns a snapshot of the named circuit.
func (r *Registry) Stats(name string) (Stats, error) {
	c := r.lookup(name)
	if c == nil {
		return Stats{}, apperr.New(apperr.KindConfiguration,
			fmt.Sprintf("circuit %q is not registered", name))
	}
	return c.snapshot(), nil
}

// AllStats returns snapshots of every registered circuit, sorted by name.
func (r *Registry) AllStats() []Stats {
	r.mu.RLock()
	circuits := make([]*circuit, 0, len(r.circuits))
	for _, c := range r.circuits {
		circuits = append(circuits, c)
	}
	r.mu.RUnlock()

	stats := make([]Stats, 0, len(circuits))
	for _, c := range circuits {
		stats = append(stats, c.snapshot())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Reset unconditionally forces the named circuit to CLOSED with zeroed
// counters and cleared timestamps. This is an operator intervention hook;
// the state machine never calls it.
func (r *Registry) Reset(name string) error {
	c := r.lookup(name)
	if c == nil {
		return apperr.New(apperr.KindConfiguration,
			fmt.Sprintf("circuit %q is not registered", name))
	}

	c.mu.Lock()
	from := c.state
	c.state = StateClosed
	c.failureCount = 0
	c.successCount = 0
	c.lastFailureTime = time.Time{}
	c.nextAttemptTime = time.Time{}
	c.mu.Unlock()

	metrics.SetCircuitState(name, float64(StateClosed))
	slog.Info("circuit reset by operator",
		slog.String("circuit", name),
		slog.String("previous_state", from.String()))
	return nil
}

func (r *Registry) lookup(name string) *circuit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.circuits[name]
}
