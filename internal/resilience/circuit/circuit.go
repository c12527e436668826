// Package circuit implements named circuit breakers for external dependency
// calls. Each circuit is a CLOSED/OPEN/HALF_OPEN state machine keyed by a
// logical dependency name; the registry is the sole gated entry point for
// guarded calls and prevents cascading failures when a dependency degrades.
package circuit

import (
	"sync"
	"time"
)

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed indicates normal operation; calls pass through.
	StateClosed State = iota

	// StateOpen indicates the failure threshold was crossed; calls are
	// rejected without invoking the operation until the recovery timeout
	// elapses.
	StateOpen

	// StateHalfOpen indicates the recovery timeout elapsed and a trial
	// invocation is permitted to test whether the dependency recovered.
	StateHalfOpen
)

// String returns a string representation of the circuit state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the configuration for a single circuit.
// It is immutable after registration.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before a
	// half-open trial is permitted. Default: 60 seconds.
	RecoveryTimeout time.Duration

	// MonitoringPeriod is reserved for rate-based opening policies.
	// The transition rules do not read it.
	MonitoringPeriod time.Duration

	// ExpectedErrorRate is reserved for rate-based opening policies.
	// The transition rules do not read it.
	ExpectedErrorRate float64
}

// DefaultConfig returns a default circuit configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  5,
		RecoveryTimeout:   60 * time.Second,
		MonitoringPeriod:  60 * time.Second,
		ExpectedErrorRate: 0.5,
	}
}

// LLMAPIConfig returns configuration tuned for LLM provider calls.
// Providers rate-limit aggressively, so the circuit opens late and
// recovers slowly.
func LLMAPIConfig() Config {
	return Config{
		FailureThreshold:  5,
		RecoveryTimeout:   60 * time.Second,
		MonitoringPeriod:  60 * time.Second,
		ExpectedErrorRate: 0.5,
	}
}

// TranscriptionAPIConfig returns configuration tuned for speech-to-text
// provider calls, which sit on the real-time path and must fail over fast.
func TranscriptionAPIConfig() Config {
	return Config{
		FailureThreshold:  3,
		RecoveryTimeout:   30 * time.Second,
		MonitoringPeriod:  30 * time.Second,
		ExpectedErrorRate: 0.3,
	}
}

// DatabaseConfig returns configuration tuned for the primary datastore.
// Low threshold and short recovery: connection issues are usually transient
// and the pool re-establishes quickly.
func DatabaseConfig() Config {
	return Config{
		FailureThreshold:  3,
		RecoveryTimeout:   5 * time.Second,
		MonitoringPeriod:  30 * time.Second,
		ExpectedErrorRate: 0.2,
	}
}

// CacheConfig returns configuration tuned for the cache layer.
// The cache is optional for correctness, so the circuit opens eagerly.
func CacheConfig() Config {
	return Config{
		FailureThreshold:  2,
		RecoveryTimeout:   10 * time.Second,
		MonitoringPeriod:  30 * time.Second,
		ExpectedErrorRate: 0.2,
	}
}

// WebSocketConfig returns configuration tuned for realtime transport
// reconnects.
func WebSocketConfig() Config {
	return Config{
		FailureThreshold:  4,
		RecoveryTimeout:   15 * time.Second,
		MonitoringPeriod:  60 * time.Second,
		ExpectedErrorRate: 0.4,
	}
}

// normalized returns the config with zero values replaced by defaults.
func (c Config) normalized() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	return c
}

// Stats is a read-only snapshot of a circuit's state and counters.
type Stats struct {
	Name            string     `json:"name"`
	State           State      `json:"-"`
	StateLabel      string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	SuccessCount    int        `json:"success_count"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	NextAttemptTime *time.Time `json:"next_attempt_time,omitempty"`
	Config          Config     `json:"-"`
}

// circuit is a single named breaker. All fields behind mu.
type circuit struct {
	name   string
	config Config

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	nextAttemptTime time.Time
}

// snapshot returns the circuit stats. Caller must not hold c.mu.
func (c *circuit) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Name:         c.name,
		State:        c.state,
		StateLabel:   c.state.String(),
		FailureCount: c.failureCount,
		SuccessCount: c.successCount,
		Config:       c.config,
	}
	if !c.lastFailureTime.IsZero() {
		t := c.lastFailureTime
		s.LastFailureTime = &t
	}
	if !c.nextAttemptTime.IsZero() {
		t := c.nextAttemptTime
		s.NextAttemptTime = &t
	}
	return s
}

// Clock provides a time abstraction so state transitions are testable
// without real sleeps.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
