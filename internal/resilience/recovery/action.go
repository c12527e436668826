// Package recovery decides, per classified error kind, whether to retry,
// fail over, surface the error to a human, or ignore it, and drives the
// automated paths through the retry executor and caller-registered fallback
// hooks. It is the composition root of the resilience core: every guarded
// call flows through it, and every error it sees is reported to the health
// aggregator.
package recovery

import (
	"time"

	"meetscribe/internal/resilience/retry"
)

// ActionType enumerates the recovery decisions.
type ActionType int

const (
	// ActionRetry re-runs the failed operation with backoff.
	ActionRetry ActionType = iota

	// ActionFallback switches to an alternative (next audio device, the
	// secondary transcription or LLM provider, bypassing the cache).
	ActionFallback

	// ActionManual requires human intervention; retrying cannot succeed
	// without it.
	ActionManual

	// ActionIgnore means the failure is harmless and the operation can be
	// treated as complete.
	ActionIgnore
)

// String returns the action label used in logs, metrics and API payloads.
func (t ActionType) String() string {
	switch t {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionManual:
		return "manual"
	case ActionIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// Action is the recovery decision returned to callers. Non-automated
// actions carry a user-facing message and, where useful, step-by-step
// instructions; automated actions carry a transient status message shown
// while recovery proceeds.
type Action struct {
	Type         ActionType   `json:"-"`
	TypeLabel    string       `json:"type"`
	Automated    bool         `json:"automated"`
	Message      string       `json:"message"`
	Instructions []string     `json:"instructions,omitempty"`
	RetryPolicy  retry.Policy `json:"-"`
}

func newAction(t ActionType, automated bool, message string) Action {
	return Action{
		Type:      t,
		TypeLabel: t.String(),
		Automated: automated,
		Message:   message,
	}
}

// dbRetryPolicy is tuned for datastore blips: short delays, quick surfacing.
func dbRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    1 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}
