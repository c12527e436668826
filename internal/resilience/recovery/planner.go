package recovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meetscribe/internal/observability/metrics"
	"meetscribe/internal/observability/tracing"
	"meetscribe/internal/resilience/apperr"
	"meetscribe/internal/resilience/circuit"
	"meetscribe/internal/resilience/retry"
)

// HealthReporter is the slice of the health aggregator the planner needs.
type HealthReporter interface {
	RecordError(service string)
	RecordResponseTime(service string, d time.Duration)
}

// Gate is the slice of the circuit registry the planner needs.
type Gate interface {
	Execute(ctx context.Context, name string, op circuit.Operation, fallback circuit.Operation) (any, error)
}

// Hook is a caller-registered recovery routine for one service: the retry
// hook re-runs the original work, the fallback hook switches to an
// alternative. Hooks own their own I/O and honor ctx cancellation.
type Hook func(ctx context.Context) error

// Planner classifies errors, reports them to the health aggregator, and
// executes automated recovery. One planner instance is shared per process
// and is safe for concurrent use.
type Planner struct {
	gate   Gate
	health HealthReporter

	mu        sync.RWMutex
	retryOps  map[string]Hook
	fallbacks map[string]Hook
}

// NewPlanner creates a planner over the given circuit gate and health
// reporter.
func NewPlanner(gate Gate, health HealthReporter) *Planner {
	return &Planner{
		gate:      gate,
		health:    health,
		retryOps:  make(map[string]Hook),
		fallbacks: make(map[string]Hook),
	}
}

// RegisterRetryHook registers the routine the planner re-runs when it
// decides to retry a failure reported by the given service.
func (p *Planner) RegisterRetryHook(service string, hook Hook) {
	p.mu.Lock()
	p.retryOps[service] = hook
	p.mu.Unlock()
}

// RegisterFallbackHook registers the routine the planner invokes when it
// decides to fail over for the given service.
func (p *Planner) RegisterFallbackHook(service string, hook Hook) {
	p.mu.Lock()
	p.fallbacks[service] = hook
	p.mu.Unlock()
}

// Classify promotes an error into a classified *apperr.Error, attaching the
// service and request correlation if they are missing.
func (p *Planner) Classify(err error, service, operation string) *apperr.Error {
	appErr := apperr.Classify(err)
	if appErr == nil {
		return nil
	}
	if appErr.Context.Service == "" {
		appErr.Context.Service = service
	}
	if appErr.Context.Operation == "" {
		appErr.Context.Operation = operation
	}
	return appErr
}

// PlanFor returns the recovery action for an error kind. The switch is
// total over the closed kind set; a new kind without an entry here fails
// compilation review, not production.
func PlanFor(kind apperr.Kind) Action {
	switch kind {
	case apperr.KindAudioPermissionDenied:
		a := newAction(ActionManual, false, "Microphone access is blocked.")
		a.Instructions = []string{
			"Open your browser or OS privacy settings.",
			"Allow microphone access for this application.",
			"Reload the page and start recording again.",
		}
		return a

	case apperr.KindAudioDeviceNotFound:
		return newAction(ActionFallback, true, "Switching to the next available audio input…")

	case apperr.KindAudioStreamLost:
		a := newAction(ActionRetry, true, "Audio stream interrupted, reconnecting…")
		a.RetryPolicy = retry.Fast()
		return a

	case apperr.KindAudioFormatUnsupported:
		a := newAction(ActionManual, false, "This audio format is not supported.")
		a.Instructions = []string{
			"Check that your input device uses a standard sample rate (16 kHz or 48 kHz).",
			"Try selecting a different input device.",
		}
		return a

	case apperr.KindTranscriptionTimeout, apperr.KindTranscriptionFailed:
		return newAction(ActionFallback, true, "Switching transcription provider…")

	case apperr.KindTranscriptionRateLimited:
		a := newAction(ActionRetry, true, "Transcription provider is busy, retrying…")
		a.RetryPolicy = retry.Slow()
		return a

	case apperr.KindTranscriptionLanguageUnsupported:
		a := newAction(ActionManual, false, "The selected language is not supported by the transcription provider.")
		a.Instructions = []string{"Pick a supported language in the session settings."}
		return a

	case apperr.KindLLMFailure, apperr.KindLLMInvalidResponse:
		return newAction(ActionFallback, true, "Switching to the backup model provider…")

	case apperr.KindLLMRateLimited:
		a := newAction(ActionRetry, true, "Model provider is rate limiting, retrying with backoff…")
		a.RetryPolicy = retry.Slow()
		return a

	case apperr.KindLLMContextOverflow:
		a := newAction(ActionManual, false, "The meeting transcript is too long for the model.")
		a.Instructions = []string{"Summarize a shorter time range, or split the session."}
		return a

	case apperr.KindDatabaseConnectionFailed, apperr.KindDatabaseQueryFailed:
		a := newAction(ActionRetry, true, "Reconnecting to the datastore…")
		a.RetryPolicy = dbRetryPolicy()
		return a

	case apperr.KindDatabaseConstraintViolation:
		// Duplicate writes mean the work already landed; surfacing them
		// to users would only cause confusion.
		return newAction(ActionIgnore, false, "Already saved.")

	case apperr.KindCacheConnectionFailed:
		return newAction(ActionFallback, true, "Cache unavailable, reading directly from the datastore…")

	case apperr.KindWebSocketConnectionFailed:
		a := newAction(ActionRetry, true, "Connection lost, reconnecting…")
		a.RetryPolicy = retry.Fast()
		return a

	case apperr.KindNetworkTimeout, apperr.KindNetworkUnreachable:
		a := newAction(ActionRetry, true, "Network hiccup, retrying…")
		a.RetryPolicy = retry.Standard()
		return a

	case apperr.KindQuotaExceeded:
		a := newAction(ActionManual, false, "The provider quota for this account is exhausted.")
		a.Instructions = []string{
			"Check the provider usage dashboard.",
			"Raise the quota or wait for the window to reset.",
		}
		return a

	case apperr.KindConfiguration:
		a := newAction(ActionManual, false, "A configuration problem needs operator attention.")
		a.Instructions = []string{"Check the service logs for the failing setting."}
		return a

	case apperr.KindServiceUnavailable:
		a := newAction(ActionManual, false, "The service is temporarily unavailable. Please try again in a moment.")
		return a

	case apperr.KindUnknown:
		return newAction(ActionManual, false, "Something went wrong. Please try again.")

	default:
		return newAction(ActionManual, false, "Something went wrong. Please try again.")
	}
}

// Handle classifies err, reports it to the health aggregator, and executes
// the planned recovery when it is automated and a hook is registered for
// the error's service. The returned Action always describes what happened
// so a UI or API layer can render guidance; the returned error is nil when
// recovery succeeded (or the failure is ignorable), the classified error
// when nothing automated could run, and an escalated critical error when
// automated recovery itself failed.
func (p *Planner) Handle(ctx context.Context, err error) (Action, error) {
	appErr := apperr.Classify(err)
	if appErr == nil {
		return newAction(ActionIgnore, false, ""), nil
	}

	service := appErr.Context.Service
	if service == "" {
		service = "unknown"
	}
	p.health.RecordError(service)

	action := PlanFor(appErr.Kind)
	metrics.RecordRecoveryAction(action.Type.String(), appErr.Kind.String())

	ctx, span := tracing.Tracer().Start(ctx, "recovery.handle",
		trace.WithAttributes(
			attribute.String("error.kind", appErr.Kind.String()),
			attribute.String("recovery.action", action.Type.String()),
			attribute.String("service", service)))
	defer span.End()

	slog.Warn("handling classified error",
		slog.String("kind", appErr.Kind.String()),
		slog.String("severity", appErr.Severity.String()),
		slog.String("service", service),
		slog.String("action", action.Type.String()),
		slog.Bool("automated", action.Automated),
		slog.Any("error", appErr))

	if action.Type == ActionIgnore {
		return action, nil
	}
	if !action.Automated {
		return action, appErr
	}

	switch action.Type {
	case ActionRetry:
		hook := p.lookupRetry(service)
		if hook == nil {
			// Nothing registered to drive; the caller owns the retry.
			return action, appErr
		}
		if rerr := retry.Do(ctx, action.RetryPolicy, func() error { return hook(ctx) }); rerr != nil {
			return p.escalate(service, appErr, rerr)
		}
		return action, nil

	case ActionFallback:
		hook := p.lookupFallback(service)
		if hook == nil {
			return action, appErr
		}
		if ferr := hook(ctx); ferr != nil {
			return p.escalate(service, appErr, ferr)
		}
		return action, nil
	}

	return action, appErr
}

// Execute is the guarded entry point callers wrap external calls with: the
// circuit gate decides whether op runs, the call latency is reported to the
// health aggregator, and any failure goes through Handle. The returned
// Action is nil when the call succeeded.
func (p *Planner) Execute(ctx context.Context, circuitName string, op circuit.Operation, fallback circuit.Operation) (any, *Action, error) {
	start := time.Now()
	result, err := p.gate.Execute(ctx, circuitName, op, fallback)
	p.health.RecordResponseTime(circuitName, time.Since(start))

	if err == nil {
		return result, nil, nil
	}

	if appErr := apperr.Classify(err); appErr != nil && appErr.Context.Service == "" {
		appErr.Context.Service = circuitName
		err = appErr
	}
	action, herr := p.Handle(ctx, err)
	return result, &action, herr
}

// escalate converts a failed automated recovery into a critical
// service-unavailable error with a manual action. The planner never
// silently swallows a failure.
func (p *Planner) escalate(service string, original *apperr.Error, recoveryErr error) (Action, error) {
	esc := apperr.Wrap(apperr.KindServiceUnavailable, "automated recovery failed", original)
	esc.Severity = apperr.SeverityCritical
	esc.Context = original.Context

	p.health.RecordError(service)
	slog.Error("automated recovery failed, escalating",
		slog.String("service", service),
		slog.String("original_kind", original.Kind.String()),
		slog.Any("recovery_error", recoveryErr))

	action := newAction(ActionManual, false,
		"Automatic recovery did not succeed. Please try again, or contact support if the problem persists.")
	return action, esc
}

func (p *Planner) lookupRetry(service string) Hook {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.retryOps[service]
}

func (p *Planner) lookupFallback(service string) Hook {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fallbacks[service]
}
