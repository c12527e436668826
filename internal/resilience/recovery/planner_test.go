package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"meetscribe/internal/resilience/apperr"
	"meetscribe/internal/resilience/circuit"
)

// recorderStub captures health reports.
type recorderStub struct {
	mu        sync.Mutex
	errors    map[string]int
	latencies map[string]int
}

func newRecorderStub() *recorderStub {
	return &recorderStub{
		errors:    make(map[string]int),
		latencies: make(map[string]int),
	}
}

func (r *recorderStub) RecordError(service string) {
	r.mu.Lock()
	r.errors[service]++
	r.mu.Unlock()
}

func (r *recorderStub) RecordResponseTime(service string, d time.Duration) {
	r.mu.Lock()
	r.latencies[service]++
	r.mu.Unlock()
}

func (r *recorderStub) errorCount(service string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors[service]
}

func newTestPlanner() (*Planner, *circuit.Registry, *recorderStub) {
	registry := circuit.NewRegistry()
	registry.Register("llm-anthropic", circuit.LLMAPIConfig())
	health := newRecorderStub()
	return NewPlanner(registry, health), registry, health
}

func TestPlanForCoversEveryKind(t *testing.T) {
	cases := []struct {
		kind      apperr.Kind
		action    ActionType
		automated bool
	}{
		{apperr.KindAudioPermissionDenied, ActionManual, false},
		{apperr.KindAudioDeviceNotFound, ActionFallback, true},
		{apperr.KindAudioStreamLost, ActionRetry, true},
		{apperr.KindAudioFormatUnsupported, ActionManual, false},
		{apperr.KindTranscriptionTimeout, ActionFallback, true},
		{apperr.KindTranscriptionFailed, ActionFallback, true},
		{apperr.KindTranscriptionRateLimited, ActionRetry, true},
		{apperr.KindTranscriptionLanguageUnsupported, ActionManual, false},
		{apperr.KindLLMFailure, ActionFallback, true},
		{apperr.KindLLMRateLimited, ActionRetry, true},
		{apperr.KindLLMContextOverflow, ActionManual, false},
		{apperr.KindLLMInvalidResponse, ActionFallback, true},
		{apperr.KindDatabaseConnectionFailed, ActionRetry, true},
		{apperr.KindDatabaseQueryFailed, ActionRetry, true},
		{apperr.KindDatabaseConstraintViolation, ActionIgnore, false},
		{apperr.KindCacheConnectionFailed, ActionFallback, true},
		{apperr.KindWebSocketConnectionFailed, ActionRetry, true},
		{apperr.KindNetworkTimeout, ActionRetry, true},
		{apperr.KindNetworkUnreachable, ActionRetry, true},
		{apperr.KindQuotaExceeded, ActionManual, false},
		{apperr.KindConfiguration, ActionManual, false},
		{apperr.KindServiceUnavailable, ActionManual, false},
		{apperr.KindUnknown, ActionManual, false},
	}

	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			action := PlanFor(tc.kind)
			if action.Type != tc.action {
				t.Errorf("expected %s, got %s", tc.action, action.Type)
			}
			if action.Automated != tc.automated {
				t.Errorf("expected automated=%t, got %t", tc.automated, action.Automated)
			}
			if action.Message == "" && tc.action != ActionIgnore {
				t.Error("every surfaced action needs a message")
			}
		})
	}
}

func TestPlanForManualActionsCarryInstructions(t *testing.T) {
	withInstructions := []apperr.Kind{
		apperr.KindAudioPermissionDenied,
		apperr.KindAudioFormatUnsupported,
		apperr.KindTranscriptionLanguageUnsupported,
		apperr.KindLLMContextOverflow,
		apperr.KindQuotaExceeded,
	}
	for _, kind := range withInstructions {
		if action := PlanFor(kind); len(action.Instructions) == 0 {
			t.Errorf("%s: manual action should carry instructions", kind)
		}
	}
}

func TestPlanForRetryActionsCarryPolicy(t *testing.T) {
	retryKinds := []apperr.Kind{
		apperr.KindAudioStreamLost,
		apperr.KindTranscriptionRateLimited,
		apperr.KindLLMRateLimited,
		apperr.KindDatabaseConnectionFailed,
		apperr.KindWebSocketConnectionFailed,
		apperr.KindNetworkTimeout,
	}
	for _, kind := range retryKinds {
		if action := PlanFor(kind); action.RetryPolicy.MaxAttempts == 0 {
			t.Errorf("%s: retry action should carry a policy", kind)
		}
	}
}

func TestHandleNilError(t *testing.T) {
	p, _, health := newTestPlanner()

	action, err := p.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("nil error should be a no-op, got %v", err)
	}
	if action.Type != ActionIgnore {
		t.Errorf("expected ignore action, got %s", action.Type)
	}
	if health.errorCount("unknown") != 0 {
		t.Error("nil error should not be recorded")
	}
}

func TestHandleManualActionReturnsClassifiedError(t *testing.T) {
	p, _, health := newTestPlanner()

	original := apperr.New(apperr.KindQuotaExceeded, "quota exhausted").WithService("llm-anthropic")
	action, err := p.Handle(context.Background(), original)

	if action.Type != ActionManual {
		t.Errorf("expected manual action, got %s", action.Type)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindQuotaExceeded {
		t.Errorf("expected the classified error back, got %v", err)
	}
	if health.errorCount("llm-anthropic") != 1 {
		t.Errorf("expected 1 recorded error, got %d", health.errorCount("llm-anthropic"))
	}
}

func TestHandleIgnoreSwallowsError(t *testing.T) {
	p, _, _ := newTestPlanner()

	err := apperr.New(apperr.KindDatabaseConstraintViolation, "duplicate key").WithService("postgres")
	action, herr := p.Handle(context.Background(), err)

	if herr != nil {
		t.Errorf("ignorable failure should return nil error, got %v", herr)
	}
	if action.Type != ActionIgnore {
		t.Errorf("expected ignore action, got %s", action.Type)
	}
}

func TestHandleRetryHookSucceeds(t *testing.T) {
	p, _, _ := newTestPlanner()

	calls := 0
	p.RegisterRetryHook("postgres", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("still down")
		}
		return nil
	})

	err := apperr.New(apperr.KindDatabaseConnectionFailed, "connection refused").WithService("postgres")
	action, herr := p.Handle(context.Background(), err)

	if herr != nil {
		t.Fatalf("successful retry should return nil, got %v", herr)
	}
	if action.Type != ActionRetry {
		t.Errorf("expected retry action, got %s", action.Type)
	}
	if calls != 2 {
		t.Errorf("expected 2 hook calls, got %d", calls)
	}
}

func TestHandleRetryWithoutHookReturnsError(t *testing.T) {
	p, _, _ := newTestPlanner()

	err := apperr.New(apperr.KindDatabaseConnectionFailed, "connection refused").WithService("postgres")
	action, herr := p.Handle(context.Background(), err)

	if herr == nil {
		t.Fatal("retry without a hook should hand the error back to the caller")
	}
	if action.Type != ActionRetry {
		t.Errorf("expected retry action, got %s", action.Type)
	}
}

func TestHandleFallbackHook(t *testing.T) {
	p, _, _ := newTestPlanner()

	invoked := false
	p.RegisterFallbackHook("llm-anthropic", func(ctx context.Context) error {
		invoked = true
		return nil
	})

	err := apperr.New(apperr.KindLLMFailure, "provider 500").WithService("llm-anthropic")
	action, herr := p.Handle(context.Background(), err)

	if herr != nil {
		t.Fatalf("successful fallback should return nil, got %v", herr)
	}
	if !invoked {
		t.Error("fallback hook was not invoked")
	}
	if action.Type != ActionFallback {
		t.Errorf("expected fallback action, got %s", action.Type)
	}
}

func TestHandleEscalatesWhenRecoveryFails(t *testing.T) {
	p, _, health := newTestPlanner()

	p.RegisterFallbackHook("llm-anthropic", func(ctx context.Context) error {
		return errors.New("backup also down")
	})

	err := apperr.New(apperr.KindLLMFailure, "provider 500").WithService("llm-anthropic")
	action, herr := p.Handle(context.Background(), err)

	var appErr *apperr.Error
	if !errors.As(herr, &appErr) {
		t.Fatalf("expected classified escalation, got %v", herr)
	}
	if appErr.Kind != apperr.KindServiceUnavailable {
		t.Errorf("escalation should be service-unavailable, got %s", appErr.Kind)
	}
	if appErr.Severity != apperr.SeverityCritical {
		t.Errorf("escalation should be critical, got %s", appErr.Severity)
	}
	if action.Type != ActionManual {
		t.Errorf("escalation action should be manual, got %s", action.Type)
	}
	// Original failure and escalation are both recorded.
	if health.errorCount("llm-anthropic") != 2 {
		t.Errorf("expected 2 recorded errors, got %d", health.errorCount("llm-anthropic"))
	}
}

func TestHandleUnclassifiedErrorDefaultsToUnknownService(t *testing.T) {
	p, _, health := newTestPlanner()

	_, herr := p.Handle(context.Background(), errors.New("mystery"))
	if herr == nil {
		t.Fatal("unknown errors surface as manual actions with the error attached")
	}
	if health.errorCount("unknown") != 1 {
		t.Errorf("expected error recorded under 'unknown', got %d", health.errorCount("unknown"))
	}
}

func TestExecuteSuccessReportsLatencyOnly(t *testing.T) {
	p, _, health := newTestPlanner()

	result, action, err := p.Execute(context.Background(), "llm-anthropic",
		func(ctx context.Context) (any, error) { return "summary", nil }, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != nil {
		t.Errorf("successful call should return nil action, got %+v", action)
	}
	if result != "summary" {
		t.Errorf("expected result passthrough, got %v", result)
	}
	if health.latencies["llm-anthropic"] != 1 {
		t.Error("latency should be recorded on success")
	}
	if health.errorCount("llm-anthropic") != 0 {
		t.Error("no error should be recorded on success")
	}
}

func TestExecuteFailureAttachesCircuitService(t *testing.T) {
	p, _, health := newTestPlanner()

	_, action, err := p.Execute(context.Background(), "llm-anthropic",
		func(ctx context.Context) (any, error) { return nil, errors.New("provider down") }, nil)

	if err == nil {
		t.Fatal("expected handled error")
	}
	if action == nil {
		t.Fatal("failure should return an action")
	}
	// The failure was attributed to the circuit's service, not "unknown".
	if health.errorCount("llm-anthropic") != 1 {
		t.Errorf("expected error recorded under circuit name, got %v", health.errors)
	}
}

func TestExecuteUnregisteredCircuit(t *testing.T) {
	p, _, _ := newTestPlanner()

	_, action, err := p.Execute(context.Background(), "nope",
		func(ctx context.Context) (any, error) { return nil, nil }, nil)

	if err == nil {
		t.Fatal("expected configuration error")
	}
	if action == nil || action.Type != ActionManual {
		t.Errorf("configuration errors need operator attention, got %+v", action)
	}
}

func TestClassifyAttachesContext(t *testing.T) {
	p, _, _ := newTestPlanner()

	appErr := p.Classify(errors.New("boom"), "redis", "get")
	if appErr == nil {
		t.Fatal("expected classified error")
	}
	if appErr.Context.Service != "redis" || appErr.Context.Operation != "get" {
		t.Errorf("context not attached: %+v", appErr.Context)
	}

	// Existing context wins.
	tagged := apperr.New(apperr.KindCacheConnectionFailed, "down").WithService("redis-primary")
	reclassified := p.Classify(tagged, "redis", "get")
	if reclassified.Context.Service != "redis-primary" {
		t.Errorf("existing service should win, got %s", reclassified.Context.Service)
	}

	if p.Classify(nil, "redis", "get") != nil {
		t.Error("nil error should classify to nil")
	}
}

func TestActionTypeString(t *testing.T) {
	cases := map[ActionType]string{
		ActionRetry:    "retry",
		ActionFallback: "fallback",
		ActionManual:   "manual",
		ActionIgnore:   "ignore",
		ActionType(9):  "unknown",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("ActionType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
