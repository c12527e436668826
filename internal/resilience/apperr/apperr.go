// Package apperr defines the application error taxonomy used by the resilience
// layer. Errors are classified into a closed set of kinds, each with a fixed
// severity, so the recovery planner and health aggregator can make decisions
// without inspecting provider-specific error strings.
package apperr

import (
	"fmt"
	"time"
)

// Kind identifies the origin and nature of a failure. The set is closed:
// adding a kind requires updating the severity table and the recovery plan,
// both of which are total switches the compiler checks for us.
type Kind int

const (
	// KindUnknown is the zero value for unclassified failures.
	KindUnknown Kind = iota

	// Audio capture layer.
	KindAudioPermissionDenied
	KindAudioDeviceNotFound
	KindAudioStreamLost
	KindAudioFormatUnsupported

	// Transcription providers.
	KindTranscriptionTimeout
	KindTranscriptionFailed
	KindTranscriptionRateLimited
	KindTranscriptionLanguageUnsupported

	// Generation (LLM) providers.
	KindLLMFailure
	KindLLMRateLimited
	KindLLMContextOverflow
	KindLLMInvalidResponse

	// Infrastructure.
	KindDatabaseConnectionFailed
	KindDatabaseQueryFailed
	KindDatabaseConstraintViolation
	KindCacheConnectionFailed
	KindWebSocketConnectionFailed

	// Network.
	KindNetworkTimeout
	KindNetworkUnreachable
	KindQuotaExceeded

	// Operational.
	KindConfiguration
	KindServiceUnavailable
)

// String returns the stable string identifier for a kind. These identifiers
// appear in logs and metrics labels and must not change between releases.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindAudioPermissionDenied:
		return "audio_permission_denied"
	case KindAudioDeviceNotFound:
		return "audio_device_not_found"
	case KindAudioStreamLost:
		return "audio_stream_lost"
	case KindAudioFormatUnsupported:
		return "audio_format_unsupported"
	case KindTranscriptionTimeout:
		return "transcription_timeout"
	case KindTranscriptionFailed:
		return "transcription_failed"
	case KindTranscriptionRateLimited:
		return "transcription_rate_limited"
	case KindTranscriptionLanguageUnsupported:
		return "transcription_language_unsupported"
	case KindLLMFailure:
		return "llm_failure"
	case KindLLMRateLimited:
		return "llm_rate_limited"
	case KindLLMContextOverflow:
		return "llm_context_overflow"
	case KindLLMInvalidResponse:
		return "llm_invalid_response"
	case KindDatabaseConnectionFailed:
		return "database_connection_failed"
	case KindDatabaseQueryFailed:
		return "database_query_failed"
	case KindDatabaseConstraintViolation:
		return "database_constraint_violation"
	case KindCacheConnectionFailed:
		return "cache_connection_failed"
	case KindWebSocketConnectionFailed:
		return "websocket_connection_failed"
	case KindNetworkTimeout:
		return "network_timeout"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindConfiguration:
		return "configuration"
	case KindServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// Severity classifies how urgently a failure needs human attention.
// It drives alert routing only, never control flow.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the severity label used in logs and alert payloads.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// SeverityOf returns the fixed severity for a kind.
func SeverityOf(k Kind) Severity {
	switch k {
	case KindAudioPermissionDenied, KindAudioDeviceNotFound, KindAudioFormatUnsupported:
		return SeverityMedium
	case KindAudioStreamLost:
		return SeverityHigh
	case KindTranscriptionTimeout, KindTranscriptionRateLimited, KindTranscriptionLanguageUnsupported:
		return SeverityMedium
	case KindTranscriptionFailed:
		return SeverityHigh
	case KindLLMRateLimited, KindLLMContextOverflow:
		return SeverityMedium
	case KindLLMFailure, KindLLMInvalidResponse:
		return SeverityHigh
	case KindDatabaseConnectionFailed:
		return SeverityCritical
	case KindDatabaseQueryFailed:
		return SeverityHigh
	case KindDatabaseConstraintViolation:
		return SeverityLow
	case KindCacheConnectionFailed:
		return SeverityMedium
	case KindWebSocketConnectionFailed:
		return SeverityHigh
	case KindNetworkTimeout, KindNetworkUnreachable:
		return SeverityMedium
	case KindQuotaExceeded:
		return SeverityHigh
	case KindConfiguration:
		return SeverityHigh
	case KindServiceUnavailable:
		return SeverityCritical
	case KindUnknown:
		return SeverityMedium
	default:
		return SeverityMedium
	}
}

// Context carries the call-site information attached to an error at the
// boundary where the fault was detected. Correlation IDs let operators join
// an error with the request and meeting session that produced it.
type Context struct {
	Service   string
	Operation string
	Timestamp time.Time
	RequestID string
	SessionID string
}

// Error is the classified error value propagated through the resilience core.
// It wraps the underlying cause so errors.Is and errors.As keep working.
type Error struct {
	Kind     Kind
	Severity Severity
	Context  Context
	Message  string
	Cause    error
}

// New creates a classified error with the severity fixed by its kind.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:     kind,
		Severity: SeverityOf(kind),
		Message:  message,
		Context:  Context{Timestamp: time.Now()},
	}
}

// Wrap creates a classified error around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.Cause = cause
	return e
}

// WithContext returns the error with call-site context attached.
// The original timestamp is preserved unless the new context carries one.
func (e *Error) WithContext(ctx Context) *Error {
	if ctx.Timestamp.IsZero() {
		ctx.Timestamp = e.Context.Timestamp
	}
	e.Context = ctx
	return e
}

// WithService sets the logical service name on the error context.
func (e *Error) WithService(service string) *Error {
	e.Context.Service = service
	return e
}

// WithOperation sets the operation name on the error context.
func (e *Error) WithOperation(op string) *Error {
	e.Context.Operation = op
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPError represents a failure reported by an HTTP-shaped dependency.
// Provider adapters construct it from non-2xx responses so the retry
// conditions and the classifier can reason about status codes.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
