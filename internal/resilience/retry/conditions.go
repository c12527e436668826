package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"meetscribe/internal/resilience/apperr"
)

// OnMatch builds a retry condition that matches the error text (message,
// code, or kind identifier) against the given substrings, case-insensitively.
// An error matches if any pattern is a substring of its text.
func OnMatch(patterns ...string) func(error) bool {
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return func(err error) bool {
		if err == nil {
			return false
		}
		text := strings.ToLower(err.Error())
		for _, p := range lowered {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}
}

// OnTransient builds the HTTP-shaped retry condition: connection resets,
// DNS failures, and timeouts are retryable, as are upstream status codes
// 408, 429, 502, 503 and 504. Everything else, including context
// cancellation, is not.
func OnTransient() func(error) bool {
	return IsTransient
}

// IsTransient reports whether an error looks like a transient network or
// upstream failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Cancellation is a caller decision, never retryable.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var httpErr *apperr.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	return false
}
