package apperr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

// Classify promotes an arbitrary error into a classified *Error.
// Already-classified errors are returned unchanged, including those buried
// inside a wrap chain. Everything else is matched against the network and
// HTTP shapes a flaky dependency typically produces; the rest becomes
// KindUnknown and is left for a human to triage.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindNetworkTimeout, "operation deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(KindNetworkTimeout, "operation canceled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(KindNetworkTimeout, "network timeout", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Wrap(KindNetworkUnreachable, "DNS resolution failed", err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return Wrap(KindNetworkUnreachable, "connection failed", err)
	}
	if errors.Is(err, syscall.ETIMEDOUT) {
		return Wrap(KindNetworkTimeout, "connection timed out", err)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return Wrap(KindQuotaExceeded, "rate limited by upstream", err)
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return Wrap(KindNetworkTimeout, "upstream request timeout", err)
		case httpErr.StatusCode >= 500:
			return Wrap(KindServiceUnavailable, "upstream server error", err)
		}
	}

	return Wrap(KindUnknown, "unclassified error", err)
}

// KindOf returns the kind of a classified error, or KindUnknown when the
// error carries no classification.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
