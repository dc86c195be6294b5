package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// SoftError wraps a transport-level failure that is safe to retry on the
// normal poll cadence (bad status code, non-JSON body, network hiccup).
// It is never surfaced to a user; the next attempt is the recovery.
type SoftError struct {
	Err        error
	StatusCode int
}

func (e *SoftError) Error() string {
	return e.Err.Error()
}

func (e *SoftError) Unwrap() error {
	return e.Err
}

// NewSoftError wraps an error as a soft failure with an optional HTTP status code.
func NewSoftError(err error, statusCode int) *SoftError {
	return &SoftError{Err: err, StatusCode: statusCode}
}

// IsSoft returns true if the error (or any error in its chain) is a
// SoftError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures). An explicit SoftError wrap
// always counts, even when the chain bottoms out in a deadline error (an
// http.Client per-request timeout surfaces context.DeadlineExceeded).
// Outside a SoftError, context cancellation is never soft: a cancelled
// attempt must not be retried.
func IsSoft(err error) bool {
	if err == nil {
		return false
	}

	// An explicit SoftError wrap is authoritative.
	var se *SoftError
	if errors.As(err, &se) {
		return true
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Network-level transient errors.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Connection reset / refused / DNS.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	softPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range softPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsSoftHTTPStatus returns true if the HTTP status code should be treated as
// a soft failure rather than a conclusive answer. Anything outside 2xx is
// soft: the enrichment job's own outcome travels in the payload, never in
// the transport status.
func IsSoftHTTPStatus(statusCode int) bool {
	return statusCode < 200 || statusCode >= 300
}
