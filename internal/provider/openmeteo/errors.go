package openmeteo

import (
	"fmt"
	"strings"
)

// retryableError mirrors the shape of a transport/HTTP failure classified
// as worth another attempt or not.
type retryableError struct {
	err         error
	statusCode  int
	shouldRetry bool
}

func (e *retryableError) Error() string {
	if e.shouldRetry {
		return fmt.Sprintf("retryable: %v (status: %d)", e.err, e.statusCode)
	}
	return fmt.Sprintf("non-retryable: %v (status: %d)", e.err, e.statusCode)
}

func (e *retryableError) Unwrap() error { return e.err }

// ShouldRetry satisfies retry.nonRetryable.
func (e *retryableError) ShouldRetry() bool { return e.shouldRetry }

// classifyStatusError decides whether an HTTP status code warrants a retry.
// 4xx other than 429 is treated as terminal (the request itself is bad);
// 429 and 5xx are treated as transient.
func classifyStatusError(statusCode int, body []byte) error {
	err := fmt.Errorf("openmeteo: unexpected status %d: %s", statusCode, truncate(body, 200))
	shouldRetry := statusCode == 429 || statusCode >= 500
	return &retryableError{err: err, statusCode: statusCode, shouldRetry: shouldRetry}
}

// classifyTransportError decides whether a network-level error (no status
// code available) warrants a retry, via substring matching against known
// transient failure modes.
func classifyTransportError(err error) error {
	shouldRetry := containsAny(err.Error(), []string{
		"timeout", "connection refused", "connection reset",
		"EOF", "broken pipe", "no such host",
	})
	return &retryableError{err: err, statusCode: 0, shouldRetry: shouldRetry}
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
