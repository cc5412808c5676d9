// Package retry implements the exponential-backoff-with-jitter wrapper used
// by the provider adapter's upstream fetches, as a single parameterized
// primitive rather than a hand-rolled loop per call site.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config parameterizes a retry run. MaxAttempts counts the initial attempt,
// so MaxAttempts=4 means "1 initial + 3 retries".
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	JitterMax   time.Duration
}

// nonRetryable lets op signal that the failure is terminal (a malformed
// request, an auth error) and further attempts would only waste time.
type nonRetryable interface {
	ShouldRetry() bool
}

// Do calls op up to cfg.MaxAttempts times, sleeping
// BaseDelay*2^(attempt-1) + random(0, JitterMax) between attempts, so the
// first retry waits BaseDelay, the second 2*BaseDelay, and so on. attempt is
// 0-indexed (the first call is attempt 0, with no preceding sleep). It
// returns nil on the first successful call, or the last error once attempts
// are exhausted or op reports its error as non-retryable. A cancelled ctx
// aborts during the inter-attempt sleep and returns ctx.Err().
func Do(ctx context.Context, cfg Config, op func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := cfg.BaseDelay * (1 << uint(attempt-1))
			jitter := time.Duration(0)
			if cfg.JitterMax > 0 {
				jitter = time.Duration(rand.Int63n(int64(cfg.JitterMax)))
			}
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if nr, ok := lastErr.(nonRetryable); ok && !nr.ShouldRetry() {
			return lastErr
		}
	}
	return lastErr
}
