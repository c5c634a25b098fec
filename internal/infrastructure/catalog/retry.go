package catalog

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/productlens/ingest/internal/domain"
)

// Default retry settings
const (
	DefaultAttempts  = 2
	DefaultBaseDelay = time.Second
)

// RetryPolicy is a bounded retry with exponential backoff. The delay before
// attempt k (k >= 2) is BaseDelay * 2^(k-2).
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	Retryable func(error) bool
	Sleep     func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a policy; non-positive values fall back to the defaults
func NewRetryPolicy(attempts int, baseDelay time.Duration) *RetryPolicy {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &RetryPolicy{
		Attempts:  attempts,
		BaseDelay: baseDelay,
		Retryable: IsRetryable,
		Sleep:     sleepContext,
	}
}

// Delay returns the wait before the given attempt number
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	return base << uint(attempt-2)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The last error seen is returned.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := p.Delay(attempt)
			log.Printf("[CATALOG] Retrying (attempt %d/%d) after %v", attempt, attempts, delay)
			if err := sleep(ctx, delay); err != nil {
				return lastErr
			}
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
	}
	return lastErr
}

// IsRetryable treats transport failures, 429 and 5xx responses as transient
func IsRetryable(err error) bool {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Temporary()
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
