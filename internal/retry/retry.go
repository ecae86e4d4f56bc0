// Package retry provides a standalone retry policy for transient upstream
// failures. The policy is parameterized by attempt count, backoff base, and a
// retryable predicate so it can be unit-tested independently of any provider.
package retry

import (
	"context"
	"time"

	"costwatch/internal/core"
)

// DefaultMaxAttempts is the total number of attempts (first try included).
const DefaultMaxAttempts = 3

// DefaultBaseDelay is the backoff unit; the delay before attempt n+1 is
// n × BaseDelay.
const DefaultBaseDelay = time.Second

// Policy drives retries for a single upstream request. The zero value is not
// usable; construct with Default and override fields as needed.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int

	// BaseDelay scales the linear backoff: the wait after the n-th failed
	// attempt is n × BaseDelay.
	BaseDelay time.Duration

	// Retryable decides whether a failure is transient. Defaults to
	// core.IsTransient.
	Retryable func(error) bool

	// Sleep waits for the backoff delay, honoring context cancellation.
	// Overridable for deterministic tests.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, if set, is invoked before each backoff wait with the attempt
	// number that just failed and its error.
	OnRetry func(attempt int, err error)
}

// Default returns the policy mandated for upstream billing requests:
// three attempts with linear backoff.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Do runs op, retrying transient failures up to the attempt budget.
// Permanent failures are returned immediately. Exhausting all attempts
// returns the last transient error, which callers treat as fatal for the
// whole query.
func (p Policy) Do(ctx context.Context, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = core.IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}
		if err := sleep(ctx, time.Duration(attempt)*p.BaseDelay); err != nil {
			return err
		}
	}
	return lastErr
}

// sleepContext waits for d or until the context is done.
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
