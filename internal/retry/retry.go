// Package retry holds the single retry policy shared by the paginated
// fetcher and the warehouse loader. The original scripts each carried their
// own ad hoc loop; this unifies them behind one bounded, fixed-delay policy.
package retry

import (
	"context"
	"time"

	"github.com/brightonpier/sales-etl/internal/etl"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first one.
	// A value of 1 disables retries.
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration

	// ShouldRetry decides whether an error is worth another attempt.
	// Defaults to etl.IsTransient.
	ShouldRetry func(err error) bool

	// OnRetry, if set, is called before each retry sleep with the upcoming
	// attempt number (2-based) and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// Default returns the policy the original scripts converged on: three
// attempts with a five second pause between them.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
	}
}

// Do runs fn until it succeeds, the error is non-retryable, the attempt
// budget is exhausted, or ctx is cancelled. The last error is returned
// unwrapped so callers can classify it.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = etl.IsTransient
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, lastErr)
		}
		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
