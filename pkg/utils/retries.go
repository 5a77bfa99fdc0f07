package utils

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type BackoffMode int

const (
	BackoffConstant BackoffMode = iota
	BackoffLinear
	BackoffExponential
)

// RetryPolicy bounds a retry loop. MaxAttempts must be positive, every wait
// driven by a RetryPolicy is therefore finite.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     BackoffMode
	// Retryable reports whether an error is transient. Nil retries everything.
	Retryable func(error) bool
	Clock     clockwork.Clock
}

func (p RetryPolicy) backoffTimeAfter(attempt int) time.Duration {
	switch p.Backoff {
	case BackoffLinear:
		return p.Delay * time.Duration(attempt+1)
	case BackoffExponential:
		return p.Delay * time.Duration(int(math.Pow(2, float64(attempt))))
	default:
		return p.Delay
	}
}

func (p RetryPolicy) shouldRetry(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p RetryPolicy) clock() clockwork.Clock {
	if p.Clock == nil {
		return clockwork.NewRealClock()
	}
	return p.Clock
}

// Sleep waits for d on clock or until ctx is done.
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}

func WrapWithRetries[T any](
	ctx context.Context,
	policy RetryPolicy,
	f func() (T, error),
) (T, error) {
	var (
		zero      T
		lastError error
	)

	if policy.MaxAttempts < 1 {
		return zero, fmt.Errorf("invalid retry policy: max attempts must be positive, got %d", policy.MaxAttempts)
	}

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		result, err := f()
		if err == nil {
			return result, nil
		}

		if !policy.shouldRetry(err) {
			// Don't retry for non-transient errors
			return zero, err
		}
		lastError = err

		if attempt < policy.MaxAttempts-1 {
			delay := policy.backoffTimeAfter(attempt)
			zap.S().Debugf("Attempt %d/%d failed: %v. Retrying after %v", attempt+1, policy.MaxAttempts, err, delay)
			if err := Sleep(ctx, policy.clock(), delay); err != nil {
				return zero, fmt.Errorf("retries interrupted: %w (last error: %w)", err, lastError)
			}
		}
	}

	return zero, fmt.Errorf("number of retries exceeded: %v. Last error: %w", policy.MaxAttempts, lastError)
}
