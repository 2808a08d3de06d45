package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// RetryPolicy retries operations that fail with retryable errors, using
// exponential backoff with jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the policy used for archive uploads.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs fn until it succeeds, fails with an error that is not retryable,
// the attempts are exhausted or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, logger *zap.Logger, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil || !domserrors.IsRetryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.backoff(attempt)
		logger.Warn("retrying after failure",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// backoff returns the delay before retry number attempt+1: the base delay
// doubled per attempt, +/-12.5% jitter, capped at MaxDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	exponential := time.Duration(1<<uint(attempt)) * p.BaseDelay //nolint:gosec // G115: attempt is bounded by MaxAttempts
	delay := exponential
	if quarter := int64(exponential / 4); quarter > 0 {
		jitter := time.Duration(time.Now().UnixNano()%quarter) - exponential/8
		delay += jitter
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
