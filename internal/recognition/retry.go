package recognition

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skillscan/log"
	apperrors "skillscan/pkg/errors"
)

const DefaultMaxRetries = 3

// RetryPolicy bounds the attempts of one model call. Transport failures,
// rate limiting and unparsable replies share the same budget.
type RetryPolicy struct {
	MaxRetries  int
	Backoff     time.Duration
	CallTimeout time.Duration
	// Sleep waits between attempts; nil means a timer honouring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, Backoff: time.Second, CallTimeout: 2 * time.Minute}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry runs fn until it succeeds, fails with a non-transient error, or
// MaxRetries attempts have been made. The wait before attempt n+1 is
// Backoff * 2^n; no wait follows the last attempt.
func Retry[T any](ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		}
		out, err := fn(callCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
		if !apperrors.IsTransient(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.Backoff << attempt
		log.GetLogger().Warn("retrying model call",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max", attempts),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err = sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, apperrors.Wrap(apperrors.CodeRetriesExhausted,
		fmt.Sprintf("%s: gave up after %d attempts", op, attempts), lastErr)
}
