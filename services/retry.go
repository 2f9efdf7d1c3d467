package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rs/zerolog/log"
)

// Retrier re-runs idempotent store calls that fail with a transient error.
// Each attempt gets its own Timeout; delays double from Base up to Max.
type Retrier struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
	Timeout  time.Duration

	timer backoff.Timer
}

func DefaultRetrier(timeout time.Duration) Retrier {
	return Retrier{Attempts: 3, Base: 100 * time.Millisecond, Max: time.Second, Timeout: timeout}
}

// Once runs fn a single time under the attempt timeout. It is used for
// calls that must not be repeated, such as toggles and inserts.
func (r Retrier) Once(ctx context.Context, fn func(context.Context) error) error {
	return r.attempt(ctx, "store call", fn)
}

func (r Retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	operation := func() error {
		err := r.attempt(ctx, op, fn)
		if err != nil && !errs.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		log.Warn().Err(err).Str("op", op).Dur("delay", delay).Msg("transient failure, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.policy(), uint64(attempts-1)), ctx)
	return backoff.RetryNotifyWithTimer(operation, policy, notify, r.timer)
}

// policy is an exponential schedule without jitter or an elapsed-time limit;
// the attempt count bounds it instead.
func (r Retrier) policy() *backoff.ExponentialBackOff {
	opts := []backoff.ExponentialBackOffOpts{
		backoff.WithInitialInterval(r.Base),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	}
	if r.Max > 0 {
		opts = append(opts, backoff.WithMaxInterval(r.Max))
	}
	return backoff.NewExponentialBackOff(opts...)
}

// attempt runs fn once. A bare deadline from the attempt timeout, while the
// caller's context is still live, is reported as a retryable timeout.
func (r Retrier) attempt(ctx context.Context, op string, fn func(context.Context) error) error {
	attemptCtx, cancel := r.attemptContext(ctx)
	defer cancel()

	err := fn(attemptCtx)
	var apiErr *errs.ApiErr
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) && !errors.As(err, &apiErr) {
		return errs.NewTimeoutError(op)
	}
	return err
}

func (r Retrier) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}

// retryValue is Do for calls that return a value.
func retryValue[T any](ctx context.Context, r Retrier, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func onceValue[T any](ctx context.Context, r Retrier, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := r.Once(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
