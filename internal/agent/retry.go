package agent

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jonathan/cover-letter-agent/internal/llm"
)

// RetryPolicy bounds retries of transient completion failures.
type RetryPolicy struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt index to get the wait before the next attempt.
	BaseDelay time.Duration
}

// DefaultRetryPolicy is three attempts, waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// linearBackOff waits BaseDelay × n before the n-th retry.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// newBackOff builds the backoff for one invocation. It stops after the policy's attempts
// or when ctx is done.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &linearBackOff{base: p.BaseDelay}
	b = backoff.WithMaxRetries(b, uint64(p.attempts()-1))
	return backoff.WithContext(b, ctx)
}

// retry runs op until it succeeds, returns a non-transient error, or the policy is exhausted.
// op marks terminal failures with backoff.Permanent.
func retry[T any](ctx context.Context, p RetryPolicy, op func() (T, error), onRetry func(error, time.Duration)) (T, error) {
	return backoff.RetryNotifyWithData[T](op, p.newBackOff(ctx), onRetry)
}

// Retry runs op with a per-attempt timeout, retrying transient failures under policy p.
// A failure is transient when ctx is still live and llm.IsTransient holds, so an expired
// attempt deadline is retried while a cancelled caller is not. onRetry may be nil.
func Retry[T any](ctx context.Context, p RetryPolicy, timeout time.Duration, op func(ctx context.Context) (T, error), onRetry func(error, time.Duration)) (T, error) {
	attempt := func() (T, error) {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		out, err := op(callCtx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() == nil && llm.IsTransient(err) {
			return out, err
		}
		return out, backoff.Permanent(err)
	}
	return retry(ctx, p, attempt, onRetry)
}
