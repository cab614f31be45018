package validation

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/outcome"
)

// RetryPolicy bounds retries of transient failures with exponential backoff.
type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// RetryPolicyFromConfig maps the ownership retry settings.
func RetryPolicyFromConfig(c config.RetryConfig) RetryPolicy {
	return RetryPolicy{Attempts: c.Attempts, Backoff: c.Backoff, MaxBackoff: c.MaxBackoff}
}

func (p RetryPolicy) attempts() uint {
	if p.Attempts < 1 {
		return 1
	}
	return uint(p.Attempts)
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Backoff
	b.MaxInterval = p.MaxBackoff
	b.RandomizationFactor = 0
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Millisecond
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	return b
}

// Retry runs fn until it succeeds, fails with a non-transient code, the
// attempts are used up or ctx ends. Non-transient failures are returned
// unchanged; the other two stops report RETRY_EXHAUSTED.
func Retry[T any](ctx context.Context, p RetryPolicy, log zerolog.Logger, op string, fn func(ctx context.Context) outcome.Outcome[T]) outcome.Outcome[T] {
	var (
		last  outcome.Outcome[T]
		tries int
	)
	value, err := backoff.Retry(ctx, func() (T, error) {
		tries++
		last = fn(ctx)
		if last.IsSuccess() {
			return last.Value(), nil
		}
		if !outcome.IsTransient(last.Code()) {
			return last.Value(), backoff.Permanent(last.Err())
		}
		return last.Value(), last.Err()
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.attempts()),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("op", op).Int("attempt", tries).Dur("retry_in", next).Msg("Transient failure, retrying")
		}),
	)
	if err == nil {
		return outcome.Success(value)
	}

	if tries > 0 && last.IsFailure() && !outcome.IsTransient(last.Code()) {
		return last
	}
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return outcome.Failuref[T](outcome.CodeRetryExhausted, "%s abandoned after %d attempt(s): %v", op, tries, err).WithCause(err)
	}
	return outcome.Failuref[T](outcome.CodeRetryExhausted, "%s failed after %d attempt(s): %s", op, tries, last.Message()).WithCause(err)
}
