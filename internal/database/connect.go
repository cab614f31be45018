package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// connectAttempts bounds how long startup waits for a backing service.
const connectAttempts = 6

// pingWithRetry calls ping until it succeeds or the attempts run out.
// Containers started together rarely come up in order.
func pingWithRetry(ctx context.Context, log zerolog.Logger, target string, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 4 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, ping(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(connectAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("target", target).Dur("retry_in", next).Msg("Backing service not ready, retrying")
		}),
	)
	return err
}
