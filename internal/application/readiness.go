package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitReady calls probe until it succeeds, retrying at most attempts times
// with a fixed interval between tries. It never waits indefinitely: once
// the retries are exhausted the last probe error is returned.
func WaitReady(ctx context.Context, what string, attempts uint64, interval time.Duration, probe func(context.Context) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), attempts),
		ctx,
	)

	try := 0
	err := backoff.RetryNotify(func() error {
		try++
		return probe(ctx)
	}, policy, func(err error, next time.Duration) {
		slog.Debug("not ready yet", "what", what, "attempt", try, "retry_in", next, "error", err)
	})
	if err != nil {
		return fmt.Errorf("%s not ready after %d attempts: %w", what, try, err)
	}
	return nil
}
