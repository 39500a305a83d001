package db

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

const baseRetryBackoff = 50 * time.Millisecond

func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := baseRetryBackoff

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, err)
		}

		jitter := rand.N(backoff / 4)
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}
