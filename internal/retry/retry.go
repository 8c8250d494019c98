// Package retry provides the single retry policy shared by every remote
// operation in the pipeline: a bounded attempt count with linearly increasing
// backoff (attempt × base delay).
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is canceled.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := time.Duration(attempt) * p.BaseDelay
		slog.Warn("Operation failed, retrying", "op", op, "attempt", attempt, "delay", delay, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}
