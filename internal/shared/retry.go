package shared

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backoff describes an exponential retry schedule.
type Backoff struct {
	Attempts  int
	BaseDelay time.Duration
	Retryable func(error) bool
}

// SQLiteBackoff retries SQLite conflicts three times: 100ms, 200ms, 400ms.
var SQLiteBackoff = Backoff{
	Attempts:  3,
	BaseDelay: 100 * time.Millisecond,
	Retryable: IsSQLiteConflictError,
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempts are spent.
// The final error is wrapped with op.
func (b Backoff) Do(ctx context.Context, op string, fn func() error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if b.Retryable == nil || !b.Retryable(err) || i == attempts-1 {
			break
		}

		delay := b.BaseDelay * time.Duration(1<<i)
		slog.Debug("retrying after conflict", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
