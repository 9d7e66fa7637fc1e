// Package poll runs a bounded, cancellable wait loop.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the condition did not hold before the timeout.
var ErrTimeout = errors.New("poll: timed out")

// Check reports whether the awaited condition holds. A non-nil error stops
// the loop unless the check chooses to swallow it.
type Check func(ctx context.Context) (done bool, err error)

// Until calls check every interval until it reports done, returns an error,
// the timeout elapses or ctx is cancelled. The first check happens after one
// interval. Timeout yields ErrTimeout; cancellation yields ctx.Err().
// The ticker is released on every return path.
func Until(ctx context.Context, interval, timeout time.Duration, check Check) error {
	if interval <= 0 {
		return errors.New("poll: interval must be positive")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, timeout, ErrTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return doneErr(ctx)
		case <-ticker.C:
			done, err := check(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return doneErr(ctx)
				}
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func doneErr(ctx context.Context) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
		return ErrTimeout
	}
	return ctx.Err()
}
