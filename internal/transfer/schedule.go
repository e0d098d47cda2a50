package transfer

import (
	"context"
	"time"
)

// sleep waits for d. It returns false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// every runs fn each period until ctx ends or the returned cancel is called.
// The returned channel is closed once the task has exited.
func every(ctx context.Context, period time.Duration, fn func(ctx context.Context)) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(ctx)
	exited := make(chan struct{})

	go func() {
		defer close(exited)

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				fn(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	return cancel, exited
}
