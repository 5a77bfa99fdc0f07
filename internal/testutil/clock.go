package testutil

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

type contextBlocker interface {
	BlockUntilContext(ctx context.Context, waiters int) error
}

// RunAdvancing runs fn in its own goroutine and advances clock by step each
// time fn blocks on it, so polling loops driven by a fake clock finish
// without real sleeps.
func RunAdvancing(clock clockwork.FakeClock, step time.Duration, fn func() error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- fn()
	}()

	blocker, canBlock := clock.(contextBlocker)
	for {
		if canBlock {
			if err := blocker.BlockUntilContext(ctx, 1); err != nil {
				return <-done
			}
		} else {
			select {
			case err := <-done:
				return err
			case <-time.After(time.Millisecond):
			}
		}

		select {
		case err := <-done:
			return err
		default:
			clock.Advance(step)
		}
	}
}
