package application

import (
	"context"
	"time"
)

// Every runs fn once per period on the calling goroutine until fn returns
// false or ctx is done. The context is checked after every tick and before
// fn runs, so a cancelled loop never applies another tick. The ticker is
// always stopped on return. n starts at 1.
func Every(ctx context.Context, clk Clock, period time.Duration, fn func(ctx context.Context, n int) bool) error {
	t := clk.NewTicker(period)
	defer t.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C():
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(ctx, n) {
			return nil
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, clk Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clk.After(d):
		return ctx.Err()
	}
}
