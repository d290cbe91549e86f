// Package timesync aligns acquisition starts to wall-clock boundaries.
package timesync

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultPeriod is the boundary spacing used when none is configured.
const DefaultPeriod = 10 * time.Second

// Until returns how long it is from now to the next instant that is a whole
// multiple of period since the Unix epoch. Resolution is one millisecond, so
// an instant already on a boundary waits a full period.
func Until(now time.Time, period time.Duration) time.Duration {
	p := period.Milliseconds()
	if p <= 0 {
		return 0
	}
	// floor modulo, pre-1970 clocks included
	elapsed := now.UnixMilli() % p
	if elapsed < 0 {
		elapsed += p
	}
	return time.Duration(p-elapsed) * time.Millisecond
}

// WaitForBoundary sleeps on clk until the next period boundary or until ctx
// is done, in which case the context error is returned.
func WaitForBoundary(ctx context.Context, clk clock.Clock, period time.Duration) error {
	d := Until(clk.Now(), period)
	if d <= 0 {
		return ctx.Err()
	}

	timer := clk.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
