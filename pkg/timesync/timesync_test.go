package timesync

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestUntil(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 9, 20, 0, time.UTC) // on a 10 s boundary

	tests := []struct {
		name   string
		now    time.Time
		period time.Duration
		want   time.Duration
	}{
		{
			name:   "on boundary waits a full period",
			now:    base,
			period: 10 * time.Second,
			want:   10 * time.Second,
		},
		{
			name:   "mid period",
			now:    base.Add(3*time.Second + 250*time.Millisecond),
			period: 10 * time.Second,
			want:   6*time.Second + 750*time.Millisecond,
		},
		{
			name:   "sub millisecond is truncated",
			now:    base.Add(9*time.Second + 999*time.Millisecond + 900*time.Microsecond),
			period: 10 * time.Second,
			want:   time.Millisecond,
		},
		{
			name:   "one second period",
			now:    base.Add(400 * time.Millisecond),
			period: time.Second,
			want:   600 * time.Millisecond,
		},
		{
			name:   "minute period",
			now:    base, // 15:09:20
			period: time.Minute,
			want:   40 * time.Second,
		},
		{
			name:   "zero period",
			now:    base,
			period: 0,
			want:   0,
		},
		{
			name:   "before epoch",
			now:    time.Unix(-3, 0),
			period: 10 * time.Second,
			want:   3 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Until(tt.now, tt.period))
		})
	}
}

func TestUntil_LandsOnBoundary(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		now = now.Add(137 * time.Millisecond)
		next := now.Truncate(time.Millisecond).Add(Until(now, DefaultPeriod))
		assert.Zero(t, next.UnixMilli()%DefaultPeriod.Milliseconds())
		assert.True(t, next.After(now))
	}
}

func TestWaitForBoundary(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_004, 0)) // 6 s before a boundary

	done := make(chan error, 1)
	go func() {
		done <- WaitForBoundary(context.Background(), mock, DefaultPeriod)
	}()

	// short of the boundary however late the waiter starts
	mock.Add(5 * time.Second)
	select {
	case <-done:
		t.Fatal("returned before the boundary")
	case <-time.After(20 * time.Millisecond):
	}

	var err error
	assert.Eventually(t, func() bool {
		mock.Add(time.Second)
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.NoError(t, err)
}

func TestWaitForBoundary_Cancelled(t *testing.T) {
	mock := clock.NewMock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForBoundary(ctx, mock, DefaultPeriod)
	assert.ErrorIs(t, err, context.Canceled)
}
