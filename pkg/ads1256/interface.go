package ads1256

import (
	"runtime"
	"time"

	"github.com/benbjohnson/clock"
)

// Bus is the platform transport an ADS1256 is wired to.
type Bus interface {
	// Transfer clocks one byte out and returns the byte clocked in.
	Transfer(b byte) (byte, error)
	// SetChipSelect drives CS; active pulls the line low.
	SetChipSelect(active bool) error
	// SetReset drives RST; active pulls the line low.
	SetReset(active bool) error
	// DataReady reports whether DRDY is low.
	DataReady() (bool, error)
	Close() error
}

// Delayer provides the fixed protocol delays.
type Delayer interface {
	Sleep(d time.Duration)
}

// Ensure PeriphBus implements Bus.
var _ Bus = (*PeriphBus)(nil)

// Ensure Sim implements Bus.
var _ Bus = (*Sim)(nil)

// Ensure BusyWait implements Delayer.
var _ Delayer = (*BusyWait)(nil)

// spinLimit is the longest delay BusyWait spins for instead of sleeping.
const spinLimit = time.Millisecond

// BusyWait spins on the clock for short delays, since the scheduler cannot
// honour microsecond sleeps. Longer delays fall through to Sleep.
type BusyWait struct {
	// Clock is the wall clock by default. A *clock.Mock is advanced by each
	// delay instead of being waited on.
	Clock clock.Clock
}

// NewBusyWait returns a BusyWait on the wall clock.
func NewBusyWait() *BusyWait {
	return &BusyWait{Clock: clock.New()}
}

// Sleep blocks for d.
func (w *BusyWait) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if m, ok := w.Clock.(*clock.Mock); ok {
		m.Add(d)
		return
	}
	if d >= spinLimit {
		w.Clock.Sleep(d)
		return
	}
	deadline := w.Clock.Now().Add(d)
	for w.Clock.Now().Before(deadline) {
		runtime.Gosched()
	}
}
