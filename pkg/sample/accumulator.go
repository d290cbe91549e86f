package sample

import (
	"math"
	"time"
)

// Accumulator keeps single-pass statistics over an unbounded sample stream:
// Welford running mean and sum of squared deviations, plus extrema. All
// arithmetic is float64 regardless of the sample width.
type Accumulator struct {
	countsPerVolt float64
	gain          int

	n    uint64
	mean float64
	m2   float64
	min  int32
	max  int32

	start time.Time
	end   time.Time
}

// NewAccumulator creates an accumulator whose summaries convert the mean to
// volts with countsPerVolt (gain 1 scale) and the PGA multiplier gain.
func NewAccumulator(countsPerVolt float64, gain int) *Accumulator {
	if countsPerVolt == 0 {
		countsPerVolt = DefaultCountsPerVolt
	}
	if gain <= 0 {
		gain = 1
	}
	a := &Accumulator{countsPerVolt: countsPerVolt, gain: gain}
	a.Reset()
	return a
}

// Reset clears all state.
func (a *Accumulator) Reset() {
	a.n = 0
	a.mean = 0
	a.m2 = 0
	// outside the 24-bit range so the first sample replaces both
	a.min = 1 << 24
	a.max = -(1 << 24)
	a.start = time.Time{}
	a.end = time.Time{}
}

// Update adds one sample.
func (a *Accumulator) Update(x int32) {
	if x > a.max {
		a.max = x
	}
	if x < a.min {
		a.min = x
	}

	v := float64(x)
	a.n++
	delta := v - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (v - a.mean)
}

// Count returns the number of samples seen.
func (a *Accumulator) Count() uint64 {
	return a.n
}

// MarkStart records the start timestamp of the run.
func (a *Accumulator) MarkStart(t time.Time) {
	a.start = t
}

// MarkEnd records the end timestamp of the run.
func (a *Accumulator) MarkEnd(t time.Time) {
	a.end = t
}

// Finalize computes the summary. Variance is the sample variance m2/(n-1)
// and is NaN with fewer than two samples; extrema are zero with none.
func (a *Accumulator) Finalize() Summary {
	s := Summary{
		Count:    a.n,
		Mean:     a.mean,
		Variance: math.NaN(),
		StdDev:   math.NaN(),
		Start:    a.start,
		End:      a.end,
	}
	if a.n > 0 {
		s.Min = a.min
		s.Max = a.max
		s.PeakToPeak = a.max - a.min
	}
	if a.n > 1 {
		s.Variance = a.m2 / float64(a.n-1)
		s.StdDev = math.Sqrt(s.Variance)
	}
	s.Volts = CountsToVolts(a.mean, a.countsPerVolt, a.gain)
	return s
}
