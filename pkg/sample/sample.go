package sample

import (
	"math"
	"time"
)

// DefaultCountsPerVolt is the approximate ADS1256 scale at gain 1 on the
// Waveshare board (2.5 V reference).
const DefaultCountsPerVolt = 1695929

// Summary is the finalized statistics of one acquisition run.
type Summary struct {
	Count      uint64
	Mean       float64 // counts
	Variance   float64 // sample variance (n-1), NaN below two samples
	StdDev     float64 // counts
	Min        int32
	Max        int32
	PeakToPeak int32   // Max - Min over the same samples
	Volts      float64 // Mean converted to volts
	Start      time.Time
	End        time.Time
}

// Duration returns the elapsed acquisition time.
func (s Summary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Rate returns the achieved sample rate in Hz, zero when no time elapsed.
func (s Summary) Rate() float64 {
	d := s.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(s.Count) / d
}

// CountsToVolts converts a reading to volts. countsPerVolt is the gain 1
// scale; gain is the PGA multiplier.
func CountsToVolts(counts, countsPerVolt float64, gain int) float64 {
	if countsPerVolt == 0 || gain <= 0 {
		return math.NaN()
	}
	return counts / (countsPerVolt * float64(gain))
}
