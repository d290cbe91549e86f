package sample

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountsToVolts(t *testing.T) {
	tests := []struct {
		name          string
		counts        float64
		countsPerVolt float64
		gain          int
		want          float64
	}{
		{
			name:          "zero",
			counts:        0,
			countsPerVolt: DefaultCountsPerVolt,
			gain:          1,
			want:          0,
		},
		{
			name:          "one volt",
			counts:        DefaultCountsPerVolt,
			countsPerVolt: DefaultCountsPerVolt,
			gain:          1,
			want:          1,
		},
		{
			name:          "negative half volt",
			counts:        -DefaultCountsPerVolt / 2.0,
			countsPerVolt: DefaultCountsPerVolt,
			gain:          1,
			want:          -0.5,
		},
		{
			name:          "gain divides",
			counts:        DefaultCountsPerVolt,
			countsPerVolt: DefaultCountsPerVolt,
			gain:          8,
			want:          0.125,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountsToVolts(tt.counts, tt.countsPerVolt, tt.gain)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCountsToVolts_InvalidScale(t *testing.T) {
	assert.True(t, math.IsNaN(CountsToVolts(1, 0, 1)))
	assert.True(t, math.IsNaN(CountsToVolts(1, DefaultCountsPerVolt, 0)))
}

func TestSummary_Rate(t *testing.T) {
	now := time.Now()

	s := Summary{Count: 100, Start: now, End: now.Add(500 * time.Millisecond)}
	assert.Equal(t, 500*time.Millisecond, s.Duration())
	assert.InDelta(t, 200.0, s.Rate(), 1e-9)

	s = Summary{Count: 100, Start: now, End: now}
	assert.Equal(t, 0.0, s.Rate(), "no elapsed time reports zero rate")
}
