package session

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/adsread/pkg/sample"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "whole second",
			in:   time.Date(2026, 10, 19, 8, 30, 0, 0, time.Local),
			want: "2026-10-19 08:30:00.000",
		},
		{
			name: "rounds down",
			in:   time.Date(2026, 10, 19, 8, 30, 0, 123400000, time.Local),
			want: "2026-10-19 08:30:00.123",
		},
		{
			name: "rounds up",
			in:   time.Date(2026, 10, 19, 8, 30, 0, 123600000, time.Local),
			want: "2026-10-19 08:30:00.124",
		},
		{
			name: "carries into the next second",
			in:   time.Date(2026, 12, 31, 23, 59, 59, 999700000, time.Local),
			want: "2027-01-01 00:00:00.000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(tt.in))
		})
	}
}

func testSummary() sample.Summary {
	start := time.Date(2026, 10, 19, 8, 30, 0, 0, time.Local)
	return sample.Summary{
		Count:      1000,
		Mean:       850000,
		Variance:   25,
		StdDev:     5,
		Min:        849985,
		Max:        850015,
		PeakToPeak: 30,
		Volts:      850000.0 / sample.DefaultCountsPerVolt / 2,
		Start:      start,
		End:        start.Add(2500 * time.Millisecond),
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testSummary()))

	want := "# Avg: 850000.000  Std.Dev: 5.000  Pk-Pk: 30  Volts: 0.2506001\n" +
		"# Start: 2026-10-19 08:30:00.000   End: 2026-10-19 08:30:02.500\n" +
		"# Samples: 1000  Time: 2.500 sec  Rate: 400.000 Hz\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSummary_SingleSample(t *testing.T) {
	s := testSummary()
	s.Count = 1
	s.Variance = math.NaN()
	s.StdDev = math.NaN()
	s.End = s.Start

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, s))
	assert.Contains(t, buf.String(), "Std.Dev:   NaN")
	assert.Contains(t, buf.String(), "Rate: 0.000 Hz")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSVHeader(&buf))
	require.NoError(t, WriteCSVRow(&buf, testSummary()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "end_time, samples, raw, stdev, pk-pk, volts", lines[0])
	assert.Equal(t, "2026-10-19 08:30:02.500, 1000, 850000.000, 5.000, 30, 0.2506001", lines[1])
}

func TestWriteHistogram(t *testing.T) {
	values := []float64{0, 1, 1, 2, 2, 2, 3, 3, 3, 3}

	var buf bytes.Buffer
	require.NoError(t, WriteHistogram(&buf, values, 4))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "0-1"), lines[0])
	assert.Contains(t, lines[3], "40%")
}

func TestWriteHistogram_Disabled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistogram(&buf, []float64{1, 2, 3}, 0))
	require.NoError(t, WriteHistogram(&buf, nil, 10))
	assert.Empty(t, buf.String())
}
