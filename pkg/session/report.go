package session

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aybabtme/uniplot/histogram"

	"github.com/itohio/adsread/pkg/sample"
)

// TimestampLayout is the report timestamp format, local time to the millisecond.
const TimestampLayout = "2006-01-02 15:04:05.000"

// CSVHeader names the columns of a CSV row.
const CSVHeader = "end_time, samples, raw, stdev, pk-pk, volts"

// SamplesHeader precedes per-sample output.
const SamplesHeader = "ADC_counts"

// histogramWidth is the bar length of the fullest bucket.
const histogramWidth = 40

// FormatTimestamp renders t in local time rounded to the nearest millisecond.
func FormatTimestamp(t time.Time) string {
	return t.Round(time.Millisecond).Local().Format(TimestampLayout)
}

// WriteSummary writes the multi-line block reported after a single run.
func WriteSummary(w io.Writer, s sample.Summary) error {
	_, err := fmt.Fprintf(w,
		"# Avg: %5.3f  Std.Dev: %5.3f  Pk-Pk: %d  Volts: %8.7f\n"+
			"# Start: %s   End: %s\n"+
			"# Samples: %d  Time: %5.3f sec  Rate: %5.3f Hz\n",
		s.Mean, s.StdDev, s.PeakToPeak, s.Volts,
		FormatTimestamp(s.Start), FormatTimestamp(s.End),
		s.Count, s.Duration().Seconds(), s.Rate(),
	)
	return err
}

// WriteCSVHeader writes the column header for repeated runs.
func WriteCSVHeader(w io.Writer) error {
	_, err := fmt.Fprintln(w, CSVHeader)
	return err
}

// WriteCSVRow writes one run as a CSV row.
func WriteCSVRow(w io.Writer, s sample.Summary) error {
	_, err := fmt.Fprintf(w, "%s, %d, %5.3f, %5.3f, %d, %8.7f\n",
		FormatTimestamp(s.End), s.Count, s.Mean, s.StdDev, s.PeakToPeak, s.Volts)
	return err
}

// WriteHistogram draws the distribution of values over bins buckets.
func WriteHistogram(w io.Writer, values []float64, bins int) error {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	h := histogram.Hist(bins, values)
	return histogram.Fprintf(w, h, histogram.Linear(histogramWidth), func(v float64) string {
		return strconv.FormatFloat(v, 'f', 0, 64)
	})
}
