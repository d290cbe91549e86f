// Package session runs acquisition sessions: it brings the ADC up once, then
// performs one or more fixed-length runs, reporting the statistics of each.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/itohio/adsread/pkg/ads1256"
	"github.com/itohio/adsread/pkg/sample"
	"github.com/itohio/adsread/pkg/timesync"
)

// maxHistogramPoints bounds the samples retained for the noise histogram.
const maxHistogramPoints = 1 << 16

// Ensure Device implements ADC.
var _ ADC = (*ads1256.Device)(nil)

// ADC is the part of the driver a session uses.
type ADC interface {
	Init() error
	Setup(cfg ads1256.AdcConfig) error
	WaitReady(limit int) bool
	ReadSample() (int32, error)
	Timeouts() uint64
}

// Params is the immutable description of a session.
type Params struct {
	Channel         uint8
	SampleCount     uint32
	RateIndex       ads1256.DataRate
	Gain            ads1256.Gain
	PrintEachSample bool
	RepeatForever   bool
	SyncToClock     bool
	SyncPeriod      time.Duration // boundary spacing for SyncToClock
	ReadyLimit      int           // DRDY polls per sample
	CountsPerVolt   float64       // at gain 1
	HistogramBins   int           // 0 disables the histogram
}

// Options carries the collaborators of a Session. Zero values select the
// wall clock, stdout and a no-op logger.
type Options struct {
	Clock  clock.Clock
	Out    io.Writer
	Logger *zap.Logger
}

// Session owns the ADC configuration for its lifetime.
type Session struct {
	adc    ADC
	params Params
	cfg    ads1256.AdcConfig
	clock  clock.Clock
	out    io.Writer
	logger *zap.Logger

	ready bool
	runs  uint64
}

// New creates a session. Nothing touches the hardware until Run or RunOnce.
func New(adc ADC, params Params, opts Options) *Session {
	if params.SyncPeriod <= 0 {
		params.SyncPeriod = timesync.DefaultPeriod
	}
	if params.ReadyLimit <= 0 {
		params.ReadyLimit = ads1256.DefaultReadyLimit
	}
	if params.CountsPerVolt == 0 {
		params.CountsPerVolt = sample.DefaultCountsPerVolt
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Session{
		adc:    adc,
		params: params,
		cfg: ads1256.AdcConfig{
			Gain:     params.Gain,
			DataRate: params.RateIndex,
			Channel:  params.Channel,
		},
		clock:  opts.Clock,
		out:    opts.Out,
		logger: opts.Logger,
	}
}

// Params returns the session parameters with defaults applied.
func (s *Session) Params() Params {
	return s.params
}

// Runs returns the number of completed runs.
func (s *Session) Runs() uint64 {
	return s.runs
}

// Run brings the ADC up and performs one run, or runs back to back until ctx
// is cancelled when repeating. Cancellation is observed between runs and
// during a boundary wait; a run in progress always completes its count.
// Cancellation ends the session without error.
func (s *Session) Run(ctx context.Context) error {
	if err := s.bringUp(); err != nil {
		return err
	}

	if s.params.PrintEachSample {
		if _, err := fmt.Fprintln(s.out, SamplesHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if s.params.RepeatForever {
		if err := WriteCSVHeader(s.out); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("session stopped", zap.Uint64("runs", s.runs))
			return nil
		}
		_, err := s.RunOnce(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Info("session stopped", zap.Uint64("runs", s.runs))
			return nil
		}
		if err != nil {
			return err
		}
		if !s.params.RepeatForever {
			return nil
		}
	}
}

// RunOnce performs a single run of SampleCount gated reads and reports it.
// The ADC is brought up first if that has not happened yet.
func (s *Session) RunOnce(ctx context.Context) (sample.Summary, error) {
	if err := s.bringUp(); err != nil {
		return sample.Summary{}, err
	}

	if s.params.SyncToClock {
		if err := timesync.WaitForBoundary(ctx, s.clock, s.params.SyncPeriod); err != nil {
			return sample.Summary{}, err
		}
	}

	acc := sample.NewAccumulator(s.params.CountsPerVolt, s.cfg.Gain.Multiplier())
	var hist *sample.Decimator
	if s.params.HistogramBins > 0 && !s.params.RepeatForever {
		hist = sample.NewDecimator(int(s.params.SampleCount), maxHistogramPoints)
	}
	timeouts := s.adc.Timeouts()

	acc.MarkStart(s.clock.Now())
	for i := uint32(0); i < s.params.SampleCount; i++ {
		s.adc.WaitReady(s.params.ReadyLimit)
		v, err := s.adc.ReadSample()
		if err != nil {
			return sample.Summary{}, fmt.Errorf("sample %d: %w", i, err)
		}
		if s.params.PrintEachSample {
			if _, err := fmt.Fprintf(s.out, "%8d\n", v); err != nil {
				return sample.Summary{}, fmt.Errorf("failed to write sample: %w", err)
			}
		}
		acc.Update(v)
		if hist != nil {
			hist.Add(v)
		}
	}
	acc.MarkEnd(s.clock.Now())

	summary := acc.Finalize()
	s.runs++

	if missed := s.adc.Timeouts() - timeouts; missed > 0 {
		s.logger.Warn("DRDY timeouts during run", zap.Uint64("timeouts", missed), zap.Uint64("run", s.runs))
	}
	s.logger.Debug("run complete",
		zap.Uint64("run", s.runs),
		zap.Uint64("samples", summary.Count),
		zap.Float64("mean", summary.Mean),
		zap.Float64("stdev", summary.StdDev),
		zap.Duration("duration", summary.Duration()),
	)

	if err := s.report(summary, hist); err != nil {
		return summary, fmt.Errorf("failed to write report: %w", err)
	}
	return summary, nil
}

func (s *Session) bringUp() error {
	if s.ready {
		return nil
	}
	if err := s.adc.Init(); err != nil {
		return fmt.Errorf("failed to initialise ADC: %w", err)
	}
	if err := s.adc.Setup(s.cfg); err != nil {
		return fmt.Errorf("failed to set up ADC: %w", err)
	}
	s.ready = true
	return nil
}

// flusher is implemented by buffered outputs such as sink.Sink.
type flusher interface {
	Flush() error
}

func (s *Session) report(summary sample.Summary, hist *sample.Decimator) error {
	if err := s.writeReport(summary, hist); err != nil {
		return err
	}
	if f, ok := s.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (s *Session) writeReport(summary sample.Summary, hist *sample.Decimator) error {
	if s.params.RepeatForever {
		return WriteCSVRow(s.out, summary)
	}

	if err := WriteSummary(s.out, summary); err != nil {
		return err
	}
	if hist != nil {
		if err := WriteHistogram(s.out, hist.Values(), s.params.HistogramBins); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(s.out)
	return err
}
