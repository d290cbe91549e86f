package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/itohio/adsread/pkg/ads1256"
	"github.com/itohio/adsread/pkg/config"
	"github.com/itohio/adsread/pkg/logger"
	"github.com/itohio/adsread/pkg/session"
	"github.com/itohio/adsread/pkg/sink"
)

type flags struct {
	config  string
	mock    bool
	spi     string
	log     string
	serial  string
	hist    int
	verbose bool
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "adsread.yaml", "Configuration file path")
	flag.BoolVar(&f.mock, "mock", false, "Use a simulated ADS1256 instead of the SPI bus")
	flag.StringVar(&f.spi, "spi", "", "SPI port override (e.g. /dev/spidev0.0)")
	flag.StringVar(&f.log, "log", "", "Also append diagnostics to this file")
	flag.StringVar(&f.serial, "serial", "", "Mirror output to this serial port (e.g. /dev/ttyUSB0)")
	flag.IntVar(&f.hist, "hist", -1, "Noise histogram buckets in the summary (0 = disabled, overrides config)")
	flag.BoolVar(&f.verbose, "v", false, "Enable debug logging")
	flag.Usage = func() {
		printUsage(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	os.Exit(run(f, flag.Args()))
}

func printUsage(w io.Writer) {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage : %s [flags] [CHn:0-7] [count:1..] [rate:0-15] [print flag:0,1] [repeat flag:0,1] [sync flag:0,1]\n", name)
	fmt.Fprintf(w, "Example: sudo %s 2 100 7 0 0   Read AD2, 100 samples at rate 7 (100 Hz), no print, no repeat\n\n", name)
}

func run(f flags, args []string) int {
	cfg, err := config.Load(f.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	applyFlags(cfg, f)

	log, closeLog, err := logger.New(logger.Options{File: cfg.Log.File, Debug: cfg.Log.Debug})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer closeLog()

	if len(args) == 0 {
		printUsage(os.Stdout)
	}
	if err := applyArgs(&cfg.Session, args); err != nil {
		log.Error("invalid arguments", zap.Error(err))
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}

	params, err := buildParams(cfg)
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}

	bus, err := openBus(cfg, f.mock)
	if err != nil {
		log.Error("failed to open ADC transport", zap.Error(err))
		return 1
	}

	dev := ads1256.New(bus, ads1256.Options{
		ReadyLimit: cfg.ADC.ReadyLimit,
		ReadDelay:  cfg.ADC.ReadDelay,
		Logger:     log.Named("ads1256"),
	})
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("failed to close ADC transport", zap.Error(err))
		}
	}()

	out, err := sink.Open(cfg.Output, os.Stdout, log.Named("sink"))
	if err != nil {
		log.Error("failed to open output", zap.Error(err))
		return 1
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warn("failed to close output", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debug("starting session",
		zap.Uint8("channel", params.Channel),
		zap.Uint32("count", params.SampleCount),
		zap.Stringer("rate", params.RateIndex),
		zap.Stringer("gain", params.Gain),
		zap.Bool("mock", f.mock),
	)

	s := session.New(dev, params, session.Options{Out: out, Logger: log.Named("session")})
	if err := s.Run(ctx); err != nil {
		if errors.Is(err, ads1256.ErrChipID) {
			log.Error("ADS1256 not found", zap.Error(err))
		} else {
			log.Error("session failed", zap.Error(err))
		}
		return 1
	}
	return 0
}

// applyFlags overrides configuration values with command line flags.
func applyFlags(cfg *config.Config, f flags) {
	if f.spi != "" {
		cfg.SPI.Port = f.spi
	}
	if f.log != "" {
		cfg.Log.File = f.log
	}
	if f.serial != "" {
		cfg.Output.SerialPort = f.serial
	}
	if f.hist >= 0 {
		cfg.Output.HistogramBins = f.hist
	}
	if f.verbose {
		cfg.Log.Debug = true
	}
}

// applyArgs reads the positional parameters in order: channel, count, rate,
// print, repeat, sync. Missing trailing parameters keep their current value.
// Channel and rate are clamped to their ranges; flags are set when > 0.
func applyArgs(sc *config.SessionConfig, args []string) error {
	names := []string{"channel", "count", "rate", "print", "repeat", "sync"}
	if len(args) > len(names) {
		return fmt.Errorf("too many arguments: %d", len(args))
	}

	values := make([]int, len(args))
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", names[i], arg, err)
		}
		values[i] = v
	}

	for i, v := range values {
		switch i {
		case 0:
			sc.Channel = clamp(v, 0, ads1256.MaxChannel)
		case 1:
			sc.Count = v
		case 2:
			sc.Rate = clamp(v, 0, ads1256.NumDataRates-1)
		case 3:
			sc.Print = v > 0
		case 4:
			sc.Repeat = v > 0
		case 5:
			sc.Sync = v > 0
		}
	}
	return nil
}

// buildParams converts a validated configuration into session parameters.
func buildParams(cfg *config.Config) (session.Params, error) {
	gain, err := ads1256.GainFromMultiplier(cfg.ADC.Gain)
	if err != nil {
		return session.Params{}, err
	}
	if uint64(cfg.Session.Count) > math.MaxUint32 {
		return session.Params{}, fmt.Errorf("sample count %d out of range", cfg.Session.Count)
	}

	return session.Params{
		Channel:         uint8(clamp(cfg.Session.Channel, 0, ads1256.MaxChannel)),
		SampleCount:     uint32(cfg.Session.Count),
		RateIndex:       ads1256.DataRate(clamp(cfg.Session.Rate, 0, ads1256.NumDataRates-1)),
		Gain:            gain,
		PrintEachSample: cfg.Session.Print,
		RepeatForever:   cfg.Session.Repeat,
		SyncToClock:     cfg.Session.Sync,
		SyncPeriod:      cfg.Session.SyncPeriod,
		ReadyLimit:      cfg.ADC.ReadyLimit,
		CountsPerVolt:   cfg.ADC.CountsPerVolt,
		HistogramBins:   cfg.Output.HistogramBins,
	}, nil
}

func openBus(cfg *config.Config, mock bool) (ads1256.Bus, error) {
	if mock {
		return ads1256.NewSim(&cfg.Mock, nil), nil
	}
	bus, err := ads1256.OpenPeriph(ads1256.PeriphConfig{
		Port:    cfg.SPI.Port,
		SpeedHz: cfg.SPI.SpeedHz,
		Mode:    cfg.SPI.Mode,
		DRDY:    cfg.Pins.DRDY,
		Reset:   cfg.Pins.Reset,
		CS:      cfg.Pins.CS,
	})
	if err != nil {
		return nil, err
	}
	return bus, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
