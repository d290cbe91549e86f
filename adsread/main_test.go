package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/adsread/pkg/ads1256"
	"github.com/itohio/adsread/pkg/config"
)

func TestApplyArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    config.SessionConfig
		wantErr bool
	}{
		{
			name: "no arguments keeps defaults",
			args: nil,
			want: config.Default().Session,
		},
		{
			name: "documented example",
			args: []string{"2", "100", "7", "0", "0"},
			want: config.Default().Session,
		},
		{
			name: "all positionals",
			args: []string{"5", "2000", "3", "1", "1", "1"},
			want: config.SessionConfig{
				Channel: 5, Count: 2000, Rate: 3,
				Print: true, Repeat: true, Sync: true,
				SyncPeriod: 10 * time.Second,
			},
		},
		{
			name: "channel and rate are clamped",
			args: []string{"9", "10", "99"},
			want: config.SessionConfig{
				Channel: 7, Count: 10, Rate: 15,
				SyncPeriod: 10 * time.Second,
			},
		},
		{
			name: "negative channel is clamped",
			args: []string{"-3"},
			want: config.SessionConfig{
				Channel: 0, Count: 100, Rate: 7,
				SyncPeriod: 10 * time.Second,
			},
		},
		{
			name: "flags are set when greater than zero",
			args: []string{"2", "100", "7", "5", "-1", "0"},
			want: config.SessionConfig{
				Channel: 2, Count: 100, Rate: 7,
				Print:      true,
				SyncPeriod: 10 * time.Second,
			},
		},
		{
			name:    "not a number",
			args:    []string{"two"},
			wantErr: true,
		},
		{
			name:    "too many arguments",
			args:    []string{"1", "2", "3", "4", "5", "6", "7"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := config.Default().Session
			err := applyArgs(&sc, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sc)
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, flags{
		spi:     "/dev/spidev0.1",
		log:     "adsread.log",
		serial:  "/dev/ttyUSB0",
		hist:    20,
		verbose: true,
	})

	assert.Equal(t, "/dev/spidev0.1", cfg.SPI.Port)
	assert.Equal(t, "adsread.log", cfg.Log.File)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Output.SerialPort)
	assert.Equal(t, 20, cfg.Output.HistogramBins)
	assert.True(t, cfg.Log.Debug)

	cfg = config.Default()
	cfg.Output.HistogramBins = 8
	applyFlags(cfg, flags{hist: -1})
	assert.Equal(t, 8, cfg.Output.HistogramBins, "unset flags keep config values")
}

func TestBuildParams(t *testing.T) {
	cfg := config.Default()
	cfg.ADC.Gain = 16
	cfg.Session.Channel = 3
	cfg.Session.Rate = 12
	cfg.Session.Repeat = true
	cfg.Output.HistogramBins = 10

	p, err := buildParams(cfg)
	require.NoError(t, err)

	assert.Equal(t, uint8(3), p.Channel)
	assert.Equal(t, uint32(100), p.SampleCount)
	assert.Equal(t, ads1256.Rate15SPS, p.RateIndex)
	assert.Equal(t, ads1256.Gain16, p.Gain)
	assert.True(t, p.RepeatForever)
	assert.Equal(t, 10*time.Second, p.SyncPeriod)
	assert.Equal(t, 8000000, p.ReadyLimit)
	assert.Equal(t, 1695929.0, p.CountsPerVolt)
	assert.Equal(t, 10, p.HistogramBins)
}

func TestBuildParams_InvalidGain(t *testing.T) {
	cfg := config.Default()
	cfg.ADC.Gain = 3

	_, err := buildParams(cfg)
	assert.ErrorIs(t, err, ads1256.ErrInvalidGain)
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	assert.Contains(t, buf.String(), "[CHn:0-7] [count:1..] [rate:0-15]")
	assert.Contains(t, buf.String(), "Example:")
}

func TestOpenBus_Mock(t *testing.T) {
	bus, err := openBus(config.Default(), true)
	require.NoError(t, err)
	assert.IsType(t, &ads1256.Sim{}, bus)
	require.NoError(t, bus.Close())
}
