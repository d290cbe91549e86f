package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	SPI     SPIConfig     `yaml:"spi"`
	Pins    PinsConfig    `yaml:"pins"`
	ADC     ADCConfig     `yaml:"adc"`
	Session SessionConfig `yaml:"session"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Mock    MockConfig    `yaml:"mock"`
}

// SPIConfig contains SPI port configuration.
type SPIConfig struct {
	Port    string `yaml:"port"`     // periph port name, empty for the first one
	SpeedHz int64  `yaml:"speed_hz"` // Clock rate
	Mode    int    `yaml:"mode"`     // SPI clock mode
}

// PinsConfig names the GPIO lines wired to the ADC.
type PinsConfig struct {
	DRDY  string `yaml:"drdy"`
	Reset string `yaml:"reset"`
	CS    string `yaml:"cs"`
}

// ADCConfig contains converter parameters.
type ADCConfig struct {
	Gain          int           `yaml:"gain"`            // PGA multiplier: 1, 2, 4 ... 64
	ReadyLimit    int           `yaml:"ready_limit"`     // DRDY polls before a wait is reported as timed out
	ReadDelay     time.Duration `yaml:"read_delay"`      // Turnaround between RREG and the data phase
	CountsPerVolt float64       `yaml:"counts_per_volt"` // Counts per volt at gain 1
}

// SessionConfig contains acquisition run parameters.
type SessionConfig struct {
	Channel    int           `yaml:"channel"`     // Positive input, 0-7
	Count      int           `yaml:"count"`       // Samples per run
	Rate       int           `yaml:"rate"`        // Data rate index, 0 (30 kSPS) to 15 (2.5 SPS)
	Print      bool          `yaml:"print"`       // Print every raw sample
	Repeat     bool          `yaml:"repeat"`      // Run forever, one CSV row per run
	Sync       bool          `yaml:"sync"`        // Align run starts to the wall clock
	SyncPeriod time.Duration `yaml:"sync_period"` // Alignment boundary
}

// OutputConfig contains report destinations.
type OutputConfig struct {
	File          string `yaml:"file"`           // Append reports to this file as well
	SerialPort    string `yaml:"serial_port"`    // Mirror reports to this serial port
	SerialBaud    int    `yaml:"serial_baud"`    // Baud rate of the mirror port
	HistogramBins int    `yaml:"histogram_bins"` // Noise histogram in summaries (0 = disabled)
}

// LogConfig contains logging parameters.
type LogConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	Offset     float64 `yaml:"offset"`      // Mean reading at gain 1 (counts)
	Noise      float64 `yaml:"noise"`       // Noise standard deviation (counts)
	ReadyAfter int     `yaml:"ready_after"` // DRDY polls per conversion
	Realtime   bool    `yaml:"realtime"`    // Pace conversions at the programmed data rate
	Seed       uint64  `yaml:"seed"`        // Noise generator seed
	Values     []int32 `yaml:"values"`      // Fixed conversion results, cycled (overrides offset and noise)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		SPI: SPIConfig{
			Port:    "",
			SpeedHz: 976562, // BCM2835 divider 256
			Mode:    1,
		},
		Pins: PinsConfig{
			DRDY:  "GPIO17",
			Reset: "GPIO18",
			CS:    "GPIO22",
		},
		ADC: ADCConfig{
			Gain:          1,
			ReadyLimit:    8000000,
			ReadDelay:     30 * time.Microsecond,
			CountsPerVolt: 1695929, // approximate, gain 1
		},
		Session: SessionConfig{
			Channel:    2,
			Count:      100,
			Rate:       7, // 100 SPS
			SyncPeriod: 10 * time.Second,
		},
		Output: OutputConfig{
			SerialBaud: 115200,
		},
		Mock: MockConfig{
			Offset:     850000, // ~0.5 V
			Noise:      26,
			ReadyAfter: 3,
			Realtime:   true,
			Seed:       1,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that cannot be silently clamped.
func (c *Config) Validate() error {
	switch c.ADC.Gain {
	case 1, 2, 4, 8, 16, 32, 64:
	default:
		return fmt.Errorf("invalid gain %d: must be a power of two from 1 to 64", c.ADC.Gain)
	}
	if c.Session.Count <= 0 {
		return fmt.Errorf("invalid sample count %d", c.Session.Count)
	}
	if c.Session.Rate < 0 {
		return fmt.Errorf("invalid rate index %d", c.Session.Rate)
	}
	if c.Session.Channel < 0 {
		return fmt.Errorf("invalid channel %d", c.Session.Channel)
	}
	if c.Session.Sync && c.Session.SyncPeriod < time.Second {
		return fmt.Errorf("sync period %v is shorter than one second", c.Session.SyncPeriod)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.SPI.SpeedHz == 0 {
		c.SPI.SpeedHz = def.SPI.SpeedHz
	}

	if c.Pins.DRDY == "" {
		c.Pins.DRDY = def.Pins.DRDY
	}
	if c.Pins.Reset == "" {
		c.Pins.Reset = def.Pins.Reset
	}
	if c.Pins.CS == "" {
		c.Pins.CS = def.Pins.CS
	}

	if c.ADC.Gain == 0 {
		c.ADC.Gain = def.ADC.Gain
	}
	if c.ADC.ReadyLimit == 0 {
		c.ADC.ReadyLimit = def.ADC.ReadyLimit
	}
	if c.ADC.ReadDelay == 0 {
		c.ADC.ReadDelay = def.ADC.ReadDelay
	}
	if c.ADC.CountsPerVolt == 0 {
		c.ADC.CountsPerVolt = def.ADC.CountsPerVolt
	}

	if c.Session.Count == 0 {
		c.Session.Count = def.Session.Count
	}
	if c.Session.SyncPeriod == 0 {
		c.Session.SyncPeriod = def.Session.SyncPeriod
	}

	if c.Output.SerialBaud == 0 {
		c.Output.SerialBaud = def.Output.SerialBaud
	}
}
