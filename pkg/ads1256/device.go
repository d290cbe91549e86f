// Package ads1256 drives a TI ADS1256 24-bit delta-sigma ADC over SPI.
//
// The driver is fully synchronous: every register access, command and
// sample read is one chip-select transaction on a Bus, and the DRDY
// handshake is a bounded busy poll. A Device is owned by a single goroutine.
package ads1256

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Protocol timing. These are hardware constants, not tunables.
const (
	// ByteDelay precedes every byte sent to the device.
	ByteDelay = 2 * time.Microsecond
	// SettleDelay elapses before the first DRDY poll; polling earlier can
	// catch DRDY before it returns high.
	SettleDelay = 5 * time.Microsecond
	// DefaultReadDelay is the RREG/RDATA turnaround (t6). The datasheet asks
	// for 50 tCLKIN (6.5us) but 30us is what works on the Waveshare board.
	DefaultReadDelay = 30 * time.Microsecond
	// DefaultReadyLimit bounds a DRDY wait in polls.
	DefaultReadyLimit = 8000000

	resetPulse      = 2 * time.Microsecond
	configureDelay  = 50 * time.Microsecond
	syncDelay       = 5 * time.Microsecond
	wakeupDelay     = 25 * time.Microsecond
	continuousDelay = 5 * time.Microsecond
)

var (
	// ErrInvalidRegister is returned for addresses outside the register map.
	ErrInvalidRegister = errors.New("invalid register")
	// ErrInvalidGain is returned for PGA settings above x64.
	ErrInvalidGain = errors.New("invalid gain")
	// ErrInvalidRate is returned for data rate indexes outside the DRATE table.
	ErrInvalidRate = errors.New("invalid data rate")
	// ErrChipID is returned when the device does not identify as an ADS1256.
	ErrChipID = errors.New("unexpected chip id")
	// ErrClosed is returned by a closed bus.
	ErrClosed = errors.New("closed")
)

// State is the protocol state of a Device.
type State int

const (
	StateReset State = iota
	StateIdle
	StateConfigured
	StateChannelSelected
	StateContinuous
)

func (s State) String() string {
	switch s {
	case StateReset:
		return "reset"
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StateChannelSelected:
		return "channel-selected"
	case StateContinuous:
		return "continuous"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options tune a Device. Zero values select the defaults.
type Options struct {
	// ReadyLimit bounds DRDY waits issued by the driver itself.
	ReadyLimit int
	// ReadDelay is the turnaround between RREG/RDATA and the data phase.
	ReadDelay time.Duration
	// Delay provides protocol delays. Defaults to a busy wait on the wall clock.
	Delay  Delayer
	Logger *zap.Logger
}

// Device is an ADS1256 on a Bus.
type Device struct {
	bus        Bus
	delay      Delayer
	logger     *zap.Logger
	readyLimit int
	readDelay  time.Duration

	state      State
	continuous bool
	config     AdcConfig
	timeouts   uint64
}

// New creates a Device on bus. The device is not touched until Init or Setup.
func New(bus Bus, opts Options) *Device {
	if opts.ReadyLimit <= 0 {
		opts.ReadyLimit = DefaultReadyLimit
	}
	if opts.ReadDelay <= 0 {
		opts.ReadDelay = DefaultReadDelay
	}
	if opts.Delay == nil {
		opts.Delay = NewBusyWait()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Device{
		bus:        bus,
		delay:      opts.Delay,
		logger:     opts.Logger,
		readyLimit: opts.ReadyLimit,
		readDelay:  opts.ReadDelay,
		state:      StateReset,
	}
}

// State returns the current protocol state.
func (d *Device) State() State {
	return d.state
}

// Config returns the last programmed acquisition setup.
func (d *Device) Config() AdcConfig {
	return d.config
}

// Timeouts returns how many DRDY waits have expired.
func (d *Device) Timeouts() uint64 {
	return d.timeouts
}

// ReadyLimit returns the DRDY poll budget configured for this device.
func (d *Device) ReadyLimit() int {
	return d.readyLimit
}

// Close releases the bus.
func (d *Device) Close() error {
	return d.bus.Close()
}

// Reset pulses the hardware reset line.
func (d *Device) Reset() error {
	if err := d.bus.SetReset(true); err != nil {
		return fmt.Errorf("failed to assert reset: %w", err)
	}
	d.delay.Sleep(resetPulse)
	if err := d.bus.SetReset(false); err != nil {
		return fmt.Errorf("failed to release reset: %w", err)
	}
	d.delay.Sleep(resetPulse)

	d.continuous = false
	d.state = StateIdle
	return nil
}

// ReadChipID returns the identification nibble of the STATUS register.
func (d *Device) ReadChipID() (uint8, error) {
	d.WaitReady(d.readyLimit)
	status, err := d.ReadRegister(RegStatus)
	if err != nil {
		return 0, err
	}
	return status >> 4, nil
}

// Init resets the device and verifies that it is an ADS1256.
func (d *Device) Init() error {
	if err := d.Reset(); err != nil {
		return err
	}
	id, err := d.ReadChipID()
	if err != nil {
		return fmt.Errorf("failed to read chip id: %w", err)
	}
	if id != ChipID {
		return fmt.Errorf("%w: 0x%X", ErrChipID, id)
	}
	d.logger.Debug("ADS1256 detected", zap.Uint8("id", id))
	return nil
}

// Setup programs cfg and enters continuous read mode. Configure runs twice:
// the first write may trigger a long auto-calibration when the rate changed.
func (d *Device) Setup(cfg AdcConfig) error {
	for i := 0; i < 2; i++ {
		if err := d.Configure(cfg.Gain, cfg.DataRate); err != nil {
			return err
		}
	}
	if err := d.SelectChannel(cfg.Channel); err != nil {
		return err
	}
	if err := d.Restart(); err != nil {
		return err
	}
	if err := d.StartContinuous(); err != nil {
		return err
	}

	d.logger.Info("acquisition configured",
		zap.Stringer("gain", cfg.Gain),
		zap.Stringer("rate", cfg.DataRate),
		zap.Uint8("channel", d.config.Channel),
	)
	return nil
}

// transaction runs fn with chip select asserted. CS is released on every path.
func (d *Device) transaction(fn func() error) (err error) {
	if err := d.bus.SetChipSelect(true); err != nil {
		return fmt.Errorf("failed to assert chip select: %w", err)
	}
	defer func() {
		if cerr := d.bus.SetChipSelect(false); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to release chip select: %w", cerr))
		}
	}()
	return fn()
}

// send transmits one byte after the fixed byte delay.
func (d *Device) send(b byte) error {
	d.delay.Sleep(ByteDelay)
	if _, err := d.bus.Transfer(b); err != nil {
		return fmt.Errorf("failed to send 0x%02X: %w", b, err)
	}
	return nil
}

// recv clocks one byte in.
func (d *Device) recv() (byte, error) {
	b, err := d.bus.Transfer(0xFF)
	if err != nil {
		return 0, fmt.Errorf("failed to receive: %w", err)
	}
	return b, nil
}
