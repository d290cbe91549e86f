package ads1256

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultSpeedHz matches the BCM2835 core clock divided by 256.
	DefaultSpeedHz = 976562
	// DefaultDRDYPin is the Waveshare board's DRDY line (P1.11).
	DefaultDRDYPin = "GPIO17"
	// DefaultResetPin is the Waveshare board's RST line (P1.12).
	DefaultResetPin = "GPIO18"
	// DefaultCSPin is the Waveshare board's chip select (P1.15).
	DefaultCSPin = "GPIO22"
)

// PeriphConfig selects the SPI port and GPIO lines of a PeriphBus.
type PeriphConfig struct {
	Port    string // spireg name, empty for the first port
	SpeedHz int64
	Mode    int // SPI clock mode, the ADS1256 uses 1
	DRDY    string
	Reset   string
	CS      string
}

// PeriphBus is a Bus on Linux SPI and GPIO through periph.io. Chip select is
// a plain GPIO held across byte transfers, so the kernel CS is disabled.
type PeriphBus struct {
	mu     sync.Mutex
	port   spi.PortCloser
	conn   spi.Conn
	drdy   gpio.PinIO
	rst    gpio.PinIO
	cs     gpio.PinIO
	tx, rx [1]byte
}

// OpenPeriph initialises the host drivers and opens the bus described by cfg.
func OpenPeriph(cfg PeriphConfig) (*PeriphBus, error) {
	if cfg.SpeedHz == 0 {
		cfg.SpeedHz = DefaultSpeedHz
	}
	if cfg.DRDY == "" {
		cfg.DRDY = DefaultDRDYPin
	}
	if cfg.Reset == "" {
		cfg.Reset = DefaultResetPin
	}
	if cfg.CS == "" {
		cfg.CS = DefaultCSPin
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise host drivers: %w", err)
	}

	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", cfg.Port, err)
	}

	mode := spi.Mode(cfg.Mode&0x3) | spi.NoCS
	conn, err := port.Connect(physic.Frequency(cfg.SpeedHz)*physic.Hertz, mode, 8)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to connect SPI port: %w", err), port.Close())
	}

	b := &PeriphBus{port: port, conn: conn}
	if err := b.setupPins(cfg); err != nil {
		return nil, multierr.Append(err, port.Close())
	}
	return b, nil
}

func (b *PeriphBus) setupPins(cfg PeriphConfig) error {
	pins := []struct {
		name string
		dst  *gpio.PinIO
	}{
		{cfg.DRDY, &b.drdy},
		{cfg.Reset, &b.rst},
		{cfg.CS, &b.cs},
	}
	for _, p := range pins {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return fmt.Errorf("no GPIO pin named %q", p.name)
		}
		*p.dst = pin
	}

	// CS and RST are active low; DRDY is open until the ADC pulls it down.
	if err := b.cs.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to configure CS pin: %w", err)
	}
	if err := b.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to configure RST pin: %w", err)
	}
	if err := b.drdy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("failed to configure DRDY pin: %w", err)
	}
	return nil
}

// Transfer exchanges one byte.
func (b *PeriphBus) Transfer(v byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return 0, ErrClosed
	}
	b.tx[0] = v
	if err := b.conn.Tx(b.tx[:], b.rx[:]); err != nil {
		return 0, err
	}
	return b.rx[0], nil
}

// SetChipSelect drives CS low when active.
func (b *PeriphBus) SetChipSelect(active bool) error {
	return b.cs.Out(activeLow(active))
}

// SetReset drives RST low when active.
func (b *PeriphBus) SetReset(active bool) error {
	return b.rst.Out(activeLow(active))
}

// DataReady reports whether DRDY is low.
func (b *PeriphBus) DataReady() (bool, error) {
	return b.drdy.Read() == gpio.Low, nil
}

// Close releases the SPI port and leaves CS deasserted.
func (b *PeriphBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		return nil
	}
	err := b.cs.Out(gpio.High)
	err = multierr.Append(err, b.port.Close())
	b.port = nil
	b.conn = nil
	return err
}

func activeLow(active bool) gpio.Level {
	if active {
		return gpio.Low
	}
	return gpio.High
}
