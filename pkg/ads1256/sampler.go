package ads1256

import "fmt"

// Decode24 sign-extends a big-endian 24-bit two's complement value.
func Decode24(b [3]byte) int32 {
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	if v&0x800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v)
}

// StartContinuous enters read-data-continuous mode. From here on every DRDY
// falling edge makes a new result available to ReadSample.
func (d *Device) StartContinuous() error {
	if err := d.SendCommand(CmdRDATAC); err != nil {
		return err
	}
	d.delay.Sleep(continuousDelay)
	d.state = StateContinuous
	return nil
}

// StopContinuous leaves continuous mode. It is a no-op outside it.
func (d *Device) StopContinuous() error {
	if !d.continuous {
		return nil
	}
	if err := d.SendCommand(CmdSDATAC); err != nil {
		return err
	}
	d.delay.Sleep(continuousDelay)
	if d.state == StateContinuous {
		d.state = StateChannelSelected
	}
	return nil
}

// ReadSample clocks out one conversion result in continuous mode. The caller
// gates it on WaitReady. No command or register traffic happens here.
func (d *Device) ReadSample() (int32, error) {
	var buf [3]byte
	err := d.transaction(func() error {
		for i := range buf {
			b, err := d.recv()
			if err != nil {
				return err
			}
			buf[i] = b
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read sample: %w", err)
	}
	return Decode24(buf), nil
}

// ReadData performs a single-shot RDATA read outside continuous mode.
func (d *Device) ReadData() (int32, error) {
	if err := d.StopContinuous(); err != nil {
		return 0, err
	}
	d.WaitReady(d.readyLimit)

	var buf [3]byte
	err := d.transaction(func() error {
		if err := d.send(byte(CmdRDATA)); err != nil {
			return err
		}
		d.delay.Sleep(d.readDelay)
		for i := range buf {
			b, err := d.recv()
			if err != nil {
				return err
			}
			buf[i] = b
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read data: %w", err)
	}
	return Decode24(buf), nil
}
