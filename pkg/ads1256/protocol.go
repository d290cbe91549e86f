package ads1256

import "fmt"

// WriteRegister writes value to a single register.
func (d *Device) WriteRegister(reg Register, value byte) error {
	if reg >= NumRegisters {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidRegister, uint8(reg))
	}
	if err := d.StopContinuous(); err != nil {
		return err
	}

	err := d.transaction(func() error {
		if err := d.send(byte(CmdWREG) | byte(reg)); err != nil {
			return err
		}
		// number of registers minus one
		if err := d.send(0x00); err != nil {
			return err
		}
		return d.send(value)
	})
	if err != nil {
		return fmt.Errorf("failed to write register 0x%02X: %w", uint8(reg), err)
	}
	return nil
}

// ReadRegister reads a single register.
func (d *Device) ReadRegister(reg Register) (byte, error) {
	if reg >= NumRegisters {
		return 0, fmt.Errorf("%w: 0x%02X", ErrInvalidRegister, uint8(reg))
	}
	if err := d.StopContinuous(); err != nil {
		return 0, err
	}

	var value byte
	err := d.transaction(func() error {
		if err := d.send(byte(CmdRREG) | byte(reg)); err != nil {
			return err
		}
		if err := d.send(0x00); err != nil {
			return err
		}
		d.delay.Sleep(d.readDelay)

		var err error
		value, err = d.recv()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read register 0x%02X: %w", uint8(reg), err)
	}
	return value, nil
}

// SendCommand sends a bare one-byte command.
func (d *Device) SendCommand(cmd Command) error {
	if err := d.transaction(func() error { return d.send(byte(cmd)) }); err != nil {
		return fmt.Errorf("failed to send command 0x%02X: %w", uint8(cmd), err)
	}

	switch cmd {
	case CmdRDATAC:
		d.continuous = true
	case CmdSDATAC, CmdReset:
		d.continuous = false
	}
	return nil
}

// Standby puts the device into low-power standby until Wakeup.
func (d *Device) Standby() error {
	return d.SendCommand(CmdStandby)
}

// Wakeup completes a SYNC or leaves standby.
func (d *Device) Wakeup() error {
	return d.SendCommand(CmdWakeup)
}

// SelfCalibrate runs the offset and gain self-calibration and waits for it
// to finish.
func (d *Device) SelfCalibrate() error {
	if err := d.StopContinuous(); err != nil {
		return err
	}
	if err := d.SendCommand(CmdSelfCal); err != nil {
		return err
	}
	d.WaitReady(d.readyLimit)
	return nil
}
