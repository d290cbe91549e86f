package ads1256

import (
	"fmt"

	"go.uber.org/zap"
)

// Configure programs STATUS, MUX, ADCON and DRATE in one WREG burst. The
// input buffer and auto-calibration are always enabled, so the write starts
// a self-calibration; the burst is gated on DRDY because a previous
// calibration may still be running.
func (d *Device) Configure(gain Gain, rate DataRate) error {
	if !gain.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidGain, uint8(gain))
	}
	if !rate.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidRate, uint8(rate))
	}
	if err := d.StopContinuous(); err != nil {
		return err
	}

	regs := [4]byte{
		statusACAL | statusBUFEN, // MSB first, auto-cal on, buffer on
		muxAINCOM,                // AIN0 against AINCOM
		byte(gain) & 0x07,        // clock out off, sensor detect off
		rate.Code(),
	}

	err := d.transaction(func() error {
		d.WaitReady(d.readyLimit)

		if err := d.send(byte(CmdWREG) | byte(RegStatus)); err != nil {
			return err
		}
		if err := d.send(byte(len(regs) - 1)); err != nil {
			return err
		}
		for _, b := range regs {
			if err := d.send(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to configure: %w", err)
	}
	d.delay.Sleep(configureDelay)

	d.config.Gain = gain
	d.config.DataRate = rate
	d.config.Channel = 0
	d.state = StateConfigured

	d.logger.Debug("configured",
		zap.Stringer("gain", gain),
		zap.Stringer("rate", rate),
		zap.String("drate", fmt.Sprintf("0x%02X", rate.Code())),
	)
	return nil
}

// SelectChannel routes AINch against AINCOM. Channels above MaxChannel are
// ignored and leave the multiplexer unchanged. A Restart must follow before
// samples are valid.
func (d *Device) SelectChannel(ch uint8) error {
	if ch > MaxChannel {
		d.logger.Debug("ignoring out of range channel", zap.Uint8("channel", ch))
		return nil
	}
	if err := d.WriteRegister(RegMux, ch<<4|muxAINCOM); err != nil {
		return err
	}
	d.config.Channel = ch
	d.state = StateChannelSelected
	return nil
}

// Restart issues SYNC then WAKEUP so conversions restart on the current
// multiplexer setting. Skipping it yields stale first samples after a mux
// change.
func (d *Device) Restart() error {
	d.delay.Sleep(syncDelay)
	if err := d.SendCommand(CmdSync); err != nil {
		return err
	}
	d.delay.Sleep(syncDelay)
	if err := d.SendCommand(CmdWakeup); err != nil {
		return err
	}
	d.delay.Sleep(wakeupDelay)
	return nil
}
