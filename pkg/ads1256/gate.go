package ads1256

import "go.uber.org/zap"

// WaitReady busy-polls DRDY until it goes low or limit polls have been made.
// An expired wait is logged and counted but is not an error: the next
// conversion resynchronises the loop.
func (d *Device) WaitReady(limit int) bool {
	d.delay.Sleep(SettleDelay)

	var lastErr error
	for i := 0; i < limit; i++ {
		ready, err := d.bus.DataReady()
		if err != nil {
			lastErr = err
			continue
		}
		if ready {
			return true
		}
	}

	d.timeouts++
	fields := []zap.Field{zap.Int("polls", limit), zap.Uint64("timeouts", d.timeouts)}
	if lastErr != nil {
		fields = append(fields, zap.Error(lastErr))
	}
	d.logger.Warn("DRDY wait timed out", fields...)
	return false
}
