package ads1256

import "fmt"

// Register is an ADS1256 register address (datasheet Table 23).
type Register uint8

const (
	RegStatus Register = 0x00 // reset value x1h
	RegMux    Register = 0x01 // 01h
	RegADCON  Register = 0x02 // 20h
	RegDRATE  Register = 0x03 // F0h
	RegIO     Register = 0x04 // E0h
	RegOFC0   Register = 0x05
	RegOFC1   Register = 0x06
	RegOFC2   Register = 0x07
	RegFSC0   Register = 0x08
	RegFSC1   Register = 0x09
	RegFSC2   Register = 0x0A

	// NumRegisters is the size of the register map.
	NumRegisters = 11
)

// Command is an ADS1256 command opcode (datasheet Table 24).
type Command uint8

const (
	CmdWakeup   Command = 0x00 // completes SYNC and exits standby
	CmdRDATA    Command = 0x01 // read data
	CmdRDATAC   Command = 0x03 // read data continuously
	CmdSDATAC   Command = 0x0F // stop read data continuously
	CmdRREG     Command = 0x10 // read from register, OR'ed with the address
	CmdWREG     Command = 0x50 // write to register, OR'ed with the address
	CmdSelfCal  Command = 0xF0 // offset and gain self-calibration
	CmdSelfOCal Command = 0xF1 // offset self-calibration
	CmdSelfGCal Command = 0xF2 // gain self-calibration
	CmdSysOCal  Command = 0xF3 // system offset calibration
	CmdSysGCal  Command = 0xF4 // system gain calibration
	CmdSync     Command = 0xFC // synchronize the A/D conversion
	CmdStandby  Command = 0xFD // begin standby mode
	CmdReset    Command = 0xFE // reset to power-up values
)

// ChipID is the identification nibble (STATUS bits 7-4) reported by an ADS1256.
const ChipID = 3

// STATUS register bits.
const (
	statusOrderLSB = 1 << 3
	statusACAL     = 1 << 2
	statusBUFEN    = 1 << 1
	statusDRDY     = 1 << 0
)

// muxAINCOM selects AINCOM as the negative input (NSEL3 = 1).
const muxAINCOM = 1 << 3

// MaxChannel is the highest single-ended input (AIN7).
const MaxChannel = 7

// Gain is the PGA setting as written to ADCON bits 2-0.
type Gain uint8

const (
	Gain1 Gain = iota
	Gain2
	Gain4
	Gain8
	Gain16
	Gain32
	Gain64
)

// Multiplier returns the amplification factor of g.
func (g Gain) Multiplier() int {
	return 1 << g
}

// Valid reports whether g is a PGA code the device accepts.
func (g Gain) Valid() bool {
	return g <= Gain64
}

func (g Gain) String() string {
	if !g.Valid() {
		return fmt.Sprintf("Gain(%d)", uint8(g))
	}
	return fmt.Sprintf("x%d", g.Multiplier())
}

// GainFromMultiplier maps 1, 2, 4 ... 64 to a Gain.
func GainFromMultiplier(m int) (Gain, error) {
	for g := Gain1; g <= Gain64; g++ {
		if g.Multiplier() == m {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: x%d", ErrInvalidGain, m)
}

// DataRate indexes the sixteen output data rates, fastest first.
type DataRate uint8

const (
	Rate30000SPS DataRate = iota
	Rate15000SPS
	Rate7500SPS
	Rate3750SPS
	Rate2000SPS
	Rate1000SPS
	Rate500SPS
	Rate100SPS
	Rate60SPS
	Rate50SPS
	Rate30SPS
	Rate25SPS
	Rate15SPS
	Rate10SPS
	Rate5SPS
	Rate2_5SPS

	// NumDataRates is the number of entries in the DRATE table.
	NumDataRates = 16
)

// DRATE register codes for a 7.68 MHz master clock.
var dataRateCodes = [NumDataRates]byte{
	0xF0, // reset default
	0xE0,
	0xD0,
	0xC0,
	0xB0,
	0xA1,
	0x92,
	0x82,
	0x72,
	0x63,
	0x53,
	0x43,
	0x33,
	0x23,
	0x13,
	0x03,
}

var dataRateSPS = [NumDataRates]float64{
	30000, 15000, 7500, 3750, 2000, 1000, 500, 100,
	60, 50, 30, 25, 15, 10, 5, 2.5,
}

// Valid reports whether r has a table entry.
func (r DataRate) Valid() bool {
	return r < NumDataRates
}

// Code returns the DRATE register byte for r.
func (r DataRate) Code() byte {
	return dataRateCodes[r]
}

// SPS returns the nominal output rate in samples per second.
func (r DataRate) SPS() float64 {
	return dataRateSPS[r]
}

func (r DataRate) String() string {
	if !r.Valid() {
		return fmt.Sprintf("DataRate(%d)", uint8(r))
	}
	return fmt.Sprintf("%gSPS", r.SPS())
}

// DataRateFromCode is the inverse of Code.
func DataRateFromCode(code byte) (DataRate, bool) {
	for i, c := range dataRateCodes {
		if c == code {
			return DataRate(i), true
		}
	}
	return 0, false
}

// AdcConfig is the acquisition setup programmed once per session.
type AdcConfig struct {
	Gain     Gain
	DataRate DataRate
	Channel  uint8
}
