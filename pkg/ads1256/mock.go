package ads1256

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/itohio/adsread/pkg/config"
)

// ErrNotSelected is returned by Sim when a byte is clocked with CS released.
var ErrNotSelected = errors.New("transfer without chip select")

const (
	maxCode = 1<<23 - 1
	minCode = -1 << 23
)

// Power-up register values.
var resetRegisters = [NumRegisters]byte{
	ChipID<<4 | statusDRDY, 0x01, 0x20, 0xF0, 0xE0, 0, 0, 0, 0, 0, 0,
}

// Frame is one chip-select transaction as seen by the simulated device.
type Frame struct {
	TX []byte
	RX []byte
}

type regOp int

const (
	opNone regOp = iota
	opReadCount
	opWriteCount
	opWriteData
)

// Sim simulates an ADS1256 behind the Bus interface: it decodes the serial
// command stream, keeps a register file, paces DRDY and produces conversion
// results from the mock configuration.
type Sim struct {
	cfg   *config.MockConfig
	clock clock.Clock
	rng   *rand.Rand

	mu       sync.Mutex
	closed   bool
	selected bool
	regs     [NumRegisters]byte

	continuous bool
	standby    bool

	op      regOp
	addr    int
	remain  int
	out     []byte
	dataIdx int
	latched [3]byte

	polls     int
	convStart time.Time
	seq       int

	trace    bool
	frames   []Frame
	cur      *Frame
	commands []Command
	resets   int
	reads    int
}

// NewSim creates a simulated device. A nil clk selects the wall clock; it is
// only consulted when cfg.Realtime is set.
func NewSim(cfg *config.MockConfig, clk clock.Clock) *Sim {
	if cfg == nil {
		cfg = &config.MockConfig{
			Offset:     100000,
			Noise:      20,
			ReadyAfter: 3,
		}
	}
	if clk == nil {
		clk = clock.New()
	}

	s := &Sim{
		cfg:   cfg,
		clock: clk,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9E3779B97F4A7C15)),
	}
	s.resetLocked()
	return s
}

// Trace enables recording of every chip-select frame.
func (s *Sim) Trace(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = on
	s.frames = nil
}

// Frames returns the recorded frames.
func (s *Sim) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Frame, len(s.frames))
	copy(result, s.frames)
	return result
}

// Commands returns every command opcode decoded so far, register commands
// included with their address bits.
func (s *Sim) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Command, len(s.commands))
	copy(result, s.commands)
	return result
}

// Register returns the simulated register contents.
func (s *Sim) Register(reg Register) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}

// Continuous reports whether the device is in RDATAC mode.
func (s *Sim) Continuous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.continuous
}

// Resets returns how many hardware or command resets were seen.
func (s *Sim) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Reads returns how many complete conversion results were clocked out.
func (s *Sim) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// SetChipSelect starts or ends a transaction. Releasing CS resets the serial
// interface, discarding any partially decoded command.
func (s *Sim) SetChipSelect(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if active == s.selected {
		return nil
	}
	s.selected = active

	if active {
		if s.trace {
			s.cur = &Frame{}
		}
		return nil
	}

	if s.cur != nil {
		s.frames = append(s.frames, *s.cur)
		s.cur = nil
	}
	s.op = opNone
	s.out = nil
	s.dataIdx = 0
	return nil
}

// SetReset holds the device in reset while active.
func (s *Sim) SetReset(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if active {
		s.resetLocked()
		s.resets++
	}
	return nil
}

// DataReady reports DRDY. Without Realtime, a conversion completes after
// ReadyAfter polls; with it, after one data-rate period of the clock.
func (s *Sim) DataReady() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	if s.standby {
		return false, nil
	}
	if !s.cfg.Realtime {
		s.polls++
	}
	return s.readyLocked(), nil
}

// Transfer clocks one byte through the simulated serial interface.
func (s *Sim) Transfer(b byte) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if !s.selected {
		return 0, ErrNotSelected
	}

	r := s.shiftLocked(b)
	if s.cur != nil {
		s.cur.TX = append(s.cur.TX, b)
		s.cur.RX = append(s.cur.RX, r)
	}
	return r, nil
}

// Close shuts the simulated device down.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Sim) shiftLocked(b byte) byte {
	if len(s.out) > 0 {
		r := s.out[0]
		s.out = s.out[1:]
		if s.dataIdx > 0 {
			s.dataIdx++
			if s.dataIdx > 3 {
				s.conversionReadLocked()
			}
		}
		return r
	}

	switch s.op {
	case opReadCount:
		s.op = opNone
		n := int(b&0x0F) + 1
		for i := 0; i < n && s.addr+i < NumRegisters; i++ {
			s.out = append(s.out, s.registerLocked(s.addr+i))
		}
		return 0
	case opWriteCount:
		s.op = opWriteData
		s.remain = int(b&0x0F) + 1
		return 0
	case opWriteData:
		s.writeRegisterLocked(s.addr, b)
		s.addr++
		s.remain--
		if s.remain == 0 || s.addr >= NumRegisters {
			s.op = opNone
			// WREG to STATUS, ADCON or DRATE starts an auto-calibration.
			s.restartLocked()
		}
		return 0
	}

	if s.continuous && b != byte(CmdSDATAC) && b != byte(CmdReset) {
		return s.continuousByteLocked()
	}
	s.commandLocked(b)
	return 0
}

func (s *Sim) commandLocked(b byte) {
	switch {
	case b&0xF0 == byte(CmdRREG):
		s.commands = append(s.commands, Command(b))
		s.op = opReadCount
		s.addr = int(b & 0x0F)
		return
	case b&0xF0 == byte(CmdWREG):
		s.commands = append(s.commands, Command(b))
		s.op = opWriteCount
		s.addr = int(b & 0x0F)
		return
	}

	cmd := Command(b)
	if b == 0xFF {
		// second WAKEUP encoding, also what reads clock out
		cmd = CmdWakeup
	} else {
		s.commands = append(s.commands, cmd)
	}

	switch cmd {
	case CmdWakeup:
		if s.standby {
			s.standby = false
			s.restartLocked()
		}
	case CmdSync:
		s.restartLocked()
	case CmdStandby:
		s.standby = true
	case CmdRDATA:
		s.latchLocked()
		s.out = append(s.out[:0], s.latched[:]...)
		s.dataIdx = 1
	case CmdRDATAC:
		s.continuous = true
	case CmdSDATAC:
		s.continuous = false
	case CmdReset:
		s.resetLocked()
		s.resets++
	case CmdSelfCal, CmdSelfOCal, CmdSelfGCal, CmdSysOCal, CmdSysGCal:
		s.restartLocked()
	}
}

func (s *Sim) continuousByteLocked() byte {
	if s.dataIdx == 0 {
		s.latchLocked()
	}
	r := s.latched[s.dataIdx]
	s.dataIdx++
	if s.dataIdx == 3 {
		s.dataIdx = 0
		s.conversionReadLocked()
	}
	return r
}

func (s *Sim) latchLocked() {
	v := uint32(s.nextValueLocked())
	s.latched = [3]byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

func (s *Sim) conversionReadLocked() {
	s.dataIdx = 0
	s.reads++
	s.polls = 0
	period := s.periodLocked()
	s.convStart = s.convStart.Add(period)
	if now := s.clock.Now(); now.Sub(s.convStart) > period {
		s.convStart = now
	}
}

func (s *Sim) nextValueLocked() int32 {
	if len(s.cfg.Values) > 0 {
		v := s.cfg.Values[s.seq%len(s.cfg.Values)]
		s.seq++
		return v
	}

	gain := float64(Gain(s.regs[RegADCON] & 0x07).Multiplier())
	if gain > 64 {
		gain = 64
	}
	v := math.Round(s.cfg.Offset*gain + s.rng.NormFloat64()*s.cfg.Noise)
	return int32(math.Max(minCode, math.Min(maxCode, v)))
}

func (s *Sim) readyLocked() bool {
	if s.cfg.Realtime {
		return s.clock.Since(s.convStart) >= s.periodLocked()
	}
	return s.polls > s.cfg.ReadyAfter
}

func (s *Sim) periodLocked() time.Duration {
	rate, ok := DataRateFromCode(s.regs[RegDRATE])
	if !ok {
		rate = Rate30000SPS
	}
	return time.Duration(float64(time.Second) / rate.SPS())
}

func (s *Sim) registerLocked(addr int) byte {
	if Register(addr) == RegStatus {
		status := s.regs[RegStatus] &^ statusDRDY
		if !s.readyLocked() {
			status |= statusDRDY
		}
		return status
	}
	return s.regs[addr]
}

func (s *Sim) writeRegisterLocked(addr int, v byte) {
	if Register(addr) == RegStatus {
		// ID and DRDY bits are read only
		v = s.regs[RegStatus]&0xF0 | v&0x0E
	}
	s.regs[addr] = v
}

func (s *Sim) restartLocked() {
	s.polls = 0
	s.convStart = s.clock.Now()
}

func (s *Sim) resetLocked() {
	s.regs = resetRegisters
	s.continuous = false
	s.standby = false
	s.op = opNone
	s.out = nil
	s.dataIdx = 0
	s.restartLocked()
}
