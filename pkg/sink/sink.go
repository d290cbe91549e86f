// Package sink fans report output out to stdout and optional mirrors: an
// append-mode file and a serial port.
package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.bug.st/serial"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/itohio/adsread/pkg/config"
)

// DefaultBaudRate is used when the serial mirror has no baud rate configured.
const DefaultBaudRate = 115200

// openSerial is replaced in tests.
var openSerial = func(name string, baud int) (io.WriteCloser, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

type mirror struct {
	name string
	w    io.Writer
	buf  *bufio.Writer
}

// Sink buffers output separately for the primary writer and each mirror.
// Only primary failures are returned; a failed mirror write is logged, the
// pending mirror data is dropped and the mirror is retried on the next write.
type Sink struct {
	primary *bufio.Writer
	mirrors []*mirror
	closers []io.Closer
	logger  *zap.Logger
}

// Open creates a sink writing to primary and the mirrors named in cfg.
// A nil logger disables mirror failure reports.
func Open(cfg config.OutputConfig, primary io.Writer, logger *zap.Logger) (*Sink, error) {
	if primary == nil {
		primary = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sink{
		primary: bufio.NewWriter(primary),
		logger:  logger,
	}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open output file %s: %w", cfg.File, err)
		}
		s.addMirror(cfg.File, f, f)
	}

	if cfg.SerialPort != "" {
		baud := cfg.SerialBaud
		if baud <= 0 {
			baud = DefaultBaudRate
		}
		port, err := openSerial(cfg.SerialPort, baud)
		if err != nil {
			return nil, multierr.Append(
				fmt.Errorf("failed to open serial port %s: %w", cfg.SerialPort, err),
				s.closeAll(),
			)
		}
		s.addMirror(cfg.SerialPort, port, port)
	}

	return s, nil
}

func (s *Sink) addMirror(name string, w io.Writer, c io.Closer) {
	s.mirrors = append(s.mirrors, &mirror{name: name, w: w, buf: bufio.NewWriter(w)})
	s.closers = append(s.closers, c)
}

// Write buffers p for every destination.
func (s *Sink) Write(p []byte) (int, error) {
	for _, m := range s.mirrors {
		if _, err := m.buf.Write(p); err != nil {
			s.mirrorFailed(m, err)
		}
	}
	return s.primary.Write(p)
}

// Flush pushes buffered output to every destination.
func (s *Sink) Flush() error {
	for _, m := range s.mirrors {
		if err := m.buf.Flush(); err != nil {
			s.mirrorFailed(m, err)
		}
	}
	return s.primary.Flush()
}

// Close flushes and releases the mirrors. The primary writer is left open.
func (s *Sink) Close() error {
	err := s.Flush()
	return multierr.Append(err, s.closeAll())
}

// mirrorFailed drops the data pending for m and clears its sticky error.
func (s *Sink) mirrorFailed(m *mirror, err error) {
	s.logger.Warn("mirror write failed", zap.String("mirror", m.name), zap.Int("dropped", m.buf.Buffered()), zap.Error(err))
	m.buf.Reset(m.w)
}

func (s *Sink) closeAll() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	s.closers = nil
	return err
}
