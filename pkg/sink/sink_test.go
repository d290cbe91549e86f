package sink

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/itohio/adsread/pkg/config"
)

type fakePort struct {
	bytes.Buffer
	closed   bool
	writeErr error
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.Buffer.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func withSerial(t *testing.T, fn func(name string, baud int) (io.WriteCloser, error)) {
	t.Helper()
	orig := openSerial
	openSerial = fn
	t.Cleanup(func() { openSerial = orig })
}

func TestSink_PrimaryOnly(t *testing.T) {
	var out bytes.Buffer
	s, err := Open(config.OutputConfig{}, &out, nil)
	require.NoError(t, err)

	fmt.Fprintln(s, "end_time, samples")
	assert.Empty(t, out.String(), "output is buffered")

	require.NoError(t, s.Flush())
	assert.Equal(t, "end_time, samples\n", out.String())
	require.NoError(t, s.Close())
}

func TestSink_FileMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o644))

	var out bytes.Buffer
	s, err := Open(config.OutputConfig{File: path}, &out, nil)
	require.NoError(t, err)

	fmt.Fprintln(s, "row")
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous\nrow\n", string(data), "file is appended to")
	assert.Equal(t, "row\n", out.String())
}

func TestSink_FileOpenError(t *testing.T) {
	_, err := Open(config.OutputConfig{File: filepath.Join(t.TempDir(), "missing", "run.csv")}, io.Discard, nil)
	assert.Error(t, err)
}

func TestSink_SerialMirror(t *testing.T) {
	port := &fakePort{}
	var gotName string
	var gotBaud int
	withSerial(t, func(name string, baud int) (io.WriteCloser, error) {
		gotName, gotBaud = name, baud
		return port, nil
	})

	var out bytes.Buffer
	s, err := Open(config.OutputConfig{SerialPort: "/dev/ttyUSB0"}, &out, nil)
	require.NoError(t, err)

	fmt.Fprintln(s, "2026-10-19 12:00:00.000, 100, 1.000, 0.000, 0, 0.0000006")
	require.NoError(t, s.Close())

	assert.Equal(t, "/dev/ttyUSB0", gotName)
	assert.Equal(t, DefaultBaudRate, gotBaud)
	assert.Equal(t, out.String(), port.String())
	assert.True(t, port.closed)
}

func TestSink_SerialOpenErrorClosesFile(t *testing.T) {
	openErr := errors.New("no such device")
	withSerial(t, func(string, int) (io.WriteCloser, error) {
		return nil, openErr
	})

	path := filepath.Join(t.TempDir(), "run.csv")
	_, err := Open(config.OutputConfig{File: path, SerialPort: "/dev/ttyUSB9", SerialBaud: 9600}, io.Discard, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, openErr)
}

func TestSink_MirrorFailureStillWritesPrimary(t *testing.T) {
	writeErr := errors.New("unplugged")
	port := &fakePort{writeErr: writeErr}
	withSerial(t, func(string, int) (io.WriteCloser, error) { return port, nil })

	core, logs := observer.New(zap.WarnLevel)
	var out bytes.Buffer
	s, err := Open(config.OutputConfig{SerialPort: "/dev/ttyUSB0"}, &out, zap.New(core))
	require.NoError(t, err)

	fmt.Fprintln(s, "row")
	require.NoError(t, s.Flush())
	assert.Equal(t, "row\n", out.String())

	entries := logs.FilterMessage("mirror write failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/dev/ttyUSB0", entries[0].ContextMap()["mirror"])
	assert.EqualValues(t, 4, entries[0].ContextMap()["dropped"])
}

type flakyPort struct {
	fakePort
	failures int
}

func (p *flakyPort) Write(b []byte) (int, error) {
	if p.failures > 0 {
		p.failures--
		return 0, errors.New("transient")
	}
	return p.fakePort.Write(b)
}

func TestSink_MirrorRecoversAfterTransientFailure(t *testing.T) {
	port := &flakyPort{failures: 1}
	withSerial(t, func(string, int) (io.WriteCloser, error) { return port, nil })

	var out bytes.Buffer
	s, err := Open(config.OutputConfig{SerialPort: "/dev/ttyUSB0"}, &out, nil)
	require.NoError(t, err)

	fmt.Fprintln(s, "row1")
	require.NoError(t, s.Flush())
	fmt.Fprintln(s, "row2")
	require.NoError(t, s.Flush())

	assert.Equal(t, "row1\nrow2\n", out.String())
	assert.Equal(t, "row2\n", port.String(), "only the failed row is lost on the mirror")
	require.NoError(t, s.Close())
	assert.True(t, port.closed)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestSink_PrimaryFailureIsReturned(t *testing.T) {
	writeErr := errors.New("broken pipe")
	s, err := Open(config.OutputConfig{}, failingWriter{err: writeErr}, nil)
	require.NoError(t, err)

	fmt.Fprintln(s, "row")
	assert.ErrorIs(t, s.Flush(), writeErr)
}
