package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where diagnostics go. Measurement output never goes here.
type Options struct {
	File  string    // also append to this file when set
	Debug bool      // enable debug level
	Out   io.Writer // console destination, stderr when nil
}

// New builds a console logger, teed to a file when Options.File is set. The
// returned close func syncs the logger and releases the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	encoderConfig := zap.NewDevelopmentConfig()
	encoder := zapcore.NewConsoleEncoder(encoderConfig.EncoderConfig)

	var logFile *os.File
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(out), level),
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(logFile), level))
	}

	logger := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	closed := false
	closeFn := func() error {
		if closed {
			return nil
		}
		closed = true
		err := logger.Sync()
		if logFile != nil {
			err = multierr.Append(err, logFile.Close())
		}
		return err
	}
	return logger, closeFn, nil
}
