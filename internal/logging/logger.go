// Package logging builds the zap logger used across diun2homer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn or error. Unknown values mean info.
	Level string

	// DebugFile, when set, receives a copy of every entry at debug level
	// and above.
	DebugFile string

	// Output defaults to os.Stdout.
	Output io.Writer
}

// New builds a JSON logger writing to Output. The returned closer flushes
// the logger and closes the debug file, if any.
func New(opts Options) (*zap.Logger, func() error, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(out), zap.NewAtomicLevelAt(ParseLevel(opts.Level))),
	}

	var file *os.File
	if opts.DebugFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.DebugFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create debug log directory: %w", err)
		}
		f, err := os.OpenFile(opts.DebugFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open debug log file: %w", err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(f), zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named("diun2homer")

	closer := func() error {
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closer, nil
}

// ParseLevel maps a level name to a zapcore level
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
