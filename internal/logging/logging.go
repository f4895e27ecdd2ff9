// Package logging builds the zap loggers used across the application.
// Output is colourised console text when stderr is a terminal and JSON
// otherwise.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// New creates a named logger writing to stderr at the given level.
func New(name, level string) (*zap.Logger, error) {
	json := !term.IsTerminal(int(os.Stderr.Fd()))
	return build(name, level, zapcore.Lock(os.Stderr), json)
}

// NewWriter creates a named logger writing JSON lines to w. Used by tests
// and when stderr is redirected.
func NewWriter(name, level string, w io.Writer) (*zap.Logger, error) {
	return build(name, level, zapcore.AddSync(w), true)
}

func build(name, level string, out zapcore.WriteSyncer, json bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = "msg"
	cfg.LevelKey = "lvl"
	cfg.TimeKey = "ts"
	cfg.NameKey = "log"
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	return zap.New(zapcore.NewCore(enc, out, zap.NewAtomicLevelAt(lvl))).Named(name), nil
}
