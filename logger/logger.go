// Package logger builds the zap logger handed to every SDK component.
package logger

import (
	"fmt"
	"strings"

	"github.com/donecollectively/stellar-contracts-sub001/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the logger is built.
type Options struct {
	Level string // debug, info, warn or error; empty means info
	// JSON selects the production encoder. The console encoder is used
	// otherwise, with colored levels when Color is set.
	JSON  bool
	Color bool
	// OutputPath is a file path, "stderr" or "stdout". Empty means stderr.
	OutputPath string
	// Network is attached to every entry.
	Network string
}

// FromConfig derives Options from the SDK configuration. Mainnet logs as
// JSON; every other network uses the console encoder.
func FromConfig(cfg config.Config) Options {
	return Options{
		Level:      cfg.LogLevel,
		JSON:       cfg.Network == "mainnet",
		Color:      cfg.Network == "emulator",
		OutputPath: cfg.LogFile,
		Network:    cfg.Network,
	}
}

// ParseLevel maps a level name onto a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logger: unknown level %q", name)
	}
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if opts.JSON {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.MessageKey = "message"
		zc.DisableStacktrace = level > zapcore.DebugLevel
	} else {
		zc = zap.NewDevelopmentConfig()
		if opts.Color {
			zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	out := opts.OutputPath
	if out == "" {
		out = "stderr"
	}
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	if opts.Network != "" {
		zc.InitialFields = map[string]interface{}{"network": opts.Network}
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return l, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
