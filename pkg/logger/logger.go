// Package logger owns the process-wide zap logger of the Prism CLI.
//
// Libraries never reach for the global: sessions, runners and clients take
// a *zap.Logger by injection and default to a no-op logger. Only the command
// layer calls Init and Get.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Config represents logger configuration
type Config struct {
	Level       string
	Development bool
	Encoding    string // json or console
	OutputPaths []string
}

// New builds a logger from cfg. Output defaults to stderr, since stdout
// carries rendered reports.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	lvl := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, lvl, fmt.Errorf("invalid log level: %w", err)
		}
	}

	enc := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoding := cfg.Encoding
	switch encoding {
	case "":
		encoding = "json"
	case "console":
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if cfg.Development {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zc := zap.Config{
		Level:            lvl,
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    enc,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	opts := []zap.Option{zap.AddStacktrace(zapcore.DPanicLevel)}
	if cfg.Development {
		opts = []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	}
	log, err := zc.Build(opts...)
	if err != nil {
		return nil, lvl, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, lvl, nil
}

// Init replaces the global logger. The previous logger is flushed.
func Init(cfg Config) error {
	log, lvl, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	prev := global
	global, level = log, lvl
	mu.Unlock()
	if prev != nil {
		_ = prev.Sync()
	}
	return nil
}

// Get returns the global logger, building an info-level JSON logger on
// first use.
func Get() *zap.Logger {
	mu.RLock()
	log := global
	mu.RUnlock()
	if log != nil {
		return log
	}
	if err := Init(Config{Level: "info"}); err != nil {
		return zap.NewNop()
	}
	return Get()
}

// For returns a child of the global logger tagged with a component name.
func For(component string) *zap.Logger {
	return Get().With(zap.String("component", component))
}

// SetLevel changes the level of the global logger in place.
func SetLevel(l zapcore.Level) {
	mu.RLock()
	defer mu.RUnlock()
	level.SetLevel(l)
}

// Sync flushes any buffered log entries
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return nil
	}
	return global.Sync()
}
