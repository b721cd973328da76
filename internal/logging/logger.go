// Package logging implements an interface behind which a third-party,
// levelled logger can sit. The core pipeline, cache, and CLI all depend on
// Logger rather than on zap directly, so the logging backend can be swapped
// (or stubbed out entirely in tests) without touching call sites.
package logging

import "go.uber.org/zap"

// Logger is the interface behind which a levelled logger can sit. Scan
// errors and CacheError fallbacks are logged, never returned, so
// Warn/Error here mean "recorded", not "fatal".
type Logger interface {
	// Sync flushes buffered logs.
	Sync() error
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// ZapLogger is a Logger backed by zap's sugared logger.
type ZapLogger struct {
	inner *zap.SugaredLogger
}

// NewZapLogger builds a ZapLogger. verbose raises the level to Debug (set by
// the CLI's -v/--verbose flag); otherwise only Info and above are emitted.
func NewZapLogger(verbose bool) (*ZapLogger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.DisableCaller = true
	built, err := cfg.Build(zap.IncreaseLevel(level))
	if err != nil {
		return nil, err
	}

	return &ZapLogger{inner: built.Sugar()}, nil
}

func (z *ZapLogger) Sync() error { return z.inner.Sync() }

func (z *ZapLogger) Debug(format string, args ...any) { z.inner.Debugf(format, args...) }
func (z *ZapLogger) Info(format string, args ...any)  { z.inner.Infof(format, args...) }
func (z *ZapLogger) Warn(format string, args ...any)  { z.inner.Warnf(format, args...) }
func (z *ZapLogger) Error(format string, args ...any) { z.inner.Errorf(format, args...) }

// NopLogger discards everything. Used as the default in tests and anywhere
// a Logger is required but output is not wanted.
type NopLogger struct{}

func (NopLogger) Sync() error          { return nil }
func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
