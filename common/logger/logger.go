// Package logger provides a unified leveled logging facade for the QA
// engine, backed by zap. The package-level functions keep call sites terse;
// tests can lower the level or swap the backend with a no-op logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	log   = newDefault()
)

func newDefault() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLevel sets the minimum log level: "debug", "info", "warn", "error".
func SetLevel(s string) {
	if l, err := zapcore.ParseLevel(s); err == nil {
		level.SetLevel(l)
	}
}

// Disable routes all logging to a no-op backend. Useful in tests.
func Disable() {
	log = zap.NewNop().Sugar()
}

// Debugf logs a debug message.
func Debugf(format string, args ...any) { log.Debugf(format, args...) }

// Infof logs an info message.
func Infof(format string, args ...any) { log.Infof(format, args...) }

// Warnf logs a warning message.
func Warnf(format string, args ...any) { log.Warnf(format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...any) { log.Errorf(format, args...) }
