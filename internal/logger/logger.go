// Package logger wires a shared zap sugared logger for the whole
// application. Development mode uses colored console output, production
// mode JSON.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	global *zap.SugaredLogger
)

// Init builds the global logger. Call once at startup; debug switches
// to the development encoder and lowers the level.
func Init(debug bool) error {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}

	mu.Lock()
	global = logger.Sugar()
	mu.Unlock()
	return nil
}

// Get returns the global logger, building a development fallback if
// Init has not run.
func Get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		logger, _ := zap.NewDevelopment()
		global = logger.Sugar()
	}
	return global
}

// Named returns a child of the global logger with the given name.
func Named(name string) *zap.SugaredLogger {
	return Get().Named(name)
}

// Sync flushes buffered log entries. Safe to call on exit.
func Sync() {
	mu.Lock()
	l := global
	mu.Unlock()
	if l != nil {
		_ = l.Sync()
	}
}
