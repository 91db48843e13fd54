package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

// Init builds the process logger. Development environments get the console
// encoder; anything else logs JSON.
func Init(logLevel, env string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if env == "development" {
		config = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level.SetLevel(level)

	log, err := config.Build()
	if err != nil {
		return nil, err
	}
	global.Store(log)
	return log, nil
}

// L returns the process logger, a no-op logger before Init.
func L() *zap.Logger {
	if log := global.Load(); log != nil {
		return log
	}
	return zap.NewNop()
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}
