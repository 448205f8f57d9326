// Package logger provides opinionated logging capabilities for glassbox
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(debug bool) *zap.Logger {
	return NewLoggerWithWriters(debug, os.Stdout)
}

func NewLoggerWithWriters(debug bool, writers ...io.Writer) *zap.Logger {
	return NewLeveledLogger(NewLevel(debug), writers...)
}

// NewLevel returns an atomic level set to debug or info. Loggers built on it
// follow later changes made with SetDebug.
func NewLevel(debug bool) zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	SetDebug(level, debug)
	return level
}

// SetDebug switches level between debug and info.
func SetDebug(level zap.AtomicLevel, debug bool) {
	if debug {
		level.SetLevel(zap.DebugLevel)
		return
	}
	level.SetLevel(zap.InfoLevel)
}

// NewLeveledLogger builds the console logger on a caller-owned level so the
// level can be flipped at runtime.
func NewLeveledLogger(level zap.AtomicLevel, writers ...io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, writer := range writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(syncers...),
		level,
	)

	return zap.New(core, zap.AddCaller())
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
