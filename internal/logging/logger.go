package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar selects the log level when no level is configured.
// Unset or empty keeps logging silent.
const LogLevelEnvVar = "ACECTL_LOG_LEVEL"

// maxDumpBytes limits hex and ASCII dumps in log fields
const maxDumpBytes = 256

var current atomic.Pointer[zap.Logger]

// ParseLevel converts a level name into a zap level.
// Unknown names fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Initialize installs a console logger on stderr at the given level.
// An empty level falls back to ACECTL_LOG_LEVEL; if that is empty too
// the global logger is a no-op.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		SetLogger(nil)
		return nil
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Encoding:         "console",
		EncoderConfig:    enc,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetLogger(built)
	return nil
}

// InitializeFromEnv is Initialize with the level taken from ACECTL_LOG_LEVEL
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger; nil installs a no-op logger
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// GetLogger returns the global logger, a no-op until one is installed
func GetLogger() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	current.CompareAndSwap(nil, zap.NewNop())
	return current.Load()
}

// Named returns a child of the global logger scoped to a component
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// LogConnection logs a channel or client lifecycle event
func LogConnection(target, event string) {
	Info("Connection event",
		zap.String("target", target),
		zap.String("event", event),
	)
}

// LogFrame logs the bytes of a frame sent ("tx") or received ("rx").
// Nothing is formatted unless debug is enabled.
func LogFrame(target, direction string, frame []byte) {
	l := GetLogger()
	if !l.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	l.Debug("Frame",
		zap.String("target", target),
		zap.String("direction", direction),
		zap.Int("length", len(frame)),
		zap.String("hex", HexDump(frame)),
		zap.String("ascii", ASCIIDump(frame)),
	)
}

// clip cuts data to maxDumpBytes and returns the suffix marking the cut
func clip(data []byte) ([]byte, string) {
	if len(data) > maxDumpBytes {
		return data[:maxDumpBytes], "..."
	}
	return data, ""
}

// HexDump renders data as lowercase hex, truncated for logging
func HexDump(data []byte) string {
	data, more := clip(data)
	return hex.EncodeToString(data) + more
}

// ASCIIDump renders printable bytes as-is and the rest as '.'
func ASCIIDump(data []byte) string {
	data, more := clip(data)
	out := make([]byte, len(data))
	for i, b := range data {
		if b < 32 || b > 126 {
			b = '.'
		}
		out[i] = b
	}
	return string(out) + more
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
