// Package logging builds the zap logger shared by the CLI and internal packages.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLogLevel overrides the level chosen from the verbose flag.
const EnvLogLevel = "AICOMMIT_LOG_LEVEL"

// New returns a console logger writing to w.
// Verbose enables debug records; otherwise only warnings and errors are shown,
// unless AICOMMIT_LOG_LEVEL says otherwise.
func New(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = parseLevel(env, level)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core)
}

// parseLevel maps a level name to a zap level, returning fallback when unknown.
func parseLevel(s string, fallback zapcore.Level) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE", "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return fallback
	}
}
