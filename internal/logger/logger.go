// Package logger builds the zap loggers used by the SDK, the sandbox and the
// examples.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding.
type Format string

const (
	FormatJSON    Format = "JSON"
	FormatConsole Format = "CONSOLE"

	envLevel  = "LOGGING_LEVEL"
	envFormat = "LOGGING_FORMAT"
)

// Component names used with Logger.Named.
const (
	ComponentGateway  = "gateway"
	ComponentResource = "resource"
	ComponentSandbox  = "sandbox"
	ComponentHTTP     = "httpx"
)

// ParseLevel maps DEBUG/INFO/WARN/ERROR to a zap level. Unknown values
// fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseFormat normalises a format name, defaulting to JSON.
func ParseFormat(format string) Format {
	switch Format(strings.ToUpper(strings.TrimSpace(format))) {
	case FormatConsole:
		return FormatConsole
	default:
		return FormatJSON
	}
}

// New creates a logger writing to stdout.
func New(level string, format Format) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}

	var encoder zapcore.Encoder
	if format == FormatConsole {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.ConsoleSeparator = " | "
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(ParseLevel(level)))
	return zap.New(core, zap.AddCaller())
}

// FromEnv creates a logger from LOGGING_LEVEL and LOGGING_FORMAT, falling
// back to the supplied defaults.
func FromEnv(defaultLevel string, defaultFormat Format) *zap.Logger {
	level := os.Getenv(envLevel)
	if level == "" {
		level = defaultLevel
	}
	format := defaultFormat
	if raw := os.Getenv(envFormat); raw != "" {
		format = ParseFormat(raw)
	}
	return New(level, format)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
