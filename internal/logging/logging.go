package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel atomic.Int32
	levelOnce    sync.Once

	loggerMu sync.RWMutex
	base     *zap.Logger
	sugar    *zap.SugaredLogger
)

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		// DEBUG wins over LOG_LEVEL
		if debug := os.Getenv("DEBUG"); debug != "" {
			switch strings.ToLower(debug) {
			case "1", "true", "yes", "on":
				currentLevel.Store(int32(LevelDebug))
				return
			}
		}
		currentLevel.Store(int32(ParseLevel(os.Getenv("LOG_LEVEL"))))
	})
}

// ParseLevel converts a level name to a LogLevel. Unknown names map to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return LogLevel(currentLevel.Load())
}

// SetLevel overrides the level read from the environment and returns a
// function restoring the previous level. A logger built later by this
// package picks up the new level; one installed with SetLogger keeps its own.
func SetLevel(l LogLevel) (restore func()) {
	initLevel()
	prev := currentLevel.Swap(int32(l))
	return func() { currentLevel.Store(prev) }
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// newZapLogger builds the process logger. LOG_FORMAT=json switches from the
// console encoder to JSON output.
func newZapLogger(level LogLevel, format string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level.zapLevel())
	config.Encoding = "console"
	if strings.EqualFold(format, "json") {
		config.Encoding = "json"
	}
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: failed to build logger: %v\n", err)
		return zap.NewNop()
	}
	return l
}

func current() (*zap.Logger, *zap.SugaredLogger) {
	loggerMu.RLock()
	if base != nil {
		defer loggerMu.RUnlock()
		return base, sugar
	}
	loggerMu.RUnlock()

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if base == nil {
		base = newZapLogger(GetLevel(), os.Getenv("LOG_FORMAT"))
		sugar = base.Sugar()
	}
	return base, sugar
}

// SetLogger replaces the process logger and returns a function restoring the
// previous one. The logger should carry zap.AddCallerSkip(1) to report the
// right call site.
func SetLogger(l *zap.Logger) (restore func()) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	prevBase, prevSugar := base, sugar
	base = l
	sugar = l.Sugar()
	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		base, sugar = prevBase, prevSugar
	}
}

// Sync flushes any buffered log entries
func Sync() {
	l, _ := current()
	_ = l.Sync()
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		_, s := current()
		s.Debugf(format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		_, s := current()
		s.Infof(format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		_, s := current()
		s.Warnf(format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		_, s := current()
		s.Errorf(format, args...)
	}
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	_, s := current()
	s.Fatalf(format, args...)
}

// DebugFields logs a structured debug entry
func DebugFields(msg string, fields ...zap.Field) {
	if GetLevel() <= LevelDebug {
		l, _ := current()
		l.Debug(msg, fields...)
	}
}

// ErrorFields logs a structured error entry. Decode failures go through here
// so the image key and error kind can be queried.
func ErrorFields(msg string, fields ...zap.Field) {
	if GetLevel() <= LevelError {
		l, _ := current()
		l.Error(msg, fields...)
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
