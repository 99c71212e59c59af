package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
	}{
		{name: "Debug", input: "debug", expected: LevelDebug},
		{name: "Info", input: "info", expected: LevelInfo},
		{name: "Warn", input: "warn", expected: LevelWarn},
		{name: "Warning alias", input: "warning", expected: LevelWarn},
		{name: "Error", input: "error", expected: LevelError},
		{name: "Case insensitive", input: "DEBUG", expected: LevelDebug},
		{name: "Surrounding whitespace", input: " error ", expected: LevelError},
		{name: "Empty defaults to info", input: "", expected: LevelInfo},
		{name: "Unknown defaults to info", input: "verbose", expected: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestZapLevelMapping(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LogLevel(42), zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.zapLevel(); got != tt.expected {
				t.Errorf("zapLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestLoggingFunctions tests that logging functions don't panic
func TestLoggingFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{name: "Debug", fn: func() { Debug("test message") }},
		{name: "Info", fn: func() { Info("test message") }},
		{name: "Warn", fn: func() { Warn("test message") }},
		{name: "Error", fn: func() { Error("test message") }},
		{name: "Info with args", fn: func() { Info("test %s %d", "message", 123) }},
		{name: "DebugFields", fn: func() { DebugFields("test", zap.String("k", "v")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Function panicked: %v", r)
				}
			}()
			tt.fn()
		})
	}
}

func TestSetLoggerCapturesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := SetLogger(zap.New(core))
	defer restore()

	ErrorFields("cannot decode", zap.String("image_key", "key-1"), zap.String("kind", "extraction_exhausted"))

	entries := logs.FilterMessage("cannot decode").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["image_key"] != "key-1" {
		t.Errorf("image_key = %v, want key-1", fields["image_key"])
	}
	if fields["kind"] != "extraction_exhausted" {
		t.Errorf("kind = %v, want extraction_exhausted", fields["kind"])
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("Level = %v, want error", entries[0].Level)
	}
}

func TestSetLoggerRestore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := SetLogger(zap.New(core))
	restore()

	Error("after restore")
	if logs.Len() != 0 {
		t.Errorf("Expected no entries after restore, got %d", logs.Len())
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restoreLogger := SetLogger(zap.New(core))
	defer restoreLogger()

	restore := SetLevel(LevelError)
	defer restore()
	Warn("suppressed")
	DebugFields("suppressed too")
	if logs.Len() != 0 {
		t.Errorf("Expected no entries below error, got %d", logs.Len())
	}

	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("Expected debug to be enabled")
	}
	DebugFields("visible", zap.String("state", "classify"))
	if logs.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", logs.Len())
	}
}
