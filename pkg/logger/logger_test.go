package logger

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/screener/backend/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", "pretty"} {
		log := New(&config.Config{LogFormat: format, LogLevel: "info", Env: "development"})
		if log == nil {
			t.Fatalf("New() returned nil for format %q", format)
		}
		log.Info("format check")
	}
}

func TestLogger_WithChaining(t *testing.T) {
	log := NewNop()

	derived := log.
		WithField("symbol", "005930").
		WithFields(map[string]interface{}{"run_id": "abc", "rank": 1}).
		WithError(errors.New("boom"))

	if derived == nil {
		t.Fatal("chained logger is nil")
	}
	if derived == log {
		t.Error("With* should return a new logger, not mutate the receiver")
	}

	// Nop이므로 출력 없이 통과해야 한다
	derived.Debug("debug")
	derived.Info("info")
	derived.Warn("warn")
	derived.Error("error")
	derived.Infof("formatted %d", 42)
	derived.Errorf("formatted %s", "err")
}
