package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := map[string]struct {
		level   string
		debugOn bool
		infoOn  bool
	}{
		"debug":   {"debug", true, true},
		"warn":    {"warn", false, false},
		"invalid": {"loud", false, true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			logger, err := NewLogger(LoggingConfig{Level: tc.level, Encoding: "json"})
			if err != nil {
				t.Fatalf("new logger: %v", err)
			}

			core := logger.Core()
			if got := core.Enabled(zapcore.DebugLevel); got != tc.debugOn {
				t.Fatalf("debug enabled = %v, want %v", got, tc.debugOn)
			}
			if got := core.Enabled(zapcore.InfoLevel); got != tc.infoOn {
				t.Fatalf("info enabled = %v, want %v", got, tc.infoOn)
			}
		})
	}
}
