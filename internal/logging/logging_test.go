package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pterm/pterm"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want pterm.LogLevel
	}{
		{"debug", pterm.LogLevelDebug},
		{"WARN", pterm.LogLevelWarn},
		{" error ", pterm.LogLevelError},
		{"", pterm.LogLevelInfo},
		{"verbose", pterm.LogLevelInfo},
		{"off", pterm.LogLevelDisabled},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.Info("history appended", logger.Args("records", 3))

	out := buf.String()
	if !strings.Contains(out, `"msg":"history appended"`) {
		t.Fatalf("expected JSON msg field, got %q", out)
	}
	if !strings.Contains(out, `"records"`) {
		t.Fatalf("expected records arg, got %q", out)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "error", "json")

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at error level: %q", buf.String())
	}
}
