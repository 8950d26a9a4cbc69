// Package logging builds the structured logger shared by all components.
package logging

import (
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// New returns a pterm logger writing to w at the given level.
// format "json" selects the JSON formatter; anything else is colorful text.
func New(w io.Writer, level, format string) *pterm.Logger {
	logger := pterm.DefaultLogger.
		WithWriter(w).
		WithLevel(ParseLevel(level))

	if strings.EqualFold(format, "json") {
		logger = logger.WithFormatter(pterm.LogFormatterJSON)
	}
	return logger
}

// ParseLevel maps a config level name to a pterm level. Unknown names map to info.
func ParseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "disabled":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithWriter(io.Discard).WithLevel(pterm.LogLevelDisabled)
}
