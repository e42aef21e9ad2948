// Package logger builds the service logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to stderr
func New(level, format string) *log.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter creates a logger writing to w. Unknown levels fall back to info.
func NewWithWriter(w io.Writer, level, format string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "trusttag",
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Formatter:       formatter(format),
	})
}

func formatter(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
