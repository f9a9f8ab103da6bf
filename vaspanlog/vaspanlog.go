// Package vaspanlog is a thin leveled façade over the standard
// library's log.Logger, used for the handful of non-hot-path
// diagnostics the engine reports: preprocessing progress and layers
// discarded by Clean. No package on the hot path (VA traversal, Jump
// bookkeeping, enumeration) logs anything; logging here is strictly
// opt-in plumbing for callers that want visibility into the driver's
// preprocessing phase.
package vaspanlog

import (
	"io"
	"log"
	"os"
)

// Logger wraps a *log.Logger with Debugf/Infof helpers. The zero value
// is not usable; construct one with New or Discard.
type Logger struct {
	std *log.Logger
}

// New returns a Logger writing to w with the given prefix, in the same
// style as log.New.
func New(w io.Writer, prefix string) *Logger {
	return &Logger{std: log.New(w, prefix, log.LstdFlags)}
}

// Default returns a Logger writing to os.Stderr with a "vaspan: " prefix.
func Default() *Logger {
	return New(os.Stderr, "vaspan: ")
}

// Discard returns a Logger that drops every message, the zero-cost
// default for callers that don't want preprocessing diagnostics.
func Discard() *Logger {
	return New(io.Discard, "")
}

// Infof logs a progress-level message.
func (l *Logger) Infof(format string, args ...any) {
	l.std.Printf("INFO "+format, args...)
}

// Debugf logs a diagnostic-level message, e.g. layers pruned by Clean.
func (l *Logger) Debugf(format string, args ...any) {
	l.std.Printf("DEBUG "+format, args...)
}
