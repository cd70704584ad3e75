// Package colog is a minimal logging wrapper, grounded on the teacher's
// log.Logger: an io.Writer with a couple of formatted convenience methods,
// nothing more.
package colog

import (
	"fmt"
	"io"
)

// Logger wraps an io.Writer with copyctl's line-oriented logging
// conventions.
type Logger struct {
	io.Writer
}

// New returns a Logger that writes to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Logln logs a line.
func (l *Logger) Logln(args ...interface{}) {
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted string.
func (l *Logger) Logf(f string, args ...interface{}) {
	fmt.Fprintf(l, f, args...)
}

// LogOpfln logs a formatted line prefixed with "copyctl: ", which the CLI
// uses for its verbose event lines and diagnostics.
func (l *Logger) LogOpfln(format string, args ...interface{}) {
	fmt.Fprintf(l, "copyctl: "+format+"\n", args...)
}
