// Package logging builds the shared zerolog.Logger for cmd/remind:
// console writer on a TTY, JSON otherwise, with structured fields
// (component, file, line, reminder) in place of a printf prefix.
package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New builds a logger writing to w. In TTY mode it uses zerolog's
// human-readable console writer (the closest structured analogue to
// the plain log.Printf lines); in daemon/non-TTY mode it
// emits raw JSON lines instead, one object per diagnostic.
func New(w io.Writer, tty bool) zerolog.Logger {
	if tty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// IsTerminal reports whether f looks like an interactive terminal.
func IsTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// NewRunID mints a correlation id for one daemon tick, attached to
// every log line emitted during that tick's reminder pass.
func NewRunID() string {
	return uuid.NewString()
}

// WithComponent scopes the logger to one named subsystem (e.g.
// "trigger", "subst", "daemon").
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// WithSource attaches the script filename and line to every diagnostic
// emitted while one directive is being processed.
func WithSource(l zerolog.Logger, file string, line int) zerolog.Logger {
	return l.With().Str("file", file).Int("line", line).Logger()
}
