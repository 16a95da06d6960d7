// Package logger provides a thin wrapper around zerolog.Logger with
// convenience constructors used throughout the application. Embedding
// zerolog.Logger exposes the full zerolog API while allowing helper
// constructors without modifying the upstream type.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// NewLogger constructs a *Logger for the given role label (e.g. "server",
// "notifier"). Every entry carries a "role" field and a timestamp; output
// is JSON on stdout.
func NewLogger(role string) *Logger {
	l := zerolog.New(os.Stdout).With().
		Str("role", role).
		Timestamp().
		Logger()
	return &Logger{l}
}

// Nop returns a *Logger that discards all output. Intended for tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}
