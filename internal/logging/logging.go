// Package logging builds the zerolog logger used across the server.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options select the minimum level and the output format.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or pretty
}

// New creates a structured logger. JSON output is the default; pretty is
// human-readable console output for local development.
func New(opts Options) zerolog.Logger {
	var level zerolog.Level
	switch opts.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	var output io.Writer = os.Stdout
	if opts.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "aether").
		Logger()
}
