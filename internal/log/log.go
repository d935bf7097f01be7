// Package log wraps zerolog with the server's structured-logging
// conventions: component-scoped child loggers carrying fields instead of
// interpolated strings.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger, configured once by Init.
var Logger zerolog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Config controls the base logger's level, output format, and destination.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // "json" or "console"
	Output io.Writer
}

// Init configures the global Logger. Called once at startup from the
// loaded configuration; unrecognized levels default to info.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.Format == "console" {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagging every line with the
// component name, e.g. log.WithComponent("sync").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
