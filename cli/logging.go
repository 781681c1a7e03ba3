package cli

import (
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/makotom/ladderspeed/config"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// newLogger builds the diagnostic logger. Measurement output does not go
// through it. Package-level zerolog settings are left alone.
func newLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
