package app

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"mote/hal"
)

// NewLogger returns a logger writing through the HAL console. console selects
// human-readable output instead of JSON lines.
func NewLogger(h hal.HAL, level zerolog.Level, console bool) zerolog.Logger {
	if h == nil || h.Logger() == nil {
		return zerolog.Nop()
	}
	var w io.Writer = &hal.LineWriter{L: h.Logger()}
	if console {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
