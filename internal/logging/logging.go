// Package logging builds the zerolog logger shared by the command line
// tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w at the named level. An empty
// level selects info.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("logging: %w", err)
		}
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// JSON returns a logger writing one JSON object per line, for piping into
// other tools.
func JSON(w io.Writer, level string) (zerolog.Logger, error) {
	l, err := New(w, level)
	if err != nil {
		return l, err
	}
	return zerolog.New(w).Level(l.GetLevel()).With().Timestamp().Logger(), nil
}
