// Package logging builds the diagnostic logger. It writes to stderr in the
// CLI so stdout only carries log events.
package logging

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// New returns a logger at the given level. format "text" selects the
// console writer, anything else emits JSON lines.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}

	if format == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
