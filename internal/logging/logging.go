// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and installs log.Logger. Format "json" emits
// one JSON object per line for log shippers; anything else uses the console
// writer.
func Setup(level, format string, out io.Writer) error {
	if out == nil {
		out = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", level, err)
		}
	}
	zerolog.SetGlobalLevel(lvl)

	var w io.Writer = out
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(w).With().Str("app", "admit").Timestamp().Logger()
	return nil
}
