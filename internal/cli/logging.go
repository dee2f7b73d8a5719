package cli

import (
	"io"
	"os"
	"time"

	"quiz-room-service/internal/config"

	"github.com/rs/zerolog"
)

// newLogger builds the process logger: human-friendly console output when
// log.pretty is set, JSON lines otherwise.
func newLogger(cfg config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	var out io.Writer = os.Stdout
	if cfg.Log.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
