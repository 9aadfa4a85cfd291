package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// New logs JSON to stdout at the LOG_LEVEL from the environment.
func New() zerolog.Logger {
	return SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
}

func SetLevel(level zerolog.Level) zerolog.Logger {
	return NewWriter(os.Stdout, level)
}

// NewWriter is New for an arbitrary sink; the CLI logs to stderr so stdout
// stays machine readable.
func NewWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(level)
}

// ParseLevel falls back to info for empty or unknown names.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

var Module = fx.Provide(New)
