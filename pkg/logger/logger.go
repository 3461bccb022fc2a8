package logger

import (
	"io"
	"os"
	"time"

	"wallet-ledger/config"

	"github.com/rs/zerolog"
)

// New builds the application logger from config. Output is JSON unless
// pretty mode is enabled, in which case it is console-formatted for
// local development.
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter builds a logger that writes to w. Tests pass a buffer
// here to assert on emitted fields.
func NewWithWriter(w io.Writer, cfg config.LogConfig) zerolog.Logger {
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	return zerolog.New(w).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "wallet-ledger").
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
