package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Services receive child loggers via
// With so every line carries its module name.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Nop returns a logger that discards everything; used in tests that don't
// assert on log output.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
