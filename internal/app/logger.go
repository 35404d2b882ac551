package app

import (
	"io"
	"log/slog"
)

// newLogger creates a text logger on w whose level can be raised after the
// configuration is known. Warnings and errors are always shown.
func newLogger(w io.Writer) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), level
}
