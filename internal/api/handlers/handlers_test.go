package handlers

import (
	"io"
	"log/slog"
)

// slogDiscard returns a logger that swallows output, keeping test logs quiet.
func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
