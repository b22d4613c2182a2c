package logger

import (
	"io"
	"log/slog"
)

// New returns a JSON slog.Logger writing to w and tagged with the service name.
func New(w io.Writer, service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}
