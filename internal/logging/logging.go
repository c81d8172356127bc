// Package logging provides structured logging setup, trimmed down from
// holomush-holomush/internal/logging: no OpenTelemetry trace-context
// wrapping, since nothing in this repo has an RPC boundary to trace —
// just a service-tagged slog.Logger in JSON or text form.
package logging

import (
	"log/slog"
	"os"
)

// Setup creates a slog.Logger writing to stderr, tagged with service on
// every record. format is "json" (default) or "text".
func Setup(service, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler).With("service", service)
}

// SetDefault configures slog's package-level default logger.
func SetDefault(service, format string) {
	slog.SetDefault(Setup(service, format))
}
