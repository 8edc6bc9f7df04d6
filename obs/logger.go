// Package obs is the observability layer: structured logging and
// Prometheus metrics, delivered as run hooks.
//
// The agent core never logs or measures itself. LogHook and MetricsHook
// subscribe to run lifecycle events and translate them into slog lines
// and Prometheus series; register them with hooks.NewRegistry.
package obs

import (
	"io"
	"log/slog"

	"github.com/rickchristie/sqlagent/config"
)

// NewLogger builds the service logger from the observability section of
// the configuration. A nil writer discards all output.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}
