package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded events. It is used
// when no notification backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards events with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// Notify logs and discards ev.
func (n *NoOpNotifier) Notify(_ context.Context, ev Event) error {
	n.log.Debug("notification discarded (no backend configured)",
		"level", ev.Level.String(),
		"title", ev.Title,
		"platform", ev.Platform,
	)
	return nil
}
