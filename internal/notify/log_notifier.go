package notify

import (
	"context"
	"log/slog"

	"github.com/phrazzld/pillbox-api/internal/platform/logger"
)

// LogNotifier "delivers" reminders by writing a structured log line. It is
// the notifier used for every configured method until a real provider is
// plugged in.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "log_notifier"))}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, method string, r Reminder) error {
	logger.FromContextOrDefault(ctx, n.logger).Info("pill reminder",
		slog.String("method", method),
		slog.String("user_id", r.UserID.String()),
		slog.String("pill_id", r.PillID.String()),
		slog.String("title", r.Title),
		slog.Time("fire_at", r.FireAt))
	return nil
}

// NewLogDispatcher builds a Dispatcher that uses a LogNotifier for each of methods.
func NewLogDispatcher(methods []string, cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	n := NewLogNotifier(logger)
	notifiers := make(map[string]Notifier, len(methods))
	for _, m := range methods {
		notifiers[m] = n
	}
	return NewDispatcher(notifiers, cfg, logger)
}
