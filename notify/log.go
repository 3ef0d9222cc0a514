package notify

import (
	"context"
	"log/slog"
)

// =============================================================================
// LogBroadcaster
// =============================================================================

// LogBroadcaster logs events using slog (for testing/debugging, and as the
// default broadcaster when no transport is configured).
type LogBroadcaster struct {
	Logger *slog.Logger
}

// NewLogBroadcaster creates a broadcaster that logs to the given logger.
// If logger is nil, uses the default slog logger.
func NewLogBroadcaster(logger *slog.Logger) *LogBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogBroadcaster{Logger: logger}
}

// Broadcast implements Broadcaster.
func (b *LogBroadcaster) Broadcast(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	switch event.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}

	b.Logger.Log(ctx, level, event.Message,
		"type", event.Type,
		"project_id", event.Channel.ProjectID,
		"feature_id", event.Channel.FeatureID,
		"session_id", event.SessionID,
		"payload", event.Payload,
	)
	return nil
}
