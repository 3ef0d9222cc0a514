package notify

import (
	"context"
	"log/slog"
)

// =============================================================================
// MultiBroadcaster
// =============================================================================

// MultiBroadcaster fans events out to multiple broadcasters.
type MultiBroadcaster struct {
	Broadcasters []Broadcaster
	Logger       *slog.Logger
}

// NewMultiBroadcaster creates a broadcaster that fans out to the given
// broadcasters. Errors from individual broadcasters are logged but don't
// stop the others.
func NewMultiBroadcaster(broadcasters ...Broadcaster) *MultiBroadcaster {
	return &MultiBroadcaster{
		Broadcasters: broadcasters,
		Logger:       slog.Default(),
	}
}

// Broadcast implements Broadcaster.
func (b *MultiBroadcaster) Broadcast(ctx context.Context, event Event) error {
	var lastErr error
	for _, bc := range b.Broadcasters {
		if err := bc.Broadcast(ctx, event); err != nil {
			lastErr = err
			if b.Logger != nil {
				b.Logger.Warn("broadcaster failed",
					"error", err,
					"event_type", event.Type,
				)
			}
		}
	}
	return lastErr // Return last error, if any
}

// =============================================================================
// NopBroadcaster
// =============================================================================

// NopBroadcaster discards all events. Useful for testing or when event
// delivery is disabled.
type NopBroadcaster struct{}

// Broadcast implements Broadcaster.
func (NopBroadcaster) Broadcast(ctx context.Context, event Event) error {
	return nil
}
