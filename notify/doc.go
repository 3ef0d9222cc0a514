// Package notify delivers fire-and-forget workflow events scoped to a
// project/feature channel.
//
// Core types:
//   - Broadcaster: Interface for publishing events
//   - Event: Named event with channel, message, and payload
//   - EventType: Event name (stage changed, step completed, etc.)
//
// Implementations:
//   - LogBroadcaster: Logs events via slog (default, and for debugging)
//   - WebhookBroadcaster: Posts events to an HTTP endpoint with a signed
//     bearer token
//   - SlackBroadcaster: Posts significant events to a Slack webhook
//   - MultiBroadcaster: Fans out to several broadcasters
//   - NopBroadcaster: Discards everything (for testing)
//
// Example usage:
//
//	bc := notify.NewMultiBroadcaster(
//	    notify.NewLogBroadcaster(nil),
//	    notify.NewWebhookBroadcaster(url, secret),
//	)
//	bc.Broadcast(ctx, notify.Event{
//	    Type:    notify.EventStageChanged,
//	    Channel: notify.Channel{ProjectID: "p1", FeatureID: "auth"},
//	    Message: "session advanced to planning",
//	})
//
// Delivery is best-effort. Callers treat Broadcast errors as advisory.
package notify
