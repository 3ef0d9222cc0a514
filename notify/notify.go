package notify

import (
	"context"
	"time"
)

// =============================================================================
// Event Types
// =============================================================================

// EventType names a workflow event.
type EventType string

// Event type constants.
const (
	EventStageChanged           EventType = "stageChanged"
	EventExecutionStatus        EventType = "executionStatus"
	EventStepStarted            EventType = "stepStarted"
	EventStepCompleted          EventType = "stepCompleted"
	EventImplementationProgress EventType = "implementationProgress"
	EventPlanUpdated            EventType = "planUpdated"
	EventQueueReordered         EventType = "queueReordered"
	EventSessionUpdated         EventType = "sessionUpdated"
)

// Severity constants for events.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Channel scopes an event to one project/feature pair. Listeners subscribe
// per channel.
type Channel struct {
	ProjectID string `json:"projectId"`
	FeatureID string `json:"featureId"`
}

// Event describes one workflow event.
type Event struct {
	Type      EventType      `json:"type"`
	Channel   Channel        `json:"channel"`
	SessionID string         `json:"sessionId,omitempty"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity,omitempty"` // SeverityInfo, SeverityWarning, SeverityError
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// Broadcaster Interface
// =============================================================================

// Broadcaster publishes workflow events. Implementations should be
// non-blocking and handle errors gracefully (log, don't crash); callers
// never await delivery.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
}

// =============================================================================
// Context Injection
// =============================================================================

type serviceContextKey string

const broadcasterServiceKey serviceContextKey = "ralphflow.broadcaster"

// WithBroadcaster adds a Broadcaster to the context.
func WithBroadcaster(ctx context.Context, b Broadcaster) context.Context {
	return context.WithValue(ctx, broadcasterServiceKey, b)
}

// BroadcasterFromContext extracts the Broadcaster from context.
// Returns nil if none is configured.
func BroadcasterFromContext(ctx context.Context) Broadcaster {
	if b, ok := ctx.Value(broadcasterServiceKey).(Broadcaster); ok {
		return b
	}
	return nil
}

// MustBroadcasterFromContext extracts the Broadcaster or panics.
func MustBroadcasterFromContext(ctx context.Context) Broadcaster {
	b := BroadcasterFromContext(ctx)
	if b == nil {
		panic("ralphflow: Broadcaster not found in context")
	}
	return b
}
