package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// =============================================================================
// SlackBroadcaster
// =============================================================================

// SlackBroadcaster posts significant events to a Slack webhook. Per-step
// progress events are skipped so a channel isn't flooded while a session
// implements a long plan.
type SlackBroadcaster struct {
	WebhookURL string
	Channel    string
	Username   string
	Client     *http.Client
}

// NewSlackBroadcaster creates a Slack webhook broadcaster.
func NewSlackBroadcaster(webhookURL string, opts ...SlackOption) *SlackBroadcaster {
	b := &SlackBroadcaster{
		WebhookURL: webhookURL,
		Username:   "ralphflow",
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SlackOption configures SlackBroadcaster.
type SlackOption func(*SlackBroadcaster)

// WithSlackChannel sets the channel to post to.
func WithSlackChannel(channel string) SlackOption {
	return func(b *SlackBroadcaster) { b.Channel = channel }
}

// WithSlackUsername sets the bot username.
func WithSlackUsername(username string) SlackOption {
	return func(b *SlackBroadcaster) { b.Username = username }
}

// noisy reports whether an event is too chatty for a Slack channel.
func noisy(t EventType) bool {
	switch t {
	case EventStepStarted, EventStepCompleted, EventImplementationProgress, EventExecutionStatus:
		return true
	}
	return false
}

// Broadcast implements Broadcaster.
func (b *SlackBroadcaster) Broadcast(ctx context.Context, event Event) error {
	if noisy(event.Type) {
		return nil
	}

	payload := slackPayload{
		Username: b.Username,
		Attachments: []slackAttachment{
			{
				Color:     b.colorForSeverity(event.Severity),
				Title:     string(event.Type),
				Text:      event.Message,
				Footer:    fmt.Sprintf("Project: %s | Feature: %s", event.Channel.ProjectID, event.Channel.FeatureID),
				Timestamp: event.Timestamp.Unix(),
				Fields:    b.fieldsFromPayload(event.Payload),
			},
		},
	}

	if b.Channel != "" {
		payload.Channel = b.Channel
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}

	return nil
}

func (b *SlackBroadcaster) colorForSeverity(severity string) string {
	switch severity {
	case SeverityError:
		return "danger"
	case SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}

func (b *SlackBroadcaster) fieldsFromPayload(payload map[string]any) []slackField {
	if len(payload) == 0 {
		return nil
	}

	var fields []slackField
	for k, v := range payload {
		fields = append(fields, slackField{
			Title: k,
			Value: fmt.Sprintf("%v", v),
			Short: true,
		})
	}
	return fields
}

// Slack webhook payload types
type slackPayload struct {
	Username    string            `json:"username,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
	Fields    []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
