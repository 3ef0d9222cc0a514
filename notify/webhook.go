package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// WebhookBroadcaster
// =============================================================================

// DefaultTokenTTL is the lifetime of webhook bearer tokens.
const DefaultTokenTTL = 5 * time.Minute

// WebhookBroadcaster posts events to an HTTP endpoint. When Secret is set,
// each request carries a short-lived HS256 bearer token so the receiver can
// authenticate the sender.
type WebhookBroadcaster struct {
	URL      string
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
	Headers  map[string]string
	Client   *http.Client
}

// NewWebhookBroadcaster creates a webhook broadcaster. secret may be nil for
// unauthenticated endpoints.
func NewWebhookBroadcaster(url string, secret []byte) *WebhookBroadcaster {
	return &WebhookBroadcaster{
		URL:    url,
		Secret: secret,
		Issuer: "ralphflow",
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *WebhookBroadcaster) tokenTTL() time.Duration {
	if b.TokenTTL == 0 {
		return DefaultTokenTTL
	}
	return b.TokenTTL
}

// signToken mints a short-lived bearer token for one delivery.
func (b *WebhookBroadcaster) signToken(event Event) (string, error) {
	jti, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    b.Issuer,
		Subject:   event.Channel.ProjectID + "/" + event.Channel.FeatureID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.tokenTTL())),
		ID:        jti,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(b.Secret)
}

// Broadcast implements Broadcaster.
func (b *WebhookBroadcaster) Broadcast(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}
	if len(b.Secret) > 0 {
		token, err := b.signToken(event)
		if err != nil {
			return fmt.Errorf("sign webhook token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}

	return nil
}
