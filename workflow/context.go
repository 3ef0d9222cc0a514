package workflow

import (
	"context"

	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/prompt"
	"github.com/clrke/ralphflow/storage"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// These helpers inject the services stage nodes depend on into
// context.Context, so nodes stay plain functions over State.

// serviceContextKey is a private type for context keys to avoid collisions.
type serviceContextKey string

// Context keys for workflow services.
const (
	lifecycleServiceKey serviceContextKey = "ralphflow.lifecycle"
	assistantServiceKey serviceContextKey = "ralphflow.assistant"
	promptServiceKey    serviceContextKey = "ralphflow.prompts"
	storeServiceKey     serviceContextKey = "ralphflow.store"
)

// WithLifecycle adds the lifecycle manager to the context.
func WithLifecycle(ctx context.Context, l *ralphflow.Lifecycle) context.Context {
	return context.WithValue(ctx, lifecycleServiceKey, l)
}

// LifecycleFrom extracts the lifecycle manager from context.
func LifecycleFrom(ctx context.Context) *ralphflow.Lifecycle {
	if l, ok := ctx.Value(lifecycleServiceKey).(*ralphflow.Lifecycle); ok {
		return l
	}
	return nil
}

// MustLifecycleFrom extracts the lifecycle manager or panics.
func MustLifecycleFrom(ctx context.Context) *ralphflow.Lifecycle {
	l := LifecycleFrom(ctx)
	if l == nil {
		panic("ralphflow/workflow: Lifecycle not found in context")
	}
	return l
}

// Assistant is the surface stage nodes need from the assistant CLI. It is
// satisfied by *ralphflow.AssistantCLI and by test fakes.
type Assistant interface {
	Invoke(ctx context.Context, prompt string, opts ...ralphflow.InvokeOption) (*ralphflow.InvokeResult, error)
}

// WithAssistant adds the assistant to the context.
func WithAssistant(ctx context.Context, a Assistant) context.Context {
	return context.WithValue(ctx, assistantServiceKey, a)
}

// AssistantFrom extracts the assistant from context.
func AssistantFrom(ctx context.Context) Assistant {
	if a, ok := ctx.Value(assistantServiceKey).(Assistant); ok {
		return a
	}
	return nil
}

// MustAssistantFrom extracts the assistant or panics.
func MustAssistantFrom(ctx context.Context) Assistant {
	a := AssistantFrom(ctx)
	if a == nil {
		panic("ralphflow/workflow: Assistant not found in context")
	}
	return a
}

// WithPrompts adds the prompt loader to the context.
func WithPrompts(ctx context.Context, l *prompt.Loader) context.Context {
	return context.WithValue(ctx, promptServiceKey, l)
}

// PromptsFrom extracts the prompt loader from context.
func PromptsFrom(ctx context.Context) *prompt.Loader {
	if l, ok := ctx.Value(promptServiceKey).(*prompt.Loader); ok {
		return l
	}
	return nil
}

// WithStore adds the document store to the context.
func WithStore(ctx context.Context, s storage.Store) context.Context {
	return context.WithValue(ctx, storeServiceKey, s)
}

// StoreFrom extracts the document store from context.
func StoreFrom(ctx context.Context) storage.Store {
	if s, ok := ctx.Value(storeServiceKey).(storage.Store); ok {
		return s
	}
	return nil
}
