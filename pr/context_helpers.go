package pr

import "context"

type contextKey struct{ name string }

var providerKey = &contextKey{"pr-provider"}

// ContextWithProvider returns a context carrying the Provider. Workflow
// nodes pick it up to open and merge pull requests without plumbing the
// provider through every call.
func ContextWithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey, p)
}

// ProviderFromContext returns the Provider from ctx, or nil when none is
// attached. Nodes treat nil as "let the assistant handle the PR".
func ProviderFromContext(ctx context.Context) Provider {
	if p, ok := ctx.Value(providerKey).(Provider); ok {
		return p
	}
	return nil
}

// MustProviderFromContext is ProviderFromContext that panics when the
// provider is missing.
func MustProviderFromContext(ctx context.Context) Provider {
	p := ProviderFromContext(ctx)
	if p == nil {
		panic("pr.Provider not found in context")
	}
	return p
}
