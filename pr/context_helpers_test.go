package pr

import (
	"context"
	"testing"
)

func TestContextWithProvider_RoundTrip(t *testing.T) {
	mock := &MockProvider{}
	ctx := ContextWithProvider(context.Background(), mock)

	if got := ProviderFromContext(ctx); got != mock {
		t.Errorf("ProviderFromContext() = %v, want the attached mock", got)
	}
}

func TestProviderFromContext_Missing(t *testing.T) {
	if got := ProviderFromContext(context.Background()); got != nil {
		t.Errorf("ProviderFromContext() = %v, want nil", got)
	}
}

func TestProviderFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), providerKey, "not a provider")

	if got := ProviderFromContext(ctx); got != nil {
		t.Errorf("ProviderFromContext() = %v, want nil for wrong type", got)
	}
}

func TestContextWithProvider_LastWins(t *testing.T) {
	first := &MockProvider{}
	second := &MockProvider{}

	ctx := ContextWithProvider(context.Background(), first)
	ctx = ContextWithProvider(ctx, second)

	if got := ProviderFromContext(ctx); got != second {
		t.Error("ProviderFromContext() returned the shadowed provider")
	}
}

func TestMustProviderFromContext(t *testing.T) {
	mock := &MockProvider{}
	ctx := ContextWithProvider(context.Background(), mock)

	if got := MustProviderFromContext(ctx); got != mock {
		t.Error("MustProviderFromContext() returned a different provider")
	}
}

func TestMustProviderFromContext_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic without a provider")
		}
	}()
	MustProviderFromContext(context.Background())
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := &MockProvider{}
	ctx := context.Background()

	if _, err := mock.CreatePR(ctx, Options{Title: "t"}); err != nil {
		t.Fatalf("CreatePR() error = %v", err)
	}
	if err := mock.MergePR(ctx, 1, MergeOptions{}); err != nil {
		t.Fatalf("MergePR() error = %v", err)
	}

	got := mock.Calls()
	want := []string{"CreatePR", "MergePR"}
	if len(got) != len(want) {
		t.Fatalf("Calls() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Calls()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
