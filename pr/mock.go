package pr

import (
	"context"
	"sync"
)

// MockProvider is a configurable Provider test double. Each method calls
// the matching Func field when set, otherwise returns a benign default.
// Calls records method names in invocation order.
type MockProvider struct {
	CreatePRFunc      func(ctx context.Context, opts Options) (*PullRequest, error)
	GetPRFunc         func(ctx context.Context, id int) (*PullRequest, error)
	UpdatePRFunc      func(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error)
	MergePRFunc       func(ctx context.Context, id int, opts MergeOptions) error
	AddCommentFunc    func(ctx context.Context, id int, body string) error
	RequestReviewFunc func(ctx context.Context, id int, reviewers []string) error
	ListPRsFunc       func(ctx context.Context, filter Filter) ([]*PullRequest, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockProvider) record(method string) {
	m.mu.Lock()
	m.calls = append(m.calls, method)
	m.mu.Unlock()
}

// Calls returns the method names invoked so far, in order.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockProvider) CreatePR(ctx context.Context, opts Options) (*PullRequest, error) {
	m.record("CreatePR")
	if m.CreatePRFunc != nil {
		return m.CreatePRFunc(ctx, opts)
	}
	return &PullRequest{ID: 1, URL: "https://example.com/pr/1", State: StateOpen}, nil
}

func (m *MockProvider) GetPR(ctx context.Context, id int) (*PullRequest, error) {
	m.record("GetPR")
	if m.GetPRFunc != nil {
		return m.GetPRFunc(ctx, id)
	}
	return &PullRequest{ID: id, State: StateOpen}, nil
}

func (m *MockProvider) UpdatePR(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error) {
	m.record("UpdatePR")
	if m.UpdatePRFunc != nil {
		return m.UpdatePRFunc(ctx, id, opts)
	}
	return &PullRequest{ID: id, State: StateOpen}, nil
}

func (m *MockProvider) MergePR(ctx context.Context, id int, opts MergeOptions) error {
	m.record("MergePR")
	if m.MergePRFunc != nil {
		return m.MergePRFunc(ctx, id, opts)
	}
	return nil
}

func (m *MockProvider) AddComment(ctx context.Context, id int, body string) error {
	m.record("AddComment")
	if m.AddCommentFunc != nil {
		return m.AddCommentFunc(ctx, id, body)
	}
	return nil
}

func (m *MockProvider) RequestReview(ctx context.Context, id int, reviewers []string) error {
	m.record("RequestReview")
	if m.RequestReviewFunc != nil {
		return m.RequestReviewFunc(ctx, id, reviewers)
	}
	return nil
}

func (m *MockProvider) ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error) {
	m.record("ListPRs")
	if m.ListPRsFunc != nil {
		return m.ListPRsFunc(ctx, filter)
	}
	return nil, nil
}
