package pr

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// State of a pull request on the hosting platform.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
	StateMerged State = "merged"
)

// MergeMethod selects how a pull request is merged.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)

// Provider abstracts the pull-request API of a hosting platform.
// GitHubProvider and GitLabProvider implement it; MockProvider serves tests.
type Provider interface {
	// CreatePR opens a pull request.
	CreatePR(ctx context.Context, opts Options) (*PullRequest, error)

	// GetPR fetches a pull request by number.
	GetPR(ctx context.Context, id int) (*PullRequest, error)

	// UpdatePR applies the non-nil fields of opts.
	UpdatePR(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error)

	// MergePR merges a pull request.
	MergePR(ctx context.Context, id int, opts MergeOptions) error

	// AddComment posts a comment on a pull request.
	AddComment(ctx context.Context, id int, body string) error

	// RequestReview asks the given users for review.
	RequestReview(ctx context.Context, id int, reviewers []string) error

	// ListPRs returns pull requests matching the filter.
	ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error)
}

// Options describes the pull request to create.
type Options struct {
	Title     string // required
	Body      string // markdown description
	Base      string // target branch, "main" when empty
	Head      string // source branch
	Labels    []string
	Reviewers []string
	Assignees []string
	Draft     bool
	Milestone string
	Metadata  map[string]string
}

// UpdateOptions carries pull-request edits. Nil pointer fields are left
// unchanged; nil slices leave labels/assignees alone, non-nil replace them.
type UpdateOptions struct {
	Title     *string
	Body      *string
	Base      *string
	Labels    []string
	Assignees []string
	Draft     *bool
}

// MergeOptions controls how MergePR lands the change.
type MergeOptions struct {
	Method        MergeMethod
	CommitTitle   string // squash/merge commit title
	CommitMessage string // squash/merge commit body
	SHA           string // expected head SHA; merge fails if it moved
	DeleteBranch  bool   // remove the source branch after merging
}

// Filter narrows ListPRs results. Zero values mean "any".
type Filter struct {
	State     State
	Base      string
	Head      string
	Author    string
	Labels    []string // all must match
	Sort      string   // created, updated
	Direction string   // asc, desc
	Limit     int
}

// PullRequest is the provider-neutral view of a pull or merge request.
type PullRequest struct {
	ID      int // PR number (GitHub) or MR IID (GitLab)
	URL     string
	HTMLURL string
	Title   string
	Body    string
	State   State
	Draft   bool
	Head    string
	Base    string

	CreatedAt time.Time
	UpdatedAt time.Time
	MergedAt  *time.Time
	MergedBy  string

	Commits      int
	Additions    int
	Deletions    int
	ChangedFiles int

	Labels    []string
	Reviewers []string
	Assignees []string
}

// Builder assembles Options for a feature pull request.
type Builder struct {
	opts Options
	desc description
}

// description holds the structured body before rendering.
type description struct {
	summary  string
	changes  []string
	testPlan string
}

// NewBuilder starts a builder targeting main.
func NewBuilder(title string) *Builder {
	return &Builder{opts: Options{Title: title, Base: "main"}}
}

// WithFeature prefixes the title with the feature ID:
// "Add rate limiting" becomes "[rate-limiting] Add rate limiting".
func (b *Builder) WithFeature(featureID string) *Builder {
	b.opts.Title = fmt.Sprintf("[%s] %s", featureID, b.opts.Title)
	return b
}

// WithBody sets a raw markdown body, replacing any structured description.
func (b *Builder) WithBody(body string) *Builder {
	b.opts.Body = body
	b.desc = description{}
	return b
}

// WithSummary sets a structured body: a summary paragraph, the list of
// completed plan steps, and an optional test plan.
func (b *Builder) WithSummary(summary string, changes []string, testPlan string) *Builder {
	b.desc = description{summary: summary, changes: changes, testPlan: testPlan}
	b.opts.Body = b.desc.render()
	return b
}

func (d description) render() string {
	var body strings.Builder

	body.WriteString("## Summary\n\n")
	body.WriteString(d.summary)

	if len(d.changes) > 0 {
		body.WriteString("\n\n## Changes\n\n")
		for _, change := range d.changes {
			fmt.Fprintf(&body, "- %s\n", change)
		}
	}

	if d.testPlan != "" {
		body.WriteString("\n## Test Plan\n\n")
		body.WriteString(d.testPlan)
	}

	body.WriteString("\n\n---\n*Generated by ralphflow*")
	return body.String()
}

// WithBase sets the target branch.
func (b *Builder) WithBase(base string) *Builder {
	b.opts.Base = base
	return b
}

// WithHead sets the source branch.
func (b *Builder) WithHead(head string) *Builder {
	b.opts.Head = head
	return b
}

// WithLabels appends labels.
func (b *Builder) WithLabels(labels ...string) *Builder {
	b.opts.Labels = append(b.opts.Labels, labels...)
	return b
}

// WithReviewers appends reviewers.
func (b *Builder) WithReviewers(reviewers ...string) *Builder {
	b.opts.Reviewers = append(b.opts.Reviewers, reviewers...)
	return b
}

// WithAssignees appends assignees.
func (b *Builder) WithAssignees(assignees ...string) *Builder {
	b.opts.Assignees = append(b.opts.Assignees, assignees...)
	return b
}

// WithMilestone sets the milestone.
func (b *Builder) WithMilestone(milestone string) *Builder {
	b.opts.Milestone = milestone
	return b
}

// AsDraft marks the pull request as a draft.
func (b *Builder) AsDraft() *Builder {
	b.opts.Draft = true
	return b
}

// WithMetadata attaches a metadata key-value pair.
func (b *Builder) WithMetadata(key, value string) *Builder {
	if b.opts.Metadata == nil {
		b.opts.Metadata = make(map[string]string)
	}
	b.opts.Metadata[key] = value
	return b
}

// Build returns the assembled options.
func (b *Builder) Build() Options {
	return b.opts
}
