package pr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubProvider implements Provider against the GitHub REST API.
type GitHubProvider struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubProvider builds a provider for owner/repo authenticated with a
// personal access token or app token.
func NewGitHubProvider(token, owner, repo string) (*GitHubProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)

	return &GitHubProvider{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}, nil
}

// NewGitHubProviderFromURL derives owner/repo from a git remote URL.
// Example: "https://github.com/clrke/ralphflow.git"
func NewGitHubProviderFromURL(token, remoteURL string) (*GitHubProvider, error) {
	owner, repo, err := ParseRepoFromURL(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote URL: %w", err)
	}
	return NewGitHubProvider(token, owner, repo)
}

// CreatePR opens a pull request. Labels, reviewers and assignees are applied
// after creation; failures there are logged but do not undo the PR.
func (p *GitHubProvider) CreatePR(ctx context.Context, opts Options) (*PullRequest, error) {
	base := opts.Base
	if base == "" {
		base = "main"
	}

	created, resp, err := p.client.PullRequests.Create(ctx, p.owner, p.repo, &github.NewPullRequest{
		Title: github.String(opts.Title),
		Body:  github.String(opts.Body),
		Base:  github.String(base),
		Head:  github.String(opts.Head),
		Draft: github.Bool(opts.Draft),
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			msg := err.Error()
			if strings.Contains(msg, "A pull request already exists") {
				return nil, ErrExists
			}
			if strings.Contains(msg, "No commits between") {
				return nil, ErrNoChanges
			}
		}
		return nil, fmt.Errorf("create PR: %w", err)
	}

	number := created.GetNumber()
	if len(opts.Labels) > 0 {
		_, _, err := p.client.Issues.AddLabelsToIssue(ctx, p.owner, p.repo, number, opts.Labels)
		p.warn(err, "add labels", number)
	}
	if len(opts.Reviewers) > 0 {
		p.warn(p.requestReviewers(ctx, number, opts.Reviewers), "request reviewers", number)
	}
	if len(opts.Assignees) > 0 {
		_, _, err := p.client.Issues.AddAssignees(ctx, p.owner, p.repo, number, opts.Assignees)
		p.warn(err, "add assignees", number)
	}

	return ghToPullRequest(created), nil
}

// GetPR retrieves a pull request by number.
func (p *GitHubProvider) GetPR(ctx context.Context, id int) (*PullRequest, error) {
	pullRequest, resp, err := p.client.PullRequests.Get(ctx, p.owner, p.repo, id)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get PR: %w", err)
	}
	return ghToPullRequest(pullRequest), nil
}

// UpdatePR edits title, body or base, and replaces labels and assignees when
// those fields are present in opts.
func (p *GitHubProvider) UpdatePR(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error) {
	edit := &github.PullRequest{Title: opts.Title, Body: opts.Body}
	if opts.Base != nil {
		edit.Base = &github.PullRequestBranch{Ref: opts.Base}
	}

	updated, _, err := p.client.PullRequests.Edit(ctx, p.owner, p.repo, id, edit)
	if err != nil {
		return nil, fmt.Errorf("update PR: %w", err)
	}

	if opts.Labels != nil {
		_, _, err := p.client.Issues.ReplaceLabelsForIssue(ctx, p.owner, p.repo, id, opts.Labels)
		p.warn(err, "replace labels", id)
	}
	if opts.Assignees != nil {
		p.warn(p.replaceAssignees(ctx, id, opts.Assignees), "replace assignees", id)
	}

	return ghToPullRequest(updated), nil
}

// MergePR merges the pull request, optionally deleting the source branch.
func (p *GitHubProvider) MergePR(ctx context.Context, id int, opts MergeOptions) error {
	method := "merge"
	switch opts.Method {
	case MergeMethodSquash:
		method = "squash"
	case MergeMethodRebase:
		method = "rebase"
	}

	_, resp, err := p.client.PullRequests.Merge(ctx, p.owner, p.repo, id, opts.CommitMessage, &github.PullRequestOptions{
		CommitTitle: opts.CommitTitle,
		SHA:         opts.SHA,
		MergeMethod: method,
	})
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return ErrNotFound
			case http.StatusMethodNotAllowed:
				return ErrClosed
			case http.StatusConflict:
				return ErrMergeConflict
			}
		}
		return fmt.Errorf("merge PR: %w", err)
	}

	if opts.DeleteBranch {
		merged, _, err := p.client.PullRequests.Get(ctx, p.owner, p.repo, id)
		if err != nil {
			p.warn(err, "look up branch for deletion", id)
		} else if ref := merged.GetHead().GetRef(); ref != "" {
			_, err := p.client.Git.DeleteRef(ctx, p.owner, p.repo, "heads/"+ref)
			p.warn(err, "delete branch", id)
		}
	}
	return nil
}

// AddComment posts a comment on the pull request's conversation thread.
func (p *GitHubProvider) AddComment(ctx context.Context, id int, body string) error {
	_, _, err := p.client.Issues.CreateComment(ctx, p.owner, p.repo, id,
		&github.IssueComment{Body: github.String(body)})
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

// RequestReview asks the given users for a review.
func (p *GitHubProvider) RequestReview(ctx context.Context, id int, reviewers []string) error {
	if err := p.requestReviewers(ctx, id, reviewers); err != nil {
		return fmt.Errorf("request review: %w", err)
	}
	return nil
}

// ListPRs lists pull requests matching the filter.
func (p *GitHubProvider) ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error) {
	state := "all"
	if filter.State != "" {
		state = string(filter.State)
	}
	perPage := 30
	if filter.Limit > 0 {
		perPage = filter.Limit
	}

	listed, _, err := p.client.PullRequests.List(ctx, p.owner, p.repo, &github.PullRequestListOptions{
		State:       state,
		Base:        filter.Base,
		Head:        filter.Head,
		Sort:        filter.Sort,
		Direction:   filter.Direction,
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("list PRs: %w", err)
	}

	out := make([]*PullRequest, len(listed))
	for i, pullRequest := range listed {
		out[i] = ghToPullRequest(pullRequest)
	}
	return out, nil
}

func (p *GitHubProvider) requestReviewers(ctx context.Context, id int, reviewers []string) error {
	_, _, err := p.client.PullRequests.RequestReviewers(ctx, p.owner, p.repo, id,
		github.ReviewersRequest{Reviewers: reviewers})
	return err
}

// replaceAssignees clears the current assignee set before applying the new
// one, since the issues API only appends.
func (p *GitHubProvider) replaceAssignees(ctx context.Context, id int, assignees []string) error {
	issue, _, err := p.client.Issues.Get(ctx, p.owner, p.repo, id)
	if err != nil {
		return err
	}
	var current []string
	for _, a := range issue.Assignees {
		current = append(current, a.GetLogin())
	}
	if len(current) > 0 {
		if _, _, err := p.client.Issues.RemoveAssignees(ctx, p.owner, p.repo, id, current); err != nil {
			return err
		}
	}
	if len(assignees) == 0 {
		return nil
	}
	_, _, err = p.client.Issues.AddAssignees(ctx, p.owner, p.repo, id, assignees)
	return err
}

// warn logs a non-fatal API failure on an otherwise successful operation.
func (p *GitHubProvider) warn(err error, op string, id int) {
	if err != nil {
		slog.Warn("pull request side operation failed",
			"op", op, "repo", p.owner+"/"+p.repo, "pr", id, "error", err)
	}
}

// ghToPullRequest maps a GitHub pull request onto the provider-neutral type.
func ghToPullRequest(pullRequest *github.PullRequest) *PullRequest {
	result := &PullRequest{
		ID:           pullRequest.GetNumber(),
		URL:          pullRequest.GetURL(),
		HTMLURL:      pullRequest.GetHTMLURL(),
		Title:        pullRequest.GetTitle(),
		Body:         pullRequest.GetBody(),
		Draft:        pullRequest.GetDraft(),
		Head:         pullRequest.GetHead().GetRef(),
		Base:         pullRequest.GetBase().GetRef(),
		Commits:      pullRequest.GetCommits(),
		Additions:    pullRequest.GetAdditions(),
		Deletions:    pullRequest.GetDeletions(),
		ChangedFiles: pullRequest.GetChangedFiles(),
		MergedBy:     pullRequest.GetMergedBy().GetLogin(),
	}

	switch {
	case pullRequest.GetState() == "open":
		result.State = StateOpen
	case pullRequest.GetMerged():
		result.State = StateMerged
	case pullRequest.GetState() == "closed":
		result.State = StateClosed
	}

	if pullRequest.CreatedAt != nil {
		result.CreatedAt = pullRequest.CreatedAt.Time
	}
	if pullRequest.UpdatedAt != nil {
		result.UpdatedAt = pullRequest.UpdatedAt.Time
	}
	if pullRequest.MergedAt != nil {
		t := pullRequest.MergedAt.Time
		result.MergedAt = &t
	}

	for _, label := range pullRequest.Labels {
		result.Labels = append(result.Labels, label.GetName())
	}
	for _, reviewer := range pullRequest.RequestedReviewers {
		result.Reviewers = append(result.Reviewers, reviewer.GetLogin())
	}
	for _, assignee := range pullRequest.Assignees {
		result.Assignees = append(result.Assignees, assignee.GetLogin())
	}
	return result
}
