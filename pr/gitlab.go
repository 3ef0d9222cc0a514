package pr

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/xanzy/go-gitlab"
)

// GitLabProvider implements Provider over the GitLab merge-request API.
// Pull-request terms map to merge-request terms: ID is the MR IID,
// comments are notes.
type GitLabProvider struct {
	client    *gitlab.Client
	projectID string // numeric ID or "namespace/project"
}

// NewGitLabProvider builds a provider for one project. baseURL is empty
// for gitlab.com, the instance URL for self-hosted.
func NewGitLabProvider(token, baseURL, projectID string) (*GitLabProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	clientOpts := []gitlab.ClientOptionFunc{}
	if baseURL != "" {
		clientOpts = append(clientOpts, gitlab.WithBaseURL(baseURL))
	}
	client, err := gitlab.NewClient(token, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &GitLabProvider{client: client, projectID: projectID}, nil
}

// NewGitLabProviderFromURL builds a provider from a git remote URL,
// deriving the instance base URL for self-hosted GitLab.
func NewGitLabProviderFromURL(token, remoteURL string) (*GitLabProvider, error) {
	owner, repo, err := ParseRepoFromURL(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote URL: %w", err)
	}

	baseURL := ""
	if !strings.Contains(remoteURL, "gitlab.com") {
		host := strings.TrimPrefix(remoteURL, "https://")
		host = strings.TrimPrefix(host, "http://")
		if h, _, ok := strings.Cut(host, "/"); ok {
			baseURL = "https://" + h
		}
	}

	return NewGitLabProvider(token, baseURL, owner+"/"+repo)
}

// CreatePR opens a merge request.
func (p *GitLabProvider) CreatePR(ctx context.Context, opts Options) (*PullRequest, error) {
	target := opts.Base
	if target == "" {
		target = "main"
	}

	title := opts.Title
	if opts.Draft {
		// The draft flag is title-based in the MR API.
		title = "Draft: " + title
	}

	mrOpts := &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(title),
		Description:  gitlab.Ptr(opts.Body),
		SourceBranch: gitlab.Ptr(opts.Head),
		TargetBranch: gitlab.Ptr(target),
	}
	if len(opts.Labels) > 0 {
		mrOpts.Labels = gitlab.Ptr(gitlab.LabelOptions(opts.Labels))
	}
	if ids := userIDs(opts.Assignees); len(ids) > 0 {
		mrOpts.AssigneeIDs = gitlab.Ptr(ids)
	}
	if ids := userIDs(opts.Reviewers); len(ids) > 0 {
		mrOpts.ReviewerIDs = gitlab.Ptr(ids)
	}

	mr, resp, err := p.client.MergeRequests.CreateMergeRequest(p.projectID, mrOpts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, ErrExists
		}
		if resp != nil && resp.StatusCode == http.StatusBadRequest &&
			strings.Contains(err.Error(), "No commits between") {
			return nil, ErrNoChanges
		}
		return nil, fmt.Errorf("create MR: %w", err)
	}

	return mrToPullRequest(mr), nil
}

// GetPR fetches a merge request by IID.
func (p *GitLabProvider) GetPR(ctx context.Context, id int) (*PullRequest, error) {
	mr, resp, err := p.client.MergeRequests.GetMergeRequest(p.projectID, id, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get MR: %w", err)
	}
	return mrToPullRequest(mr), nil
}

// UpdatePR applies the non-nil fields of opts to a merge request.
func (p *GitLabProvider) UpdatePR(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error) {
	updateOpts := &gitlab.UpdateMergeRequestOptions{
		Title:        opts.Title,
		Description:  opts.Body,
		TargetBranch: opts.Base,
	}
	if opts.Labels != nil {
		updateOpts.Labels = gitlab.Ptr(gitlab.LabelOptions(opts.Labels))
	}

	mr, _, err := p.client.MergeRequests.UpdateMergeRequest(p.projectID, id, updateOpts)
	if err != nil {
		return nil, fmt.Errorf("update MR: %w", err)
	}
	return mrToPullRequest(mr), nil
}

// MergePR accepts a merge request. The rebase method falls back to a
// regular merge; a true rebase would need RebaseMergeRequest first.
func (p *GitLabProvider) MergePR(ctx context.Context, id int, opts MergeOptions) error {
	acceptOpts := &gitlab.AcceptMergeRequestOptions{}
	if opts.CommitMessage != "" {
		acceptOpts.MergeCommitMessage = gitlab.Ptr(opts.CommitMessage)
	}
	if opts.SHA != "" {
		acceptOpts.SHA = gitlab.Ptr(opts.SHA)
	}
	if opts.DeleteBranch {
		acceptOpts.ShouldRemoveSourceBranch = gitlab.Ptr(true)
	}
	if opts.Method == MergeMethodSquash {
		acceptOpts.Squash = gitlab.Ptr(true)
		if opts.CommitMessage != "" {
			acceptOpts.SquashCommitMessage = gitlab.Ptr(opts.CommitMessage)
		}
	}

	_, resp, err := p.client.MergeRequests.AcceptMergeRequest(p.projectID, id, acceptOpts)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return ErrNotFound
			case http.StatusMethodNotAllowed:
				return ErrClosed
			case http.StatusNotAcceptable:
				return ErrMergeConflict
			}
		}
		return fmt.Errorf("merge MR: %w", err)
	}
	return nil
}

// AddComment posts a note on a merge request.
func (p *GitLabProvider) AddComment(ctx context.Context, id int, body string) error {
	_, _, err := p.client.Notes.CreateMergeRequestNote(p.projectID, id,
		&gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(body)})
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

// RequestReview sets reviewers on a merge request. The MR API takes
// numeric user IDs, so reviewer strings must be numeric.
func (p *GitLabProvider) RequestReview(ctx context.Context, id int, reviewers []string) error {
	ids := userIDs(reviewers)
	if len(ids) == 0 {
		return fmt.Errorf("no valid reviewer IDs provided")
	}

	_, _, err := p.client.MergeRequests.UpdateMergeRequest(p.projectID, id,
		&gitlab.UpdateMergeRequestOptions{ReviewerIDs: gitlab.Ptr(ids)})
	if err != nil {
		return fmt.Errorf("request review: %w", err)
	}
	return nil
}

// ListPRs lists merge requests matching the filter.
func (p *GitLabProvider) ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error) {
	listOpts := &gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 20},
	}
	if filter.State != "" {
		listOpts.State = gitlab.Ptr(string(filter.State))
	}
	if filter.Base != "" {
		listOpts.TargetBranch = gitlab.Ptr(filter.Base)
	}
	if filter.Head != "" {
		listOpts.SourceBranch = gitlab.Ptr(filter.Head)
	}
	if filter.Author != "" {
		listOpts.AuthorUsername = gitlab.Ptr(filter.Author)
	}
	if len(filter.Labels) > 0 {
		listOpts.Labels = gitlab.Ptr(gitlab.LabelOptions(filter.Labels))
	}
	if filter.Sort != "" {
		listOpts.OrderBy = gitlab.Ptr(filter.Sort)
	}
	if filter.Direction != "" {
		listOpts.Sort = gitlab.Ptr(filter.Direction)
	}
	if filter.Limit > 0 {
		listOpts.PerPage = filter.Limit
	}

	mrs, _, err := p.client.MergeRequests.ListProjectMergeRequests(p.projectID, listOpts)
	if err != nil {
		return nil, fmt.Errorf("list MRs: %w", err)
	}

	out := make([]*PullRequest, len(mrs))
	for i, mr := range mrs {
		out[i] = mrToPullRequest(mr)
	}
	return out, nil
}

// userIDs keeps the numeric entries of a username list.
func userIDs(users []string) []int {
	var ids []int
	for _, u := range users {
		if id, err := strconv.Atoi(u); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// mrToPullRequest maps a merge request onto the provider-neutral type.
func mrToPullRequest(mr *gitlab.MergeRequest) *PullRequest {
	out := &PullRequest{
		ID:      mr.IID,
		URL:     mr.WebURL,
		HTMLURL: mr.WebURL,
		Title:   mr.Title,
		Body:    mr.Description,
		Head:    mr.SourceBranch,
		Base:    mr.TargetBranch,
		Labels:  mr.Labels,
		Draft: strings.HasPrefix(mr.Title, "Draft:") ||
			strings.HasPrefix(mr.Title, "WIP:"),
	}

	switch mr.State {
	case "opened":
		out.State = StateOpen
	case "merged":
		out.State = StateMerged
	case "closed":
		out.State = StateClosed
	}

	// ChangesCount comes back as a string, sometimes with a "+" suffix
	// on large MRs.
	if count, err := strconv.Atoi(strings.TrimSuffix(mr.ChangesCount, "+")); err == nil {
		out.ChangedFiles = count
	}

	if mr.CreatedAt != nil {
		out.CreatedAt = *mr.CreatedAt
	}
	if mr.UpdatedAt != nil {
		out.UpdatedAt = *mr.UpdatedAt
	}
	out.MergedAt = mr.MergedAt
	if mr.MergedBy != nil {
		out.MergedBy = mr.MergedBy.Username
	}

	for _, reviewer := range mr.Reviewers {
		out.Reviewers = append(out.Reviewers, reviewer.Username)
	}
	for _, assignee := range mr.Assignees {
		out.Assignees = append(out.Assignees, assignee.Username)
	}

	return out
}
