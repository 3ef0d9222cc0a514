// Package pr opens and manages pull requests for implemented features.
//
// The pr_creation stage builds a description from the feature plan and
// opens the pull request; final approval merges it, posts review
// feedback, or re-requests review. A Provider attached to the workflow
// context (ContextWithProvider) does this directly over the platform
// API; without one the assistant drives the git hosting CLI instead.
//
// GitHubProvider talks to the GitHub API via go-github, GitLabProvider
// to the GitLab merge-request API via go-gitlab. ProviderFromEnv picks
// one from the remote URL and token environment variables.
//
//	provider, _ := pr.ProviderFromEnv("git@github.com:clrke/ralphflow.git")
//	opts := pr.NewBuilder("Add rate limiting").
//	    WithFeature("rate-limiting").
//	    WithSummary("Per-tenant request caps.", stepTitles, "").
//	    WithHead("feature/rate-limiting").
//	    Build()
//	pull, err := provider.CreatePR(ctx, opts)
package pr
