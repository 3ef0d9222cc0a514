package pr

import (
	"fmt"
	"os"
	"strings"
)

// platformTokens maps a detected platform to its token env vars, in
// lookup order. GIT_TOKEN works as a shared fallback.
var platformTokens = map[string][]string{
	"github": {"GITHUB_TOKEN", "GIT_TOKEN"},
	"gitlab": {"GITLAB_TOKEN", "GIT_TOKEN"},
}

// DetectProvider names the hosting platform behind a git remote URL.
// Self-hosted GitLab instances are matched by "gitlab" anywhere in the
// host. Unrecognized hosts return ErrUnknownProvider.
func DetectProvider(remoteURL string) (string, error) {
	lower := strings.ToLower(remoteURL)
	switch {
	case strings.Contains(lower, "github.com"):
		return "github", nil
	case strings.Contains(lower, "gitlab"):
		return "gitlab", nil
	case strings.Contains(lower, "bitbucket"):
		return "bitbucket", nil
	}
	return "", ErrUnknownProvider
}

// ParseRepoFromURL extracts owner and repo from an SSH or HTTPS remote URL.
//
//	git@github.com:clrke/ralphflow.git  -> clrke, ralphflow
//	https://github.com/clrke/ralphflow  -> clrke, ralphflow
func ParseRepoFromURL(remoteURL string) (owner, repo string, err error) {
	if strings.HasPrefix(remoteURL, "git@") {
		_, path, ok := strings.Cut(remoteURL, ":")
		if !ok || strings.Contains(path, ":") {
			return "", "", fmt.Errorf("invalid SSH URL format")
		}
		owner, repo, ok = strings.Cut(strings.TrimSuffix(path, ".git"), "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			return "", "", fmt.Errorf("invalid repository path")
		}
		return owner, repo, nil
	}

	trimmed := strings.TrimPrefix(remoteURL, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("invalid URL format")
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// ProviderFromEnv builds a Provider for the remote URL, reading the
// access token from the environment (GITHUB_TOKEN or GITLAB_TOKEN, with
// GIT_TOKEN as fallback).
func ProviderFromEnv(remoteURL string) (Provider, error) {
	platform, err := DetectProvider(remoteURL)
	if err != nil {
		return nil, err
	}

	envVars, ok := platformTokens[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, platform)
	}

	token := ""
	for _, name := range envVars {
		if token = os.Getenv(name); token != "" {
			break
		}
	}
	if token == "" {
		return nil, fmt.Errorf("%s not set; export a personal access token",
			strings.Join(envVars, " or "))
	}

	return ProviderFromEnvWithToken(remoteURL, token)
}

// ProviderFromEnvWithToken builds a Provider with an explicit token,
// for when the token comes from configuration rather than the environment.
func ProviderFromEnvWithToken(remoteURL, token string) (Provider, error) {
	platform, err := DetectProvider(remoteURL)
	if err != nil {
		return nil, err
	}

	switch platform {
	case "github":
		return NewGitHubProviderFromURL(token, remoteURL)
	case "gitlab":
		return NewGitLabProviderFromURL(token, remoteURL)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, platform)
}

// MustProviderFromEnv is ProviderFromEnv that panics on error. For
// program setup where a missing provider is a configuration bug.
func MustProviderFromEnv(remoteURL string) Provider {
	p, err := ProviderFromEnv(remoteURL)
	if err != nil {
		panic(fmt.Sprintf("pr.ProviderFromEnv: %v", err))
	}
	return p
}
