package pr

import (
	"strings"
	"testing"
)

// clearTokens blanks every token env var so each case starts clean.
func clearTokens(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GITHUB_TOKEN", "GITLAB_TOKEN", "GIT_TOKEN"} {
		t.Setenv(name, "")
	}
}

func TestProviderFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		env     map[string]string
		wantErr string
	}{
		{
			name: "github token",
			url:  "https://github.com/clrke/ralphflow.git",
			env:  map[string]string{"GITHUB_TOKEN": "tok"},
		},
		{
			name: "github via shared fallback",
			url:  "https://github.com/clrke/ralphflow.git",
			env:  map[string]string{"GIT_TOKEN": "tok"},
		},
		{
			name:    "github no token",
			url:     "https://github.com/clrke/ralphflow.git",
			wantErr: "GITHUB_TOKEN",
		},
		{
			name: "gitlab token",
			url:  "https://gitlab.com/clrke/ralphflow.git",
			env:  map[string]string{"GITLAB_TOKEN": "tok"},
		},
		{
			name: "gitlab via shared fallback",
			url:  "https://gitlab.com/clrke/ralphflow.git",
			env:  map[string]string{"GIT_TOKEN": "tok"},
		},
		{
			name:    "gitlab no token",
			url:     "https://gitlab.com/clrke/ralphflow.git",
			wantErr: "GITLAB_TOKEN",
		},
		{
			name:    "unknown host",
			url:     "https://example.com/clrke/ralphflow.git",
			wantErr: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTokens(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			p, err := ProviderFromEnv(tt.url)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ProviderFromEnv(%q) error = nil, want containing %q", tt.url, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProviderFromEnv(%q) error = %v", tt.url, err)
			}
			if p == nil {
				t.Error("provider is nil")
			}
		})
	}
}

func TestProviderFromEnvWithToken(t *testing.T) {
	clearTokens(t)

	if _, err := ProviderFromEnvWithToken("https://github.com/clrke/ralphflow.git", "tok"); err != nil {
		t.Errorf("github: error = %v", err)
	}
	if _, err := ProviderFromEnvWithToken("https://gitlab.com/clrke/ralphflow.git", "tok"); err != nil {
		t.Errorf("gitlab: error = %v", err)
	}
	if _, err := ProviderFromEnvWithToken("https://example.com/clrke/ralphflow.git", "tok"); err == nil {
		t.Error("unknown host: error = nil, want error")
	}
}

func TestMustProviderFromEnv(t *testing.T) {
	clearTokens(t)
	t.Setenv("GITHUB_TOKEN", "tok")

	if p := MustProviderFromEnv("https://github.com/clrke/ralphflow.git"); p == nil {
		t.Error("provider is nil")
	}
}

func TestMustProviderFromEnv_Panics(t *testing.T) {
	clearTokens(t)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for missing token")
		}
	}()
	MustProviderFromEnv("https://github.com/clrke/ralphflow.git")
}
