package config

import (
	"os"
	"slices"
	"testing"
	"time"
)

func TestSettings_Defaults(t *testing.T) {
	res := NewResolverWithPaths(DefaultResolverConfig(), "", "").Resolve()

	s, err := SettingsFrom(res)
	if err != nil {
		t.Fatalf("SettingsFrom: %v", err)
	}
	if s.AssistantBinary != "claude" {
		t.Errorf("AssistantBinary = %q, want claude", s.AssistantBinary)
	}
	if s.AssistantTimeout != 10*time.Minute {
		t.Errorf("AssistantTimeout = %v, want 10m", s.AssistantTimeout)
	}
	if s.AssistantMaxTurns != 30 || s.MaxPlanAttempts != 3 {
		t.Errorf("turns/attempts = %d/%d, want 30/3", s.AssistantMaxTurns, s.MaxPlanAttempts)
	}
	if s.AutoApprovePlans || s.AutoMerge {
		t.Error("unattended modes should default off")
	}
	if s.DataDir != ".ralphflow/data" {
		t.Errorf("DataDir = %q", s.DataDir)
	}
}

func TestSettings_EnvOverride(t *testing.T) {
	os.Setenv("RALPHFLOW_ASSISTANT_TIMEOUT", "30s")
	os.Setenv("RALPHFLOW_AUTO_MERGE", "true")
	defer os.Unsetenv("RALPHFLOW_ASSISTANT_TIMEOUT")
	defer os.Unsetenv("RALPHFLOW_AUTO_MERGE")

	res := NewResolverWithPaths(DefaultResolverConfig(), "", "").Resolve()
	s, err := SettingsFrom(res)
	if err != nil {
		t.Fatalf("SettingsFrom: %v", err)
	}
	if s.AssistantTimeout != 30*time.Second {
		t.Errorf("AssistantTimeout = %v, want 30s", s.AssistantTimeout)
	}
	if !s.AutoMerge {
		t.Error("AutoMerge should come from the environment")
	}
}

func TestSettings_BadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"RALPHFLOW_ASSISTANT_TIMEOUT", "soon"},
		{"RALPHFLOW_MAX_PLAN_ATTEMPTS", "zero"},
		{"RALPHFLOW_MAX_PLAN_ATTEMPTS", "0"},
		{"RALPHFLOW_AUTO_APPROVE_PLANS", "yep"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			os.Setenv(tt.key, tt.value)
			defer os.Unsetenv(tt.key)

			res := NewResolverWithPaths(DefaultResolverConfig(), "", "").Resolve()
			if _, err := SettingsFrom(res); err == nil {
				t.Errorf("want parse error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestDefaultResolverConfig(t *testing.T) {
	cfg := DefaultResolverConfig()
	if cfg.EnvPrefix != "RALPHFLOW_" {
		t.Errorf("EnvPrefix = %q", cfg.EnvPrefix)
	}
	if cfg.GlobalConfigDir != "ralphflow" || cfg.LocalConfigName != ".ralphflow.yaml" {
		t.Errorf("paths = %q/%q", cfg.GlobalConfigDir, cfg.LocalConfigName)
	}
	for _, key := range []string{KeyWebhookSecret, KeyAssistantBinary} {
		if !slices.Contains(cfg.ValidGlobalKeys, key) {
			t.Errorf("global keys missing %s", key)
		}
	}
	// Secrets never come from the repo-local file.
	if slices.Contains(cfg.ValidLocalKeys, KeyWebhookSecret) {
		t.Error("webhook_secret must not be a local key")
	}
}
