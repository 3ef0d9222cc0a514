package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func readSaved(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var saved map[string]any
	if err := yaml.Unmarshal(data, &saved); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return saved
}

func TestSaveConfig_SaveGlobal(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	cfg := SaveConfig{
		GlobalConfigDir: AppName,
		ValidGlobalKeys: []string{KeyAssistantBinary, KeyWebhookSecret},
	}
	configPath := filepath.Join(tmpHome, ".config", AppName, "config.yaml")

	t.Run("creates config file", func(t *testing.T) {
		if err := cfg.SaveGlobal(KeyAssistantBinary, "/usr/local/bin/claude"); err != nil {
			t.Fatalf("SaveGlobal() error = %v", err)
		}
		saved := readSaved(t, configPath)
		if saved[KeyAssistantBinary] != "/usr/local/bin/claude" {
			t.Errorf("assistant_binary = %v, want /usr/local/bin/claude", saved[KeyAssistantBinary])
		}
	})

	t.Run("updates keep existing keys", func(t *testing.T) {
		if err := cfg.SaveGlobal(KeyWebhookSecret, "s3cret"); err != nil {
			t.Fatalf("SaveGlobal() error = %v", err)
		}
		saved := readSaved(t, configPath)
		if saved[KeyAssistantBinary] != "/usr/local/bin/claude" {
			t.Errorf("assistant_binary = %v, want /usr/local/bin/claude", saved[KeyAssistantBinary])
		}
		if saved[KeyWebhookSecret] != "s3cret" {
			t.Errorf("webhook_secret = %v, want s3cret", saved[KeyWebhookSecret])
		}
	})

	t.Run("rejects unknown key", func(t *testing.T) {
		err := cfg.SaveGlobal("not_a_key", "value")
		if err == nil {
			t.Fatal("expected error for unknown key")
		}
		if !strings.Contains(err.Error(), "unknown global config key") {
			t.Errorf("error = %v, want to mention unknown global config key", err)
		}
	})

	t.Run("requires a config dir", func(t *testing.T) {
		if err := (SaveConfig{}).SaveGlobal("key", "value"); err == nil {
			t.Error("expected error when GlobalConfigDir not set")
		}
	})

	t.Run("no key list allows anything", func(t *testing.T) {
		open := SaveConfig{GlobalConfigDir: "openapp"}
		if err := open.SaveGlobal("any_key", "any_value"); err != nil {
			t.Fatalf("SaveGlobal() error = %v", err)
		}
	})

	t.Run("custom filename", func(t *testing.T) {
		custom := SaveConfig{GlobalConfigDir: "customapp", GlobalConfigFile: "settings.yaml"}
		if err := custom.SaveGlobal("key", "value"); err != nil {
			t.Fatalf("SaveGlobal() error = %v", err)
		}
		path := filepath.Join(tmpHome, ".config", "customapp", "settings.yaml")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected settings.yaml to exist: %v", err)
		}
	})
}

func TestSaveConfig_SaveLocal(t *testing.T) {
	cfg := SaveConfig{
		LocalConfigName: ".ralphflow.yaml",
		ValidLocalKeys:  []string{KeyAutoMerge, KeyMaxPlanAttempts},
	}

	t.Run("creates repo config", func(t *testing.T) {
		repo := t.TempDir()
		if err := cfg.SaveLocal(repo, KeyAutoMerge, "true"); err != nil {
			t.Fatalf("SaveLocal() error = %v", err)
		}
		saved := readSaved(t, filepath.Join(repo, ".ralphflow.yaml"))
		if saved[KeyAutoMerge] != true {
			t.Errorf("auto_merge = %v (%T), want true bool", saved[KeyAutoMerge], saved[KeyAutoMerge])
		}
	})

	t.Run("updates keep existing keys", func(t *testing.T) {
		repo := t.TempDir()
		if err := cfg.SaveLocal(repo, KeyAutoMerge, "true"); err != nil {
			t.Fatalf("SaveLocal() error = %v", err)
		}
		if err := cfg.SaveLocal(repo, KeyMaxPlanAttempts, "5"); err != nil {
			t.Fatalf("SaveLocal() error = %v", err)
		}
		saved := readSaved(t, filepath.Join(repo, ".ralphflow.yaml"))
		if saved[KeyAutoMerge] != true {
			t.Errorf("auto_merge = %v, want true", saved[KeyAutoMerge])
		}
		if saved[KeyMaxPlanAttempts] != "5" {
			t.Errorf("max_plan_attempts = %v, want %q", saved[KeyMaxPlanAttempts], "5")
		}
	})

	t.Run("rejects unknown key", func(t *testing.T) {
		err := cfg.SaveLocal(t.TempDir(), KeyWebhookSecret, "s3cret")
		if err == nil {
			t.Fatal("expected error for unknown key")
		}
		if !strings.Contains(err.Error(), "unknown local config key") {
			t.Errorf("error = %v, want to mention unknown local config key", err)
		}
	})

	t.Run("requires repo root", func(t *testing.T) {
		if err := cfg.SaveLocal("", KeyAutoMerge, "true"); err == nil {
			t.Error("expected error for empty repo root")
		}
	})

	t.Run("requires a config name", func(t *testing.T) {
		if err := (SaveConfig{}).SaveLocal(t.TempDir(), "key", "value"); err == nil {
			t.Error("expected error when LocalConfigName not set")
		}
	})
}

func TestSaveConfig_DeleteGlobalKey(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	cfg := SaveConfig{GlobalConfigDir: AppName}
	configPath := filepath.Join(tmpHome, ".config", AppName, "config.yaml")

	t.Run("deletes one key and keeps the rest", func(t *testing.T) {
		if err := cfg.SaveGlobal(KeyWebhookURL, "https://hooks.example.com"); err != nil {
			t.Fatalf("SaveGlobal() error = %v", err)
		}
		if err := cfg.SaveGlobal(KeyWebhookSecret, "s3cret"); err != nil {
			t.Fatalf("SaveGlobal() error = %v", err)
		}

		if err := cfg.DeleteGlobalKey(KeyWebhookSecret); err != nil {
			t.Fatalf("DeleteGlobalKey() error = %v", err)
		}

		saved := readSaved(t, configPath)
		if _, exists := saved[KeyWebhookSecret]; exists {
			t.Error("webhook_secret should have been deleted")
		}
		if saved[KeyWebhookURL] != "https://hooks.example.com" {
			t.Errorf("webhook_url = %v, want https://hooks.example.com", saved[KeyWebhookURL])
		}
	})

	t.Run("missing file is a no-op", func(t *testing.T) {
		absent := SaveConfig{GlobalConfigDir: "neverwritten"}
		if err := absent.DeleteGlobalKey("any_key"); err != nil {
			t.Errorf("DeleteGlobalKey() error = %v, want nil", err)
		}
	})

	t.Run("requires a config dir", func(t *testing.T) {
		if err := (SaveConfig{}).DeleteGlobalKey("key"); err == nil {
			t.Error("expected error when GlobalConfigDir not set")
		}
	})
}

func TestSaveConfig_OverwritesMalformedFile(t *testing.T) {
	repo := t.TempDir()
	path := filepath.Join(repo, ".ralphflow.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: [[["), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := SaveConfig{LocalConfigName: ".ralphflow.yaml"}
	if err := cfg.SaveLocal(repo, "key", "value"); err != nil {
		t.Fatalf("SaveLocal() error = %v", err)
	}

	saved := readSaved(t, path)
	if saved["key"] != "value" {
		t.Errorf("key = %v, want value", saved["key"])
	}
}

func TestYamlScalar(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"true", true},
		{"True", true},
		{"FALSE", false},
		{"false", false},
		{"hello", "hello"},
		{"123", "123"}, // numbers stay strings
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := yamlScalar(tt.input); got != tt.want {
				t.Errorf("yamlScalar(%q) = %v (%T), want %v (%T)",
					tt.input, got, got, tt.want, tt.want)
			}
		})
	}
}
