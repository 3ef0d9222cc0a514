package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveConfig writes configuration values back to the layer files.
// See DefaultSaveConfig for the ralphflow wiring.
type SaveConfig struct {
	// GlobalConfigDir names the directory under ~/.config/ for the
	// per-user file.
	GlobalConfigDir string

	// GlobalConfigFile overrides the per-user filename. Empty means
	// "config.yaml".
	GlobalConfigFile string

	// LocalConfigName is the per-repo filename at the repo root.
	LocalConfigName string

	// ValidGlobalKeys restricts which keys SaveGlobal accepts.
	ValidGlobalKeys []string

	// ValidLocalKeys restricts which keys SaveLocal accepts.
	ValidLocalKeys []string
}

func (c SaveConfig) globalConfigFile() string {
	if c.GlobalConfigFile != "" {
		return c.GlobalConfigFile
	}
	return "config.yaml"
}

func (c SaveConfig) globalPath() (string, error) {
	if c.GlobalConfigDir == "" {
		return "", fmt.Errorf("global config directory not configured")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", c.GlobalConfigDir, c.globalConfigFile()), nil
}

// SaveGlobal sets key in the per-user config file, creating it if needed.
func (c SaveConfig) SaveGlobal(key, value string) error {
	if len(c.ValidGlobalKeys) > 0 && !slices.Contains(c.ValidGlobalKeys, key) {
		return fmt.Errorf("unknown global config key: %s\n\nValid keys: %s",
			key, strings.Join(c.ValidGlobalKeys, ", "))
	}

	path, err := c.globalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	// Per-user config may hold secrets; keep it private.
	return upsertKey(path, key, value, 0o600)
}

// SaveLocal sets key in the per-repo config file at repoRoot.
func (c SaveConfig) SaveLocal(repoRoot, key, value string) error {
	if repoRoot == "" {
		return fmt.Errorf("repository root not found")
	}
	if c.LocalConfigName == "" {
		return fmt.Errorf("local config name not configured")
	}
	if len(c.ValidLocalKeys) > 0 && !slices.Contains(c.ValidLocalKeys, key) {
		return fmt.Errorf("unknown local config key: %s\n\nValid keys: %s",
			key, strings.Join(c.ValidLocalKeys, ", "))
	}

	// Per-repo config is committed and shared.
	return upsertKey(filepath.Join(repoRoot, c.LocalConfigName), key, value, 0o644)
}

// DeleteGlobalKey removes key from the per-user config file. Missing or
// unreadable files are left alone.
func (c SaveConfig) DeleteGlobalKey(key string) error {
	path, err := c.globalPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil // nothing to delete
	}
	var existing map[string]any
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil
	}

	delete(existing, key)

	data, err = yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// upsertKey rewrites the yaml file at path with key set to value.
// A malformed existing file is replaced rather than propagated.
func upsertKey(path, key, value string, perm os.FileMode) error {
	var existing map[string]any
	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, &existing)
	}
	if existing == nil {
		existing = make(map[string]any)
	}

	existing[key] = yamlScalar(value)

	data, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm) //nolint:gosec
}

// yamlScalar keeps booleans typed so the written file round-trips;
// everything else stays a string.
func yamlScalar(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
