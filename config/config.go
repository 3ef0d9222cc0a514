package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolverConfig wires the layered resolver for an application.
// See DefaultResolverConfig for the ralphflow wiring.
type ResolverConfig struct {
	// EnvPrefix is prepended to upper-cased key names for environment
	// lookup: with prefix "RALPHFLOW_", key "data_dir" reads RALPHFLOW_DATA_DIR.
	EnvPrefix string

	// GlobalConfigDir names the directory under ~/.config/ holding the
	// per-user config file.
	GlobalConfigDir string

	// GlobalConfigFile overrides the per-user filename. Empty means
	// "config.yaml".
	GlobalConfigFile string

	// LocalConfigName is the per-repo filename looked up at the repo root,
	// e.g. ".ralphflow.yaml".
	LocalConfigName string

	// Defaults holds the built-in value for every known key.
	Defaults map[string]string

	// ValidGlobalKeys restricts which keys the per-user file may set.
	// Empty means no restriction.
	ValidGlobalKeys []string

	// ValidLocalKeys restricts which keys the per-repo file may set.
	// Empty means no restriction.
	ValidLocalKeys []string

	// RepoRootFinder locates the repository root for per-repo config.
	// Nil falls back to walking up from the working directory looking
	// for a .git entry.
	RepoRootFinder func(startDir string) (string, error)

	// Logger receives warnings about unreadable config files.
	// Nil means slog.Default().
	Logger *slog.Logger
}

func (c ResolverConfig) globalConfigFile() string {
	if c.GlobalConfigFile != "" {
		return c.GlobalConfigFile
	}
	return "config.yaml"
}

// Resolver merges configuration layers into a Resolved view.
type Resolver struct {
	config     ResolverConfig
	logger     *slog.Logger
	globalPath string
	localPath  string
	repoRoot   string

	// Warnings collects non-fatal issues hit during resolution.
	Warnings []string
}

// NewResolver builds a resolver, locating the per-user and per-repo
// config files from the environment.
func NewResolver(cfg ResolverConfig) *Resolver {
	r := &Resolver{config: cfg, logger: cfg.Logger}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	root := ""
	if cfg.RepoRootFinder != nil {
		if found, err := cfg.RepoRootFinder("."); err == nil {
			root = found
		}
	} else {
		root = findRepoRoot(".")
	}
	if root != "" {
		r.repoRoot = root
		if cfg.LocalConfigName != "" {
			r.localPath = filepath.Join(root, cfg.LocalConfigName)
		}
	}

	if cfg.GlobalConfigDir != "" {
		if home, err := os.UserHomeDir(); err == nil {
			r.globalPath = filepath.Join(home, ".config", cfg.GlobalConfigDir, cfg.globalConfigFile())
		}
	}

	return r
}

// NewResolverWithPaths builds a resolver with explicit file paths,
// skipping home-directory and repo-root discovery. Empty paths disable
// the corresponding layer.
func NewResolverWithPaths(cfg ResolverConfig, globalPath, localPath string) *Resolver {
	r := &Resolver{
		config:     cfg,
		logger:     cfg.Logger,
		globalPath: globalPath,
		localPath:  localPath,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	r.logger.Warn("config", "message", msg)
}

// Resolved is the merged configuration with per-key provenance.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

func (c *Resolved) set(key, value string, src Source) {
	c.values[key] = value
	c.sources[key] = src
}

// Get returns the value for key, or "" when unset.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source reports which layer supplied key's value.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// GetWithSource returns the value and the layer that supplied it.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	return c.values[key], c.sources[key]
}

// All returns a copy of every key-value pair.
func (c *Resolved) All() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Keys returns every known key, sorted.
func (c *Resolved) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Resolve merges the layers. Precedence, lowest to highest:
// defaults, per-user file, per-repo file, environment.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	for key, value := range r.config.Defaults {
		cfg.set(key, value, SourceDefault)
	}
	r.applyFile(cfg, r.globalPath, r.config.ValidGlobalKeys, SourceGlobal)
	r.applyFile(cfg, r.localPath, r.config.ValidLocalKeys, SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithOverrides resolves the layers and then applies caller
// overrides on top. Empty override values are ignored.
func (r *Resolver) ResolveWithOverrides(overrides map[string]string) *Resolved {
	cfg := r.Resolve()
	for key, value := range overrides {
		if value != "" {
			cfg.set(key, value, SourceOverride)
		}
	}
	return cfg
}

func (r *Resolver) applyFile(cfg *Resolved, path string, validKeys []string, src Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return // absent file is not an error
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if len(validKeys) > 0 && !slices.Contains(validKeys, key) {
			continue
		}
		if s := stringify(value); s != "" {
			cfg.set(key, s, src)
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	if r.config.EnvPrefix == "" {
		return
	}

	known := make(map[string]bool)
	for k := range r.config.Defaults {
		known[k] = true
	}
	for k := range cfg.values {
		known[k] = true
	}

	for key := range known {
		envKey := r.config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if value := os.Getenv(envKey); value != "" {
			cfg.set(key, value, SourceEnv)
		}
	}
}

// RepoRoot returns the detected repository root, if any.
func (r *Resolver) RepoRoot() string {
	return r.repoRoot
}

// GlobalPath returns the per-user config file path.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the per-repo config file path.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findRepoRoot walks up from startDir looking for a .git entry.
func findRepoRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
