package config

import (
	"fmt"
	"strconv"
	"time"
)

// AppName is the stem for config file and environment variable naming:
// RALPHFLOW_* env vars, ~/.config/ralphflow/config.yaml, .ralphflow.yaml.
const AppName = "ralphflow"

// Configuration keys.
const (
	KeyDataDir          = "data_dir"
	KeyAssistantBinary  = "assistant_binary"
	KeyAssistantModel   = "assistant_model"
	KeyAssistantTimeout = "assistant_timeout"
	KeyAssistantTurns   = "assistant_max_turns"
	KeyMaxPlanAttempts  = "max_plan_attempts"
	KeyAutoApprovePlans = "auto_approve_plans"
	KeyAutoMerge        = "auto_merge"
	KeyWebhookURL       = "webhook_url"
	KeyWebhookSecret    = "webhook_secret"
	KeySlackWebhookURL  = "slack_webhook_url"
	KeySlackChannel     = "slack_channel"
	KeyLogLevel         = "log_level"
)

// defaults are the built-in values for every key.
var defaults = map[string]string{
	KeyDataDir:          ".ralphflow/data",
	KeyAssistantBinary:  "claude",
	KeyAssistantModel:   "",
	KeyAssistantTimeout: "10m",
	KeyAssistantTurns:   "30",
	KeyMaxPlanAttempts:  "3",
	KeyAutoApprovePlans: "false",
	KeyAutoMerge:        "false",
	KeyWebhookURL:       "",
	KeyWebhookSecret:    "",
	KeySlackWebhookURL:  "",
	KeySlackChannel:     "",
	KeyLogLevel:         "info",
}

// globalKeys may be set in ~/.config/ralphflow/config.yaml. Secrets and
// machine-wide assistant settings belong here, not in the repo.
var globalKeys = []string{
	KeyDataDir,
	KeyAssistantBinary,
	KeyAssistantModel,
	KeyAssistantTimeout,
	KeyAssistantTurns,
	KeyWebhookURL,
	KeyWebhookSecret,
	KeySlackWebhookURL,
	KeySlackChannel,
	KeyLogLevel,
}

// localKeys may be set in .ralphflow.yaml at the git root; per-project
// workflow behavior only.
var localKeys = []string{
	KeyDataDir,
	KeyAssistantModel,
	KeyMaxPlanAttempts,
	KeyAutoApprovePlans,
	KeyAutoMerge,
	KeySlackChannel,
	KeyLogLevel,
}

// DefaultResolverConfig returns the resolver wiring for this application.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		EnvPrefix:       "RALPHFLOW_",
		GlobalConfigDir: AppName,
		LocalConfigName: "." + AppName + ".yaml",
		Defaults:        defaults,
		ValidGlobalKeys: globalKeys,
		ValidLocalKeys:  localKeys,
	}
}

// DefaultSaveConfig returns the save wiring matching DefaultResolverConfig.
func DefaultSaveConfig() SaveConfig {
	return SaveConfig{
		GlobalConfigDir: AppName,
		LocalConfigName: "." + AppName + ".yaml",
		ValidGlobalKeys: globalKeys,
		ValidLocalKeys:  localKeys,
	}
}

// Settings is the typed view of the resolved configuration.
type Settings struct {
	DataDir string

	AssistantBinary   string
	AssistantModel    string
	AssistantTimeout  time.Duration
	AssistantMaxTurns int

	MaxPlanAttempts  int
	AutoApprovePlans bool
	AutoMerge        bool

	WebhookURL      string
	WebhookSecret   string
	SlackWebhookURL string
	SlackChannel    string

	LogLevel string
}

// Load resolves configuration from all sources and parses it into Settings.
func Load() (*Settings, error) {
	return SettingsFrom(NewResolver(DefaultResolverConfig()).Resolve())
}

// SettingsFrom parses a resolved configuration into Settings.
func SettingsFrom(res *Resolved) (*Settings, error) {
	s := &Settings{
		DataDir:         res.Get(KeyDataDir),
		AssistantBinary: res.Get(KeyAssistantBinary),
		AssistantModel:  res.Get(KeyAssistantModel),
		WebhookURL:      res.Get(KeyWebhookURL),
		WebhookSecret:   res.Get(KeyWebhookSecret),
		SlackWebhookURL: res.Get(KeySlackWebhookURL),
		SlackChannel:    res.Get(KeySlackChannel),
		LogLevel:        res.Get(KeyLogLevel),
	}

	var err error
	if s.AssistantTimeout, err = time.ParseDuration(res.Get(KeyAssistantTimeout)); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyAssistantTimeout, err)
	}
	if s.AssistantMaxTurns, err = parsePositiveInt(KeyAssistantTurns, res.Get(KeyAssistantTurns)); err != nil {
		return nil, err
	}
	if s.MaxPlanAttempts, err = parsePositiveInt(KeyMaxPlanAttempts, res.Get(KeyMaxPlanAttempts)); err != nil {
		return nil, err
	}
	if s.AutoApprovePlans, err = parseBool(KeyAutoApprovePlans, res.Get(KeyAutoApprovePlans)); err != nil {
		return nil, err
	}
	if s.AutoMerge, err = parseBool(KeyAutoMerge, res.Get(KeyAutoMerge)); err != nil {
		return nil, err
	}
	return s, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be >= 1, got %d", key, n)
	}
	return n, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
