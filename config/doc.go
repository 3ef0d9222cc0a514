// Package config provides hierarchical configuration resolution.
//
// Values merge from four layers with clear precedence:
//  1. Environment variables (highest priority)
//  2. Local config (.ralphflow.yaml in the git root)
//  3. Global config (~/.config/ralphflow/config.yaml)
//  4. Built-in defaults (lowest priority)
//
// # Basic Usage
//
// Load resolves everything into a typed Settings value:
//
//	settings, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(settings.AssistantBinary) // "claude"
//
// For lower-level access, use the resolver directly:
//
//	cfg := config.NewResolver(config.DefaultResolverConfig()).Resolve()
//	fmt.Println(cfg.Get(config.KeyDataDir))    // ".ralphflow/data"
//	fmt.Println(cfg.Source(config.KeyDataDir)) // "default"
//
// # Environment Variables
//
// Environment variables use the RALPHFLOW_ prefix:
//
//	RALPHFLOW_ASSISTANT_MODEL=opus    # sets "assistant_model"
//	RALPHFLOW_AUTO_MERGE=true         # sets "auto_merge"
//
// # Key Scoping
//
// Secrets and machine-wide assistant settings are global-only; the
// repo-local file accepts per-project workflow behavior (plan attempt
// budget, unattended modes). SaveGlobal and SaveLocal enforce the split.
//
// Each resolved value tracks its source: "default", "global", "local",
// "env", or "override".
package config
