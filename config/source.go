package config

// Source indicates which layer a resolved value came from.
type Source string

const (
	// SourceDefault is a built-in default.
	SourceDefault Source = "default"

	// SourceGlobal is the per-user file, ~/.config/ralphflow/config.yaml.
	SourceGlobal Source = "global"

	// SourceLocal is the per-repo file, .ralphflow.yaml at the repo root.
	SourceLocal Source = "local"

	// SourceEnv is a RALPHFLOW_* environment variable.
	SourceEnv Source = "env"

	// SourceOverride is a caller-supplied override (see ResolveWithOverrides).
	SourceOverride Source = "override"
)
