package ralphflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Assistant CLI errors
var (
	// ErrAssistantNotFound indicates the assistant CLI binary was not found.
	ErrAssistantNotFound = errors.New("assistant CLI not found")
)

// Outcome classifies how an assistant invocation ended. Only OutcomeSuccess
// output is considered authoritative; everything else degrades to whatever
// text accumulated before the failure.
type Outcome string

// Invocation outcomes.
const (
	OutcomeSuccess    Outcome = "success"
	OutcomeExitError  Outcome = "exit_error"
	OutcomeSpawnError Outcome = "spawn_error"
	OutcomeTimeout    Outcome = "timeout"
)

// AssistantCLI wraps the external assistant binary. The lifecycle invokes it
// with a stage prompt and working directory; the accumulated output text is
// all the caller ever consumes, via marker extraction.
type AssistantCLI struct {
	binaryPath string        // Path to assistant binary
	model      string        // Default model (empty = binary default)
	timeout    time.Duration // Default timeout
	maxTurns   int           // Default max conversation turns
}

// AssistantConfig configures the assistant CLI wrapper.
type AssistantConfig struct {
	BinaryPath string        // Path to assistant binary (default: "claude")
	Model      string        // Default model (empty = binary default)
	Timeout    time.Duration // Default timeout (default: 10m)
	MaxTurns   int           // Default max turns (default: 30)
}

// NewAssistantCLI creates a new assistant CLI wrapper.
// Returns ErrAssistantNotFound if the binary is not installed.
func NewAssistantCLI(cfg AssistantConfig) (*AssistantCLI, error) {
	binaryPath := cfg.BinaryPath
	if binaryPath == "" {
		binaryPath = "claude"
	}

	if _, err := exec.LookPath(binaryPath); err != nil {
		return nil, ErrAssistantNotFound
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}

	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = 30
	}

	return &AssistantCLI{
		binaryPath: binaryPath,
		model:      cfg.Model,
		timeout:    timeout,
		maxTurns:   maxTurns,
	}, nil
}

// InvokeResult contains the output from one assistant invocation.
type InvokeResult struct {
	Output    string        // Accumulated output text
	Outcome   Outcome       // How the invocation ended
	ExitCode  int           // Process exit code
	TokensIn  int           // Input tokens consumed
	TokensOut int           // Output tokens generated
	Cost      float64       // Cost in USD
	SessionID string        // Assistant-side session (for multi-turn resume)
	Duration  time.Duration // Execution time
}

// invokeConfig holds configuration for a single invocation.
type invokeConfig struct {
	systemPrompt string
	workDir      string
	maxTurns     int
	timeout      time.Duration
	model        string
	sessionID    string // Resume session
}

// InvokeOption configures an Invoke call.
type InvokeOption func(*invokeConfig)

// WithSystemPrompt sets the system prompt for the invocation.
func WithSystemPrompt(prompt string) InvokeOption {
	return func(cfg *invokeConfig) {
		cfg.systemPrompt = prompt
	}
}

// WithWorkDir sets the working directory for the assistant process.
func WithWorkDir(dir string) InvokeOption {
	return func(cfg *invokeConfig) {
		cfg.workDir = dir
	}
}

// WithMaxTurns limits the number of conversation turns.
func WithMaxTurns(n int) InvokeOption {
	return func(cfg *invokeConfig) {
		cfg.maxTurns = n
	}
}

// WithTimeout sets the timeout for this invocation.
func WithTimeout(d time.Duration) InvokeOption {
	return func(cfg *invokeConfig) {
		cfg.timeout = d
	}
}

// WithModel specifies the model for this invocation.
func WithModel(model string) InvokeOption {
	return func(cfg *invokeConfig) {
		cfg.model = model
	}
}

// WithSession resumes a previous assistant session.
func WithSession(sessionID string) InvokeOption {
	return func(cfg *invokeConfig) {
		cfg.sessionID = sessionID
	}
}

// Invoke runs the assistant with the given prompt and options. Process
// failures do not surface as errors; they classify the result's Outcome so
// callers can fall back conservatively. The error return covers only
// pre-spawn problems.
func (a *AssistantCLI) Invoke(ctx context.Context, prompt string, opts ...InvokeOption) (*InvokeResult, error) {
	cfg := &invokeConfig{
		timeout:  a.timeout,
		maxTurns: a.maxTurns,
		model:    a.model,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	args := a.buildArgs(cfg, prompt)

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.binaryPath, args...)
	if cfg.workDir != "" {
		cmd.Dir = cfg.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &InvokeResult{
		Outcome:  OutcomeSuccess,
		Duration: duration,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		result.Output = strings.TrimSpace(stdout.String())
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			result.Outcome = OutcomeTimeout
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, ctx.Err()
		default:
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				result.Outcome = OutcomeExitError
			} else {
				result.Outcome = OutcomeSpawnError
			}
		}
		return result, nil
	}

	if parsed, err := parseAssistantOutput(stdout.Bytes()); err == nil {
		parsed.Outcome = OutcomeSuccess
		parsed.ExitCode = result.ExitCode
		parsed.Duration = duration
		return parsed, nil
	}

	// Fallback to raw output
	result.Output = strings.TrimSpace(stdout.String())
	return result, nil
}

// buildArgs constructs command line arguments for the assistant CLI.
func (a *AssistantCLI) buildArgs(cfg *invokeConfig, prompt string) []string {
	args := []string{"--print", "--output-format", "json"}

	if cfg.model != "" {
		args = append(args, "--model", cfg.model)
	}
	if cfg.systemPrompt != "" {
		args = append(args, "--system-prompt", cfg.systemPrompt)
	}
	if cfg.maxTurns > 0 {
		args = append(args, "--max-turns", fmt.Sprintf("%d", cfg.maxTurns))
	}
	if cfg.sessionID != "" {
		args = append(args, "--resume", cfg.sessionID)
	}

	args = append(args, "-p", prompt)

	return args
}

// assistantJSONOutput represents the JSON output from the assistant CLI.
type assistantJSONOutput struct {
	Result       string  `json:"result"`
	TokensIn     int     `json:"tokens_in"`
	TokensOut    int     `json:"tokens_out"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	CostUSD      float64 `json:"cost_usd"`
	SessionID    string  `json:"session_id"`
}

// parseAssistantOutput parses the JSON envelope from the assistant CLI.
func parseAssistantOutput(data []byte) (*InvokeResult, error) {
	data = bytes.TrimSpace(data)

	// The JSON object may be surrounded by stray output.
	var output assistantJSONOutput
	if err := json.Unmarshal(data, &output); err != nil {
		start := bytes.Index(data, []byte("{"))
		end := bytes.LastIndex(data, []byte("}"))
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no json found in output")
		}
		if err := json.Unmarshal(data[start:end+1], &output); err != nil {
			return nil, fmt.Errorf("parse json output: %w", err)
		}
	}

	// Field names vary across CLI versions.
	tokensIn := output.TokensIn
	if tokensIn == 0 {
		tokensIn = output.InputTokens
	}
	tokensOut := output.TokensOut
	if tokensOut == 0 {
		tokensOut = output.OutputTokens
	}
	cost := output.Cost
	if cost == 0 {
		cost = output.CostUSD
	}

	return &InvokeResult{
		Output:    output.Result,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		Cost:      cost,
		SessionID: output.SessionID,
	}, nil
}

// BinaryPath returns the path to the assistant binary.
func (a *AssistantCLI) BinaryPath() string {
	return a.binaryPath
}

// DefaultTimeout returns the default timeout.
func (a *AssistantCLI) DefaultTimeout() time.Duration {
	return a.timeout
}
