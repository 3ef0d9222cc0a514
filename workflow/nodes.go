package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/marker"
	"github.com/clrke/ralphflow/notify"
	"github.com/clrke/ralphflow/task"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// =============================================================================
// Node Types
// =============================================================================

// NodeFunc is a function that processes state and returns updated state.
// This signature is compatible with flowgraph's NodeFunc[State].
type NodeFunc func(ctx flowgraph.Context, state State) (State, error)

// NodeConfig configures node behavior.
type NodeConfig struct {
	MaxPlanAttempts  int      // Max plan validation/rework cycles (default: 3)
	AutoApprovePlans bool     // Approve valid plans without a human (unattended runs)
	AutoMerge        bool     // Resolve final approval as merge (unattended runs)
	Reviewers        []string // Requested on PR creation and re-requested after review
}

// DefaultNodeConfig returns sensible defaults.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		MaxPlanAttempts: 3,
	}
}

const nodeConfigKey serviceContextKey = "ralphflow.nodeconfig"

// WithNodeConfig adds node configuration to the context.
func WithNodeConfig(ctx context.Context, cfg NodeConfig) context.Context {
	return context.WithValue(ctx, nodeConfigKey, cfg)
}

// nodeConfigFrom extracts node configuration, falling back to defaults.
func nodeConfigFrom(ctx context.Context) NodeConfig {
	if cfg, ok := ctx.Value(nodeConfigKey).(NodeConfig); ok {
		if cfg.MaxPlanAttempts <= 0 {
			cfg.MaxPlanAttempts = 3
		}
		return cfg
	}
	return DefaultNodeConfig()
}

// =============================================================================
// Node Wrappers
// =============================================================================

// WithRetry wraps a node with retry logic.
func WithRetry(node NodeFunc, maxRetries int) NodeFunc {
	return func(ctx flowgraph.Context, state State) (State, error) {
		var lastErr error
		for i := 0; i < maxRetries; i++ {
			result, err := node(ctx, state)
			if err == nil {
				return result, nil
			}
			lastErr = err
		}
		return state, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
	}
}

// WithTiming wraps a node with timing metrics.
func WithTiming(node NodeFunc) NodeFunc {
	return func(ctx flowgraph.Context, state State) (State, error) {
		start := time.Now()
		result, err := node(ctx, state)
		duration := time.Since(start)
		slog.Debug("node execution completed", "sessionId", state.SessionID, "duration", duration)
		return result, err
	}
}

// =============================================================================
// Shared Invocation Path
// =============================================================================

// invokeStage renders a stage prompt and runs the assistant under the
// session's admission lock. Only one invocation may be in flight per
// session; a held lock surfaces as ErrLockHeld immediately.
func invokeStage(ctx flowgraph.Context, state State, stage ralphflow.Stage, promptName string, vars map[string]any) (State, error) {
	loader := PromptsFrom(ctx)
	if loader == nil {
		return state, fmt.Errorf("prompt.Loader not found in context")
	}
	assistant := AssistantFrom(ctx)
	if assistant == nil {
		return state, fmt.Errorf("assistant not found in context")
	}
	lifecycle := LifecycleFrom(ctx)
	if lifecycle == nil {
		return state, fmt.Errorf("lifecycle not found in context")
	}

	text, err := loader.LoadWithVars(promptName, vars)
	if err != nil {
		return state, fmt.Errorf("load %s prompt: %w", promptName, err)
	}

	var result *ralphflow.InvokeResult
	err = lifecycle.Locks().WithLock(state.LockKey(), stage, func() error {
		var invokeErr error
		opts := []ralphflow.InvokeOption{
			ralphflow.WithModel(string(task.SelectModel(taskForStage(stage)))),
		}
		if state.WorkDir != "" {
			opts = append(opts, ralphflow.WithWorkDir(state.WorkDir))
		}
		result, invokeErr = assistant.Invoke(ctx, text, opts...)
		return invokeErr
	})
	if err != nil {
		state.SetError(err)
		return state, err
	}

	state.AddUsage(result)
	state.RawOutput = result.Output
	state.Parsed = marker.Parse(result.Output)

	if broadcaster := notify.BroadcasterFromContext(ctx); broadcaster != nil {
		severity := notify.SeverityInfo
		if result.Outcome != ralphflow.OutcomeSuccess {
			severity = notify.SeverityWarning
		}
		broadcaster.Broadcast(ctx, notify.Event{
			Type:      notify.EventExecutionStatus,
			Channel:   notify.Channel{ProjectID: state.ProjectID, FeatureID: state.FeatureID},
			SessionID: state.SessionID,
			Message:   fmt.Sprintf("assistant run %s", result.Outcome),
			Severity:  severity,
			Payload: map[string]any{
				"stage":     int(stage),
				"outcome":   string(result.Outcome),
				"tokensIn":  result.TokensIn,
				"tokensOut": result.TokensOut,
			},
		})
	}

	// Timeouts and exit failures still parsed whatever text accumulated;
	// the caller decides whether that is enough to proceed.
	if result.Outcome != ralphflow.OutcomeSuccess {
		err := fmt.Errorf("assistant invocation ended with %s", result.Outcome)
		state.SetError(err)
		return state, err
	}

	return state, nil
}

// taskForStage maps a pipeline stage to the kind of work it asks of the
// assistant, which drives model selection.
func taskForStage(stage ralphflow.Stage) task.Type {
	switch stage {
	case ralphflow.StageDiscovery:
		return task.Discover
	case ralphflow.StagePlanning:
		return task.Plan
	case ralphflow.StagePRCreation:
		return task.DraftPR
	case ralphflow.StagePRReview:
		return task.Review
	case ralphflow.StageFinalApproval:
		return task.Summarize
	default:
		return task.Implement
	}
}

// refreshSession replaces the state's session snapshot.
func refreshSession(state State, session *ralphflow.Session) State {
	if session != nil {
		state.Session = *session
	}
	return state
}
