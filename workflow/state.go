package workflow

import (
	"fmt"
	"time"

	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/marker"
	"github.com/clrke/ralphflow/plan"
)

// =============================================================================
// State - Full Pipeline State
// =============================================================================

// State is the complete state threaded through the stage nodes. The session
// itself lives in the lifecycle manager; State carries a snapshot plus the
// per-run artifacts each stage produces.
type State struct {
	// Identification
	SessionID string `json:"sessionId"`
	ProjectID string `json:"projectId"`
	FeatureID string `json:"featureId"`
	Title     string `json:"title"`

	// Workspace
	WorkDir string `json:"workDir,omitempty"`

	// Latest session snapshot; refreshed by each node.
	Session ralphflow.Session `json:"session"`

	// Stage artifacts
	RawOutput  string              `json:"rawOutput,omitempty"`
	Parsed     marker.ParsedOutput `json:"parsed,omitempty"`
	Plan       *plan.Plan          `json:"plan,omitempty"`
	Validation plan.Result         `json:"validation,omitempty"`

	// Rework tracking
	PlanAttempts int    `json:"planAttempts,omitempty"`
	Feedback     string `json:"feedback,omitempty"`

	// Review artifacts
	ReviewSummary   string `json:"reviewSummary,omitempty"`
	ApprovalSummary string `json:"approvalSummary,omitempty"`

	// Metrics
	TotalTokensIn  int       `json:"totalTokensIn"`
	TotalTokensOut int       `json:"totalTokensOut"`
	TotalCost      float64   `json:"totalCost"`
	StartTime      time.Time `json:"startTime"`

	// Error tracking
	Error string `json:"error,omitempty"`
}

// NewState creates pipeline state from a session snapshot.
func NewState(session ralphflow.Session) State {
	return State{
		SessionID: session.ID,
		ProjectID: session.ProjectID,
		FeatureID: session.FeatureID,
		Title:     session.Title,
		Session:   session,
		StartTime: time.Now(),
	}
}

// WithWorkDir sets the assistant's working directory.
func (s State) WithWorkDir(dir string) State {
	s.WorkDir = dir
	return s
}

// LockKey returns the session's admission-lock key.
func (s State) LockKey() ralphflow.LockKey {
	return ralphflow.LockKey{ProjectID: s.ProjectID, FeatureID: s.FeatureID}
}

// AddUsage accumulates token and cost metrics from an invocation.
func (s *State) AddUsage(result *ralphflow.InvokeResult) {
	if result == nil {
		return
	}
	s.TotalTokensIn += result.TokensIn
	s.TotalTokensOut += result.TokensOut
	s.TotalCost += result.Cost
}

// SetError records an error on the state.
func (s *State) SetError(err error) {
	if err != nil {
		s.Error = err.Error()
	}
}

// HasError returns true if state has an error.
func (s State) HasError() bool {
	return s.Error != ""
}

// =============================================================================
// State Validation
// =============================================================================

// StateRequirement defines a state prerequisite.
type StateRequirement string

const (
	RequireSession StateRequirement = "session"
	RequireOutput  StateRequirement = "output"
	RequirePlan    StateRequirement = "plan"
	RequirePR      StateRequirement = "pr"
)

// Validate checks if state has required fields.
func (s State) Validate(requirements ...StateRequirement) error {
	for _, req := range requirements {
		switch req {
		case RequireSession:
			if s.SessionID == "" {
				return fmt.Errorf("session required")
			}
		case RequireOutput:
			if s.RawOutput == "" {
				return fmt.Errorf("assistant output required")
			}
		case RequirePlan:
			if s.Plan == nil {
				return fmt.Errorf("plan required")
			}
		case RequirePR:
			if !s.Session.HasPR() {
				return fmt.Errorf("pull request required")
			}
		default:
			return fmt.Errorf("unknown requirement: %s", req)
		}
	}
	return nil
}

// Summary returns a human-readable summary of the state.
func (s State) Summary() string {
	status := string(s.Session.Status)
	if s.Error != "" {
		status = "failed"
	}
	return fmt.Sprintf("Session %s [%s]: %s (tokens: %d in, %d out, cost: $%.4f)",
		s.SessionID, status, s.Title,
		s.TotalTokensIn, s.TotalTokensOut, s.TotalCost)
}
