package ralphflow

import (
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// Stages and Statuses
// =============================================================================

// Stage is a numbered pipeline phase. Stages are tracked independently of
// Status so queued and paused sessions remember where they resume.
type Stage int

// The seven pipeline stages.
const (
	StageDiscovery Stage = iota + 1
	StagePlanning
	StageImplementing
	StagePRCreation
	StagePRReview
	StageFinalApproval
	StageCompleted
)

// Valid reports whether s is one of the seven pipeline stages.
func (s Stage) Valid() bool {
	return s >= StageDiscovery && s <= StageCompleted
}

func (s Stage) String() string {
	if status, ok := stageStatus[s]; ok {
		return fmt.Sprintf("%d (%s)", int(s), status)
	}
	return fmt.Sprintf("%d", int(s))
}

// Status is the lifecycle state of a session.
type Status string

// Session statuses.
const (
	StatusQueued        Status = "queued"
	StatusDiscovery     Status = "discovery"
	StatusPlanning      Status = "planning"
	StatusImplementing  Status = "implementing"
	StatusPRCreation    Status = "pr_creation"
	StatusPRReview      Status = "pr_review"
	StatusFinalApproval Status = "final_approval"
	StatusCompleted     Status = "completed"
	StatusPaused        Status = "paused"
	StatusFailed        Status = "failed"
)

var stageStatus = map[Stage]Status{
	StageDiscovery:     StatusDiscovery,
	StagePlanning:      StatusPlanning,
	StageImplementing:  StatusImplementing,
	StagePRCreation:    StatusPRCreation,
	StagePRReview:      StatusPRReview,
	StageFinalApproval: StatusFinalApproval,
	StageCompleted:     StatusCompleted,
}

// StatusForStage maps a pipeline stage to the status an active session at
// that stage carries. Used when promoting or resuming a session whose stage
// was preserved while it sat queued or paused.
func StatusForStage(s Stage) Status {
	if status, ok := stageStatus[s]; ok {
		return status
	}
	return StatusDiscovery
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether a session in this status occupies the project's
// single active slot. Queued, paused, and terminal sessions do not.
func (s Status) Active() bool {
	switch s {
	case StatusQueued, StatusPaused, StatusCompleted, StatusFailed:
		return false
	default:
		return true
	}
}

// =============================================================================
// Session
// =============================================================================

// Session is one feature-development workflow instance tracked through the
// seven pipeline stages. Sessions are never hard-deleted; terminal sessions
// stay in the registry.
type Session struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	FeatureID   string `json:"featureId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Status       Status `json:"status"`
	CurrentStage Stage  `json:"currentStage"`

	// QueuePosition is meaningful only while Status is queued; queued
	// sessions of one project always form a dense 1..N sequence.
	QueuePosition int `json:"queuePosition,omitempty"`

	// DataVersion is the optimistic-concurrency counter; every mutation
	// increments it, and edits must supply the version they read.
	DataVersion int `json:"dataVersion"`

	BackoutReason    string    `json:"backoutReason,omitempty"`
	BackoutTimestamp time.Time `json:"backoutTimestamp,omitempty"`

	// PlanApproved mirrors the approved flag on the session's plan so
	// the stage-3 gate needs no plan document load.
	PlanApproved bool `json:"planApproved,omitempty"`

	// PlanModified is set when a final-approval review sends the session
	// back to planning; PlanFeedback carries the reviewer's notes.
	PlanModified bool   `json:"planModified,omitempty"`
	PlanFeedback string `json:"planFeedback,omitempty"`

	// PR artifact from the pr_creation stage.
	PRNumber int    `json:"prNumber,omitempty"`
	PRURL    string `json:"prUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// newSessionID generates a session id.
func newSessionID() string {
	id, err := nanoid.New()
	if err != nil {
		// Entropy failure; fall back to a timestamp id.
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return "sess-" + id
}

// Active reports whether this session holds its project's active slot.
func (s *Session) Active() bool {
	return s.Status.Active()
}

// HasPR reports whether the pr_creation stage produced an artifact.
func (s *Session) HasPR() bool {
	return s.PRNumber > 0 || s.PRURL != ""
}

// touch bumps the version counter and modification time.
func (s *Session) touch() {
	s.DataVersion++
	s.UpdatedAt = time.Now()
}

// DocumentPath is the storage path for a session document, scoped by
// project and feature the way the storage collaborator expects.
func (s *Session) DocumentPath() string {
	return fmt.Sprintf("projects/%s/features/%s/session.json", s.ProjectID, s.FeatureID)
}

// PlanPath is the storage path for the session's plan document.
func (s *Session) PlanPath() string {
	return fmt.Sprintf("projects/%s/features/%s/plan.json", s.ProjectID, s.FeatureID)
}
