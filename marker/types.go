package marker

// =============================================================================
// Marker Vocabulary
// =============================================================================

// Primary marker tags.
const (
	TagDecision               = "DECISION"
	TagPlanStep               = "PLAN_STEP"
	TagStepComplete           = "STEP_COMPLETE"
	TagPlanModeEntered        = "PLAN_MODE_ENTERED"
	TagPlanModeExited         = "PLAN_MODE_EXITED"
	TagPlanApproved           = "PLAN_APPROVED"
	TagImplementationComplete = "IMPLEMENTATION_COMPLETE"
	TagPlanFile               = "PLAN_FILE"
	TagImplementationStatus   = "IMPLEMENTATION_STATUS"
	TagPRCreated              = "PR_CREATED"
)

// Composable-plan marker tags.
const (
	TagPlanMeta              = "PLAN_META"
	TagPlanDependencies      = "PLAN_DEPENDENCIES"
	TagPlanTestCoverage      = "PLAN_TEST_COVERAGE"
	TagPlanAcceptanceMapping = "PLAN_ACCEPTANCE_MAPPING"
)

// DefaultDecisionPriority is used when a DECISION marker omits its
// priority attribute or carries one that does not parse.
const DefaultDecisionPriority = 3

// =============================================================================
// Extracted Records
// =============================================================================

// Decision is a question the assistant wants answered before proceeding.
type Decision struct {
	Priority int              `json:"priority"`
	Category string           `json:"category,omitempty"`
	Question string           `json:"question"`
	Options  []DecisionOption `json:"options,omitempty"`
	File     string           `json:"file,omitempty"`
	Line     int              `json:"line,omitempty"`
}

// DecisionOption is one answer choice attached to a Decision.
type DecisionOption struct {
	Label       string `json:"label"`
	Recommended bool   `json:"recommended,omitempty"`
}

// StepStatus values accepted on PLAN_STEP markers.
const (
	StepPending     = "pending"
	StepInProgress  = "in_progress"
	StepCompleted   = "completed"
	StepBlocked     = "blocked"
	StepSkipped     = "skipped"
	StepNeedsReview = "needs_review"
)

// Step complexity values accepted on PLAN_STEP markers.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// Step is a plan step extracted from a PLAN_STEP marker.
type Step struct {
	ID                    string   `json:"id"`
	ParentID              string   `json:"parentId,omitempty"`
	OrderIndex            int      `json:"orderIndex"`
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	Status                string   `json:"status"`
	Complexity            string   `json:"complexity,omitempty"`
	AcceptanceCriteriaIDs []string `json:"acceptanceCriteriaIds,omitempty"`
	EstimatedFiles        []string `json:"estimatedFiles,omitempty"`
}

// StepCompletion records that a step finished. Formal is true when the
// record came from a STEP_COMPLETE marker rather than a plain-text mention.
type StepCompletion struct {
	ID      string `json:"id"`
	Summary string `json:"summary,omitempty"`
	Formal  bool   `json:"formal"`
}

// ImplementationStatus is a mid-implementation progress report.
type ImplementationStatus struct {
	CompletedSteps int    `json:"completedSteps"`
	TotalSteps     int    `json:"totalSteps"`
	CurrentStepID  string `json:"currentStepId,omitempty"`
	Summary        string `json:"summary,omitempty"`
}

// PRCreated records that the assistant opened a pull request.
type PRCreated struct {
	Number int    `json:"number"`
	URL    string `json:"url,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// ParsedOutput is the full typed result of parsing one assistant response.
// Every field is populated; absent markers leave zero values or empty slices.
type ParsedOutput struct {
	Decisions []Decision `json:"decisions"`
	Steps     []Step     `json:"steps"`

	// LastStepComplete is the most recent formal STEP_COMPLETE record,
	// nil when the output carried none.
	LastStepComplete *StepCompletion `json:"lastStepComplete,omitempty"`

	// StepCompletions is deduplicated across formal markers and plain-text
	// completion mentions; a formal record wins over a mention of the same id.
	StepCompletions []StepCompletion `json:"stepCompletions"`

	PlanModeEntered        bool `json:"planModeEntered"`
	PlanModeExited         bool `json:"planModeExited"`
	PlanApproved           bool `json:"planApproved"`
	ImplementationComplete bool `json:"implementationComplete"`

	PlanFilePath         string                `json:"planFilePath,omitempty"`
	ImplementationStatus *ImplementationStatus `json:"implementationStatus,omitempty"`
	PRCreated            *PRCreated            `json:"prCreated,omitempty"`
}

// =============================================================================
// Composable Plan Records
// =============================================================================

// PlanMeta holds plan-level fields from a PLAN_META marker.
// Timestamps stay as raw strings; well-formedness is a validation concern.
type PlanMeta struct {
	Version     string `json:"version"`
	SessionID   string `json:"sessionId"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	IsApproved  bool   `json:"isApproved"`
	ReviewCount int    `json:"reviewCount"`
}

// Edge is one step-to-step dependency: StepID depends on DependsOn.
type Edge struct {
	StepID    string `json:"stepId"`
	DependsOn string `json:"dependsOn"`
	Reason    string `json:"reason,omitempty"`
}

// ExternalDependency is a dependency on something outside the plan
// (a package, a service, another team's deliverable).
type ExternalDependency struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Version    string   `json:"version,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	RequiredBy []string `json:"requiredBy,omitempty"`
}

// Dependencies collects both internal edges and external dependencies.
type Dependencies struct {
	Edges    []Edge               `json:"edges"`
	External []ExternalDependency `json:"external"`
}

// DefaultTestFramework is used when PLAN_TEST_COVERAGE omits a framework.
const DefaultTestFramework = "unknown"

// CoverageEntry maps one step to the kind of test that covers it.
type CoverageEntry struct {
	StepID string `json:"stepId"`
	Kind   string `json:"kind"`
	Notes  string `json:"notes,omitempty"`
}

// TestCoverage describes how plan steps are covered by tests.
type TestCoverage struct {
	Framework string          `json:"framework"`
	Entries   []CoverageEntry `json:"entries"`
}

// Acceptance coverage levels.
const (
	CoverageFull    = "fully_covered"
	CoveragePartial = "partial"
)

// AcceptanceCriterion maps one acceptance criterion to its implementing steps.
type AcceptanceCriterion struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	StepIDs  []string `json:"stepIds"`
	Coverage string   `json:"coverage"`
}

// ComposablePlan is the assembled result of the composable-plan marker format.
type ComposablePlan struct {
	Meta              PlanMeta              `json:"meta"`
	Steps             []Step                `json:"steps"`
	Dependencies      Dependencies          `json:"dependencies"`
	TestCoverage      TestCoverage          `json:"testCoverage"`
	AcceptanceMapping []AcceptanceCriterion `json:"acceptanceMapping"`
}
