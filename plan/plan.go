package plan

import (
	"time"

	"github.com/clrke/ralphflow/marker"
)

// MinDescriptionLength is the shortest acceptable step description,
// counted in runes. 49 characters fails validation, 50 passes.
const MinDescriptionLength = 50

// Meta holds plan-level bookkeeping.
type Meta struct {
	Version     string `json:"version"`
	SessionID   string `json:"sessionId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	IsApproved  bool   `json:"isApproved"`
	ReviewCount int    `json:"reviewCount"`
}

// Step is one unit of planned work. Steps reference each other by id only,
// never by pointer, so the step forest and the dependency edge list stay two
// independent graphs over one node set.
type Step struct {
	ID                    string            `json:"id"`
	ParentID              string            `json:"parentId,omitempty"`
	OrderIndex            int               `json:"orderIndex"`
	Title                 string            `json:"title"`
	Description           string            `json:"description"`
	Status                string            `json:"status"`
	Complexity            string            `json:"complexity,omitempty"`
	AcceptanceCriteriaIDs []string          `json:"acceptanceCriteriaIds,omitempty"`
	EstimatedFiles        []string          `json:"estimatedFiles,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`

	// TestRequirements is the legacy pre-section field; Normalize migrates
	// it into TestCoverage entries.
	TestRequirements []string `json:"testRequirements,omitempty"`
}

// Plan is the canonical multi-section plan document.
type Plan struct {
	Meta              Meta                         `json:"meta"`
	Steps             []Step                       `json:"steps"`
	Dependencies      marker.Dependencies          `json:"dependencies"`
	TestCoverage      marker.TestCoverage          `json:"testCoverage"`
	AcceptanceMapping []marker.AcceptanceCriterion `json:"acceptanceMapping"`
	ValidationStatus  Status                       `json:"validationStatus"`
}

// Status caches the per-section validation outcome on the plan document.
type Status struct {
	Meta              bool `json:"meta"`
	Steps             bool `json:"steps"`
	Dependencies      bool `json:"dependencies"`
	TestCoverage      bool `json:"testCoverage"`
	AcceptanceMapping bool `json:"acceptanceMapping"`
	Overall           bool `json:"overall"`
}

// New creates an empty canonical plan for a session.
func New(sessionID string) *Plan {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Plan{
		Meta: Meta{
			Version:   "1",
			SessionID: sessionID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Steps:             []Step{},
		Dependencies:      marker.Dependencies{Edges: []marker.Edge{}, External: []marker.ExternalDependency{}},
		TestCoverage:      marker.TestCoverage{Framework: marker.DefaultTestFramework, Entries: []marker.CoverageEntry{}},
		AcceptanceMapping: []marker.AcceptanceCriterion{},
	}
}

// FromComposable converts an assembled composable-plan extraction into the
// canonical plan shape. The session id on the marker meta wins when present.
func FromComposable(sessionID string, cp *marker.ComposablePlan) *Plan {
	if cp == nil {
		return nil
	}
	p := New(sessionID)
	p.Meta.Version = cp.Meta.Version
	if cp.Meta.SessionID != "" {
		p.Meta.SessionID = cp.Meta.SessionID
	}
	if cp.Meta.CreatedAt != "" {
		p.Meta.CreatedAt = cp.Meta.CreatedAt
	}
	if cp.Meta.UpdatedAt != "" {
		p.Meta.UpdatedAt = cp.Meta.UpdatedAt
	}
	p.Meta.IsApproved = cp.Meta.IsApproved
	p.Meta.ReviewCount = cp.Meta.ReviewCount

	p.Steps = make([]Step, 0, len(cp.Steps))
	for _, s := range cp.Steps {
		p.Steps = append(p.Steps, Step{
			ID:                    s.ID,
			ParentID:              s.ParentID,
			OrderIndex:            s.OrderIndex,
			Title:                 s.Title,
			Description:           s.Description,
			Status:                s.Status,
			Complexity:            s.Complexity,
			AcceptanceCriteriaIDs: s.AcceptanceCriteriaIDs,
			EstimatedFiles:        s.EstimatedFiles,
		})
	}
	p.Dependencies = cp.Dependencies
	p.TestCoverage = cp.TestCoverage
	p.AcceptanceMapping = cp.AcceptanceMapping
	return p
}

// StepIndex returns the set of known step ids.
func (p *Plan) StepIndex() map[string]int {
	idx := make(map[string]int, len(p.Steps))
	for i, s := range p.Steps {
		idx[s.ID] = i
	}
	return idx
}

// Step returns the step with the given id, or nil.
func (p *Plan) Step(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// Touch updates the modification timestamp.
func (p *Plan) Touch() {
	p.Meta.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}
