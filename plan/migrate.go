package plan

import "github.com/clrke/ralphflow/marker"

// Normalize converts a legacy or partially-populated document into the
// canonical section structure so the validator only ever sees one shape.
// It is idempotent: a canonical plan passes through unchanged.
//
// Legacy conversions:
//   - step parentId links become explicit dependency edges (child depends
//     on parent) when the dependency section is empty
//   - per-step testRequirements populate TestCoverage entries
//   - absent sections receive empty defaults
func Normalize(p *Plan) {
	if p == nil {
		return
	}
	if p.Meta.Version == "" {
		p.Meta.Version = "1"
	}
	if p.Steps == nil {
		p.Steps = []Step{}
	}
	if p.Dependencies.Edges == nil {
		// Section absent entirely: this is a legacy document, so the
		// parentId forest is its only dependency information.
		p.Dependencies.Edges = parentEdges(p.Steps)
		if p.Dependencies.Edges == nil {
			p.Dependencies.Edges = []marker.Edge{}
		}
	}
	if p.Dependencies.External == nil {
		p.Dependencies.External = []marker.ExternalDependency{}
	}
	if p.TestCoverage.Framework == "" {
		p.TestCoverage.Framework = marker.DefaultTestFramework
	}
	if p.TestCoverage.Entries == nil {
		p.TestCoverage.Entries = []marker.CoverageEntry{}
	}
	if p.AcceptanceMapping == nil {
		p.AcceptanceMapping = []marker.AcceptanceCriterion{}
	}

	migrateTestRequirements(p)

	for i := range p.Steps {
		if p.Steps[i].Status == "" {
			p.Steps[i].Status = marker.StepPending
		}
	}
}

// parentEdges derives dependency edges from the legacy parentId forest.
func parentEdges(steps []Step) []marker.Edge {
	var edges []marker.Edge
	for _, s := range steps {
		if s.ParentID == "" {
			continue
		}
		edges = append(edges, marker.Edge{StepID: s.ID, DependsOn: s.ParentID})
	}
	return edges
}

// migrateTestRequirements folds the legacy per-step testRequirements field
// into coverage entries, then clears it.
func migrateTestRequirements(p *Plan) {
	for i := range p.Steps {
		s := &p.Steps[i]
		if len(s.TestRequirements) == 0 {
			continue
		}
		for _, req := range s.TestRequirements {
			p.TestCoverage.Entries = append(p.TestCoverage.Entries, marker.CoverageEntry{
				StepID: s.ID,
				Kind:   "unit",
				Notes:  req,
			})
		}
		s.TestRequirements = nil
	}
}
