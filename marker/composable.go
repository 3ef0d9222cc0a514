package marker

import (
	"regexp"
	"strings"
)

// HasComposablePlanMarkers is a cheap presence check for the composable-plan
// format, usable before committing to a full parse.
func HasComposablePlanMarkers(text string) bool {
	return strings.Contains(text, "["+TagPlanStep)
}

// ExtractComposablePlan assembles a plan from the composable-plan marker
// vocabulary. It returns nil when the text carries no PLAN_STEP marker;
// every optional section that is absent receives defaults so assembly never
// fails part-way.
func ExtractComposablePlan(text string) *ComposablePlan {
	cp := &ComposablePlan{
		Meta:              PlanMeta{Version: "1"},
		Steps:             []Step{},
		Dependencies:      Dependencies{Edges: []Edge{}, External: []ExternalDependency{}},
		TestCoverage:      TestCoverage{Framework: DefaultTestFramework, Entries: []CoverageEntry{}},
		AcceptanceMapping: []AcceptanceCriterion{},
	}

	for _, tok := range Tokenize(text) {
		switch tok.Name {
		case TagPlanMeta:
			cp.Meta = parsePlanMeta(tok)
		case TagPlanStep:
			cp.Steps = append(cp.Steps, parseStep(tok))
		case TagPlanDependencies:
			edges, external := parseDependencies(tok.Body)
			cp.Dependencies.Edges = append(cp.Dependencies.Edges, edges...)
			cp.Dependencies.External = append(cp.Dependencies.External, external...)
		case TagPlanTestCoverage:
			cp.TestCoverage.Framework = tok.Attrs.String("framework", DefaultTestFramework)
			cp.TestCoverage.Entries = append(cp.TestCoverage.Entries, parseCoverage(tok.Body)...)
		case TagPlanAcceptanceMapping:
			cp.AcceptanceMapping = append(cp.AcceptanceMapping, parseAcceptance(tok.Body)...)
		}
	}

	if len(cp.Steps) == 0 {
		return nil
	}
	return cp
}

func parsePlanMeta(tok Token) PlanMeta {
	m := PlanMeta{
		Version:     tok.Attrs.String("version", "1"),
		SessionID:   tok.Attrs.String("sessionId", ""),
		CreatedAt:   tok.Attrs.String("createdAt", ""),
		UpdatedAt:   tok.Attrs.String("updatedAt", ""),
		IsApproved:  tok.Attrs.Bool("isApproved"),
		ReviewCount: tok.Attrs.Int("reviewCount", 0),
	}
	if m.ReviewCount < 0 {
		m.ReviewCount = 0
	}
	return m
}

// =============================================================================
// Dependency Lines
// =============================================================================

// Internal dependency lines: `A -> B[: reason]` or `A depends on B`.
var (
	depArrowLine = regexp.MustCompile(`^([\w-]+)\s*->\s*([\w-]+)\s*(?::\s*(.+))?$`)
	depWordLine  = regexp.MustCompile(`^([\w-]+)\s+depends\s+on\s+([\w-]+)$`)
)

// External dependency lines: `- name (type)[@ version]: reason [required by: id, id]`.
var externalDepLine = regexp.MustCompile(`^-\s*([\w./-]+)\s*\(([\w-]+)\)\s*(?:@\s*([\w.+-]+)\s*)?:\s*(.*?)\s*(?:\[required by:\s*([^\]]*)\])?$`)

func parseDependencies(body string) ([]Edge, []ExternalDependency) {
	var edges []Edge
	var external []ExternalDependency

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") {
			if m := externalDepLine.FindStringSubmatch(line); m != nil {
				external = append(external, ExternalDependency{
					Name:       m[1],
					Type:       m[2],
					Version:    m[3],
					Reason:     m[4],
					RequiredBy: splitList(m[5]),
				})
			}
			continue
		}
		if m := depArrowLine.FindStringSubmatch(line); m != nil {
			edges = append(edges, Edge{StepID: m[1], DependsOn: m[2], Reason: strings.TrimSpace(m[3])})
			continue
		}
		if m := depWordLine.FindStringSubmatch(line); m != nil {
			edges = append(edges, Edge{StepID: m[1], DependsOn: m[2]})
		}
	}
	return edges, external
}

// =============================================================================
// Test Coverage Lines
// =============================================================================

// Coverage lines: `stepID: kind[ - notes]`, with an optional leading dash.
var coverageLine = regexp.MustCompile(`^-?\s*([\w-]+):\s*([\w-]+)\s*(?:-\s*(.*))?$`)

func parseCoverage(body string) []CoverageEntry {
	var entries []CoverageEntry
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := coverageLine.FindStringSubmatch(line); m != nil {
			entries = append(entries, CoverageEntry{StepID: m[1], Kind: m[2], Notes: m[3]})
		}
	}
	return entries
}

// =============================================================================
// Acceptance Mapping Lines
// =============================================================================

// Acceptance lines: `ID: 'text' -> step,step [fully covered|partial]`
// with the quotes optional.
var acceptanceLine = regexp.MustCompile(`^([\w-]+):\s*'?(.*?)'?\s*->\s*([\w,\s-]+?)\s*(?:\[(fully covered|partial)\])?$`)

func parseAcceptance(body string) []AcceptanceCriterion {
	var criteria []AcceptanceCriterion
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := acceptanceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		coverage := CoverageFull
		if m[4] == "partial" {
			coverage = CoveragePartial
		}
		criteria = append(criteria, AcceptanceCriterion{
			ID:       m[1],
			Text:     m[2],
			StepIDs:  splitList(m[3]),
			Coverage: coverage,
		})
	}
	return criteria
}
