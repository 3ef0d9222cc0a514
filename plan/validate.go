package plan

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/clrke/ralphflow/marker"
)

// =============================================================================
// Validation Result Types
// =============================================================================

// Section identifies which part of the plan a validation error belongs to.
type Section string

// Plan sections.
const (
	SectionMeta              Section = "meta"
	SectionSteps             Section = "steps"
	SectionDependencies      Section = "dependencies"
	SectionTestCoverage      Section = "testCoverage"
	SectionAcceptanceMapping Section = "acceptanceMapping"
)

// Error codes.
const (
	CodeEmptyField         = "empty_field"
	CodeBadTimestamp       = "bad_timestamp"
	CodeNegativeCount      = "negative_count"
	CodeNoSteps            = "no_steps"
	CodeDuplicateStepID    = "duplicate_step_id"
	CodePlaceholderText    = "placeholder_text"
	CodeMarkerSyntax       = "marker_syntax"
	CodeShortDescription   = "short_description"
	CodeMissingComplexity  = "missing_complexity"
	CodeUnknownParent      = "unknown_parent"
	CodeUnknownStepRef     = "unknown_step_ref"
	CodeDependencyCycle    = "dependency_cycle"
	CodeNoImplementingStep = "no_implementing_step"
)

// Error is one structured validation finding. Callers that need to build a
// reprompt read Section, StepID, and Code directly; Message is for humans.
type Error struct {
	Section Section `json:"section"`
	StepID  string  `json:"stepId,omitempty"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}

// SectionResult is the outcome for one plan section.
type SectionResult struct {
	Valid  bool    `json:"valid"`
	Errors []Error `json:"errors"`
}

// Result is the full validation outcome. Overall is true only when every
// section is valid.
type Result struct {
	Meta              SectionResult `json:"meta"`
	Steps             SectionResult `json:"steps"`
	Dependencies      SectionResult `json:"dependencies"`
	TestCoverage      SectionResult `json:"testCoverage"`
	AcceptanceMapping SectionResult `json:"acceptanceMapping"`
	Overall           bool          `json:"overall"`

	// Cycle lists the step ids of the first dependency cycle found, in
	// traversal order, empty when the edge set is acyclic.
	Cycle []string `json:"cycle,omitempty"`

	// Advisories are non-fatal findings (a step without a complexity
	// estimate, for example). They never affect section validity but feed
	// the structured reprompt sent back to the assistant.
	Advisories []Error `json:"advisories,omitempty"`
}

// AllErrors flattens every section's findings into one list.
func (r Result) AllErrors() []Error {
	var all []Error
	for _, sr := range []SectionResult{r.Meta, r.Steps, r.Dependencies, r.TestCoverage, r.AcceptanceMapping} {
		all = append(all, sr.Errors...)
	}
	return all
}

// StepsMissingComplexity returns the ids of steps flagged for an absent
// complexity estimate, for structured reprompt construction.
func (r Result) StepsMissingComplexity() []string {
	var ids []string
	for _, e := range r.Advisories {
		if e.Code == CodeMissingComplexity {
			ids = append(ids, e.StepID)
		}
	}
	return ids
}

// =============================================================================
// Validator
// =============================================================================

// placeholderWords reject filler tokens in titles and descriptions. They
// match whole words only, so an identifier or typo that merely contains
// "xxx" or "tbd" is not treated as filler.
var placeholderWords = []string{"tbd", "todo", "fixme", "xxx", "tbc", "placeholder"}

// placeholderPhrases are multi-word filler matched as substrings.
var placeholderPhrases = []string{"lorem ipsum", "to be determined", "fill in"}

// Validate normalizes the plan, checks every section and the cross-section
// invariants, and caches the outcome on the plan's ValidationStatus. It is
// idempotent: re-validating an unchanged plan returns an identical result and
// mutates nothing but the cached status flags.
func Validate(p *Plan) Result {
	Normalize(p)

	var r Result
	r.Meta = validateMeta(p.Meta)
	r.Steps, r.Advisories = validateSteps(p.Steps)

	idx := p.StepIndex()
	r.Dependencies, r.Cycle = validateDependencies(p, idx)
	r.TestCoverage = validateTestCoverage(p.TestCoverage, idx)
	r.AcceptanceMapping = validateAcceptance(p.AcceptanceMapping, idx)

	r.Overall = r.Meta.Valid && r.Steps.Valid && r.Dependencies.Valid &&
		r.TestCoverage.Valid && r.AcceptanceMapping.Valid

	p.ValidationStatus = Status{
		Meta:              r.Meta.Valid,
		Steps:             r.Steps.Valid,
		Dependencies:      r.Dependencies.Valid,
		TestCoverage:      r.TestCoverage.Valid,
		AcceptanceMapping: r.AcceptanceMapping.Valid,
		Overall:           r.Overall,
	}
	return r
}

func sectionResult(errs []Error) SectionResult {
	return SectionResult{Valid: len(errs) == 0, Errors: append([]Error{}, errs...)}
}

func validateMeta(m Meta) SectionResult {
	var errs []Error
	if strings.TrimSpace(m.Version) == "" {
		errs = append(errs, Error{Section: SectionMeta, Code: CodeEmptyField, Message: "meta.version must be a non-empty string"})
	}
	if strings.TrimSpace(m.SessionID) == "" {
		errs = append(errs, Error{Section: SectionMeta, Code: CodeEmptyField, Message: "meta.sessionId must be a non-empty string"})
	}
	for _, ts := range []struct{ name, val string }{
		{"createdAt", m.CreatedAt},
		{"updatedAt", m.UpdatedAt},
	} {
		if ts.val == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, ts.val); err != nil {
			errs = append(errs, Error{Section: SectionMeta, Code: CodeBadTimestamp,
				Message: fmt.Sprintf("meta.%s %q is not a valid RFC 3339 timestamp", ts.name, ts.val)})
		}
	}
	if m.ReviewCount < 0 {
		errs = append(errs, Error{Section: SectionMeta, Code: CodeNegativeCount,
			Message: fmt.Sprintf("meta.reviewCount must be >= 0, got %d", m.ReviewCount)})
	}
	return sectionResult(errs)
}

func validateSteps(steps []Step) (SectionResult, []Error) {
	var errs, advisories []Error
	if len(steps) == 0 {
		errs = append(errs, Error{Section: SectionSteps, Code: CodeNoSteps, Message: "plan has no steps"})
		return sectionResult(errs), nil
	}

	seen := map[string]bool{}
	for _, s := range steps {
		if s.ID == "" {
			errs = append(errs, Error{Section: SectionSteps, Code: CodeEmptyField, Message: "step id must be non-empty"})
			continue
		}
		if seen[s.ID] {
			errs = append(errs, Error{Section: SectionSteps, StepID: s.ID, Code: CodeDuplicateStepID,
				Message: fmt.Sprintf("step id %q appears more than once", s.ID)})
		}
		seen[s.ID] = true

		stepErrs, stepAdvisories := validateStepContent(s)
		errs = append(errs, stepErrs...)
		advisories = append(advisories, stepAdvisories...)
	}
	return sectionResult(errs), advisories
}

func validateStepContent(s Step) (errs, advisories []Error) {
	if strings.TrimSpace(s.Title) == "" {
		errs = append(errs, Error{Section: SectionSteps, StepID: s.ID, Code: CodeEmptyField,
			Message: fmt.Sprintf("step %s has an empty title", s.ID)})
	}
	for _, field := range []struct{ name, val string }{
		{"title", s.Title},
		{"description", s.Description},
	} {
		if frag := placeholderIn(field.val); frag != "" {
			errs = append(errs, Error{Section: SectionSteps, StepID: s.ID, Code: CodePlaceholderText,
				Message: fmt.Sprintf("step %s %s contains placeholder text %q", s.ID, field.name, frag)})
		}
		if marker.ContainsMarkerSyntax(field.val) {
			errs = append(errs, Error{Section: SectionSteps, StepID: s.ID, Code: CodeMarkerSyntax,
				Message: fmt.Sprintf("step %s %s contains marker syntax", s.ID, field.name)})
		}
	}
	if n := utf8.RuneCountInString(s.Description); n < MinDescriptionLength {
		errs = append(errs, Error{Section: SectionSteps, StepID: s.ID, Code: CodeShortDescription,
			Message: fmt.Sprintf("step %s description is %d characters, need at least %d",
				s.ID, n, MinDescriptionLength)})
	}
	// Complexity is optional; its absence is advisory so the next prompt
	// can ask for an estimate without forcing a plan rework.
	if s.Complexity == "" {
		advisories = append(advisories, Error{Section: SectionSteps, StepID: s.ID, Code: CodeMissingComplexity,
			Message: fmt.Sprintf("step %s has no complexity estimate", s.ID)})
	}
	return errs, advisories
}

func placeholderIn(s string) string {
	lower := strings.ToLower(s)
	for _, phrase := range placeholderPhrases {
		if strings.Contains(lower, phrase) {
			return phrase
		}
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if slices.Contains(placeholderWords, word) {
			return word
		}
	}
	return ""
}

// =============================================================================
// Cross-Section Validation
// =============================================================================

func validateDependencies(p *Plan, idx map[string]int) (SectionResult, []string) {
	var errs []Error

	for _, s := range p.Steps {
		if s.ParentID == "" {
			continue
		}
		if _, ok := idx[s.ParentID]; !ok {
			errs = append(errs, Error{Section: SectionDependencies, StepID: s.ID, Code: CodeUnknownParent,
				Message: fmt.Sprintf("step %s references parent %q which does not exist", s.ID, s.ParentID)})
		}
	}

	for _, e := range p.Dependencies.Edges {
		for _, id := range []string{e.StepID, e.DependsOn} {
			if _, ok := idx[id]; !ok {
				errs = append(errs, Error{Section: SectionDependencies, StepID: id, Code: CodeUnknownStepRef,
					Message: fmt.Sprintf("dependency edge %s -> %s references unknown step %q", e.StepID, e.DependsOn, id)})
			}
		}
	}
	for _, ext := range p.Dependencies.External {
		for _, id := range ext.RequiredBy {
			if _, ok := idx[id]; !ok {
				errs = append(errs, Error{Section: SectionDependencies, StepID: id, Code: CodeUnknownStepRef,
					Message: fmt.Sprintf("external dependency %q required by unknown step %q", ext.Name, id)})
			}
		}
	}

	cycle := findCycle(p.Steps, p.Dependencies.Edges)
	if len(cycle) > 0 {
		errs = append(errs, Error{Section: SectionDependencies, StepID: cycle[0], Code: CodeDependencyCycle,
			Message: fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> "))})
	}
	return sectionResult(errs), cycle
}

// findCycle runs an iterative depth-first search over the dependency
// adjacency list with an explicit recursion stack, returning the first cycle
// found as an ordered list of step ids (first id repeated implicitly).
func findCycle(steps []Step, edges []marker.Edge) []string {
	adj := make(map[string][]string, len(steps))
	for _, e := range edges {
		adj[e.StepID] = append(adj[e.StepID], e.DependsOn)
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(steps))

	type frame struct {
		id   string
		next int
	}

	for _, s := range steps {
		if state[s.ID] != unvisited {
			continue
		}
		stack := []frame{{id: s.ID}}
		state[s.ID] = inStack

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(adj[top.id]) {
				state[top.id] = done
				stack = stack[:len(stack)-1]
				continue
			}
			succ := adj[top.id][top.next]
			top.next++

			switch state[succ] {
			case inStack:
				// Found a back edge; slice the cycle out of the stack.
				var cycle []string
				for i := range stack {
					if stack[i].id == succ {
						for _, f := range stack[i:] {
							cycle = append(cycle, f.id)
						}
						break
					}
				}
				return cycle
			case unvisited:
				state[succ] = inStack
				stack = append(stack, frame{id: succ})
			}
		}
	}
	return nil
}

func validateTestCoverage(tc marker.TestCoverage, idx map[string]int) SectionResult {
	var errs []Error
	if strings.TrimSpace(tc.Framework) == "" {
		errs = append(errs, Error{Section: SectionTestCoverage, Code: CodeEmptyField,
			Message: "testCoverage.framework must be non-empty"})
	}
	for _, e := range tc.Entries {
		if _, ok := idx[e.StepID]; !ok {
			errs = append(errs, Error{Section: SectionTestCoverage, StepID: e.StepID, Code: CodeUnknownStepRef,
				Message: fmt.Sprintf("test coverage entry references unknown step %q", e.StepID)})
		}
	}
	return sectionResult(errs)
}

func validateAcceptance(criteria []marker.AcceptanceCriterion, idx map[string]int) SectionResult {
	var errs []Error
	for _, ac := range criteria {
		if len(ac.StepIDs) == 0 {
			errs = append(errs, Error{Section: SectionAcceptanceMapping, Code: CodeNoImplementingStep,
				Message: fmt.Sprintf("acceptance criterion %q lists no implementing step", ac.ID)})
		}
		for _, id := range ac.StepIDs {
			if _, ok := idx[id]; !ok {
				errs = append(errs, Error{Section: SectionAcceptanceMapping, StepID: id, Code: CodeUnknownStepRef,
					Message: fmt.Sprintf("acceptance criterion %q maps to unknown step %q", ac.ID, id)})
			}
		}
	}
	return sectionResult(errs)
}
