package marker

import (
	"strings"
	"testing"
)

const samplePlanText = `
Some narration before the plan.

[PLAN_META version="2" sessionId="sess-42" createdAt="2026-01-10T09:00:00Z" updatedAt="2026-01-11T10:30:00Z" isApproved="true" reviewCount="2"][/PLAN_META]

[PLAN_STEP id="step-1" order="1" title="Build the tokenizer" complexity="medium"]
Implement the marker tokenizer with escaped-quote support and flag handling.
[/PLAN_STEP]

[PLAN_STEP id="step-2" parent="step-1" order="2" title="Wire the validator" complexity="high" acceptanceCriteria="ac-1"]
Validate assembled plans for structure and cross-references before approval.
[/PLAN_STEP]

[PLAN_DEPENDENCIES]
step-2 -> step-1: tokenizer output feeds validation
step-2 depends on step-1
- yaml (library) @ 3.0: config parsing [required by: step-1, step-2]
- ci-runner (service): runs the coverage suite
[/PLAN_DEPENDENCIES]

[PLAN_TEST_COVERAGE framework="go test"]
step-1: unit - tokenizer edge cases
step-2: integration
[/PLAN_TEST_COVERAGE]

[PLAN_ACCEPTANCE_MAPPING]
ac-1: 'Malformed markers never abort a parse' -> step-1, step-2 [fully covered]
ac-2: Plans with cycles are rejected -> step-2 [partial]
[/PLAN_ACCEPTANCE_MAPPING]
`

func TestHasComposablePlanMarkers(t *testing.T) {
	if !HasComposablePlanMarkers(samplePlanText) {
		t.Error("want true for sample plan text")
	}
	if HasComposablePlanMarkers("just prose, no markers") {
		t.Error("want false for plain prose")
	}
	if HasComposablePlanMarkers(`[STEP_COMPLETE id="1"][/STEP_COMPLETE]`) {
		t.Error("primary markers alone are not the composable format")
	}
}

func TestExtractComposablePlan_Full(t *testing.T) {
	cp := ExtractComposablePlan(samplePlanText)
	if cp == nil {
		t.Fatal("ExtractComposablePlan = nil, want plan")
	}

	if cp.Meta.Version != "2" || cp.Meta.SessionID != "sess-42" {
		t.Errorf("Meta = %+v", cp.Meta)
	}
	if !cp.Meta.IsApproved || cp.Meta.ReviewCount != 2 {
		t.Errorf("IsApproved/ReviewCount = %v/%d, want true/2", cp.Meta.IsApproved, cp.Meta.ReviewCount)
	}

	if len(cp.Steps) != 2 {
		t.Fatalf("Steps = %d, want 2", len(cp.Steps))
	}
	if cp.Steps[1].ParentID != "step-1" {
		t.Errorf("Steps[1].ParentID = %q, want step-1", cp.Steps[1].ParentID)
	}

	if len(cp.Dependencies.Edges) != 2 {
		t.Fatalf("Edges = %d, want 2 (arrow form and word form)", len(cp.Dependencies.Edges))
	}
	if e := cp.Dependencies.Edges[0]; e.StepID != "step-2" || e.DependsOn != "step-1" {
		t.Errorf("Edges[0] = %+v", e)
	}
	if cp.Dependencies.Edges[0].Reason != "tokenizer output feeds validation" {
		t.Errorf("Edges[0].Reason = %q", cp.Dependencies.Edges[0].Reason)
	}
	if cp.Dependencies.Edges[1].Reason != "" {
		t.Errorf("word-form edge should carry no reason, got %q", cp.Dependencies.Edges[1].Reason)
	}

	if len(cp.Dependencies.External) != 2 {
		t.Fatalf("External = %d, want 2", len(cp.Dependencies.External))
	}
	yaml := cp.Dependencies.External[0]
	if yaml.Name != "yaml" || yaml.Type != "library" || yaml.Version != "3.0" {
		t.Errorf("External[0] = %+v", yaml)
	}
	if len(yaml.RequiredBy) != 2 || yaml.RequiredBy[1] != "step-2" {
		t.Errorf("External[0].RequiredBy = %v", yaml.RequiredBy)
	}
	svc := cp.Dependencies.External[1]
	if svc.Version != "" || len(svc.RequiredBy) != 0 {
		t.Errorf("External[1] = %+v, want no version and no requiredBy", svc)
	}

	if cp.TestCoverage.Framework != "go test" {
		t.Errorf("Framework = %q", cp.TestCoverage.Framework)
	}
	if len(cp.TestCoverage.Entries) != 2 {
		t.Fatalf("coverage entries = %d, want 2", len(cp.TestCoverage.Entries))
	}
	if e := cp.TestCoverage.Entries[0]; e.Kind != "unit" || e.Notes != "tokenizer edge cases" {
		t.Errorf("coverage[0] = %+v", e)
	}

	if len(cp.AcceptanceMapping) != 2 {
		t.Fatalf("acceptance entries = %d, want 2", len(cp.AcceptanceMapping))
	}
	ac1 := cp.AcceptanceMapping[0]
	if ac1.Text != "Malformed markers never abort a parse" {
		t.Errorf("ac-1.Text = %q (quotes should be stripped)", ac1.Text)
	}
	if ac1.Coverage != CoverageFull || len(ac1.StepIDs) != 2 {
		t.Errorf("ac-1 = %+v", ac1)
	}
	ac2 := cp.AcceptanceMapping[1]
	if ac2.Coverage != CoveragePartial {
		t.Errorf("ac-2.Coverage = %q, want partial", ac2.Coverage)
	}
	if ac2.Text != "Plans with cycles are rejected" {
		t.Errorf("ac-2.Text = %q (unquoted form)", ac2.Text)
	}
}

func TestExtractComposablePlan_NoSteps(t *testing.T) {
	text := `[PLAN_META version="1" sessionId="s"][/PLAN_META]
[PLAN_DEPENDENCIES]
a -> b
[/PLAN_DEPENDENCIES]`
	if cp := ExtractComposablePlan(text); cp != nil {
		t.Errorf("ExtractComposablePlan = %+v, want nil without any PLAN_STEP", cp)
	}
}

func TestExtractComposablePlan_OptionalSectionDefaults(t *testing.T) {
	text := `[PLAN_STEP id="step-1" title="Only step"]
A single step with every optional section absent from the output.
[/PLAN_STEP]`

	cp := ExtractComposablePlan(text)
	if cp == nil {
		t.Fatal("want assembled plan from a lone PLAN_STEP")
	}
	if cp.TestCoverage.Framework != DefaultTestFramework {
		t.Errorf("Framework = %q, want %q", cp.TestCoverage.Framework, DefaultTestFramework)
	}
	if cp.Dependencies.Edges == nil || len(cp.Dependencies.Edges) != 0 {
		t.Errorf("Edges = %v, want empty slice", cp.Dependencies.Edges)
	}
	if cp.AcceptanceMapping == nil || len(cp.AcceptanceMapping) != 0 {
		t.Errorf("AcceptanceMapping = %v, want empty slice", cp.AcceptanceMapping)
	}
	if cp.Meta.Version != "1" {
		t.Errorf("Meta.Version = %q, want default 1", cp.Meta.Version)
	}
}

func TestExtractComposablePlan_NegativeReviewCountClamped(t *testing.T) {
	text := `[PLAN_META version="1" sessionId="s" reviewCount="-3"][/PLAN_META]
[PLAN_STEP id="step-1" title="t"]body[/PLAN_STEP]`
	cp := ExtractComposablePlan(text)
	if cp.Meta.ReviewCount != 0 {
		t.Errorf("ReviewCount = %d, want 0", cp.Meta.ReviewCount)
	}
}

func TestExtractComposablePlan_GarbageDependencyLinesSkipped(t *testing.T) {
	text := `[PLAN_STEP id="step-1" title="t"]body[/PLAN_STEP]
[PLAN_DEPENDENCIES]
this line is prose and matches nothing
-> dangling arrow
step-1 ->
[/PLAN_DEPENDENCIES]`
	cp := ExtractComposablePlan(text)
	if len(cp.Dependencies.Edges) != 0 {
		t.Errorf("Edges = %v, want none from garbage lines", cp.Dependencies.Edges)
	}
}

func TestExtractComposablePlan_IgnoresSurroundingProse(t *testing.T) {
	text := "intro\n" + samplePlanText + "\noutro with [brackets]"
	cp := ExtractComposablePlan(text)
	if cp == nil || len(cp.Steps) != 2 {
		t.Fatalf("plan not assembled from prose-wrapped text")
	}
	for _, s := range cp.Steps {
		if strings.Contains(s.Description, "[PLAN_") {
			t.Errorf("step description leaked marker text: %q", s.Description)
		}
	}
}
