package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoader_EmbeddedStagePrompts(t *testing.T) {
	loader := NewLoader(t.TempDir())

	stages := []string{
		Discovery, Planning, Implementing,
		PRCreation, PRReview, FinalApproval, PlanRework,
	}
	for _, name := range stages {
		if !loader.Exists(name) {
			t.Errorf("Exists(%q) = false, want embedded default", name)
		}
	}
}

func TestLoader_RendersVars(t *testing.T) {
	loader := NewLoader(t.TempDir())

	got, err := loader.LoadWithVars(Discovery, map[string]any{
		"Title":       "Add rate limiting",
		"Description": "Per-tenant request caps",
	})
	if err != nil {
		t.Fatalf("LoadWithVars() error = %v", err)
	}
	if !strings.Contains(got, "Add rate limiting") {
		t.Errorf("rendered prompt missing title:\n%s", got)
	}
	if !strings.Contains(got, "Per-tenant request caps") {
		t.Errorf("rendered prompt missing description:\n%s", got)
	}
}

func TestLoader_ProjectOverrideWins(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, ".ralphflow", "prompts")
	if err := os.MkdirAll(override, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(override, "discovery.txt"), []byte("custom {{.Title}}"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir)
	got, err := loader.LoadWithVars(Discovery, map[string]any{"Title": "X"})
	if err != nil {
		t.Fatalf("LoadWithVars() error = %v", err)
	}
	if got != "custom X" {
		t.Errorf("LoadWithVars() = %q, want project override", got)
	}
}

func TestLoader_AddSearchDirWins(t *testing.T) {
	extra := t.TempDir()
	if err := os.WriteFile(filepath.Join(extra, "discovery.txt"), []byte("extra"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(t.TempDir())
	loader.AddSearchDir(extra)

	got, err := loader.Load(Discovery)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "extra" {
		t.Errorf("Load() = %q, want the added dir to win", got)
	}
}

func TestLoader_ListIncludesOverrides(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "prompts")
	if err := os.MkdirAll(override, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(override, "extra.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	names, err := NewLoader(dir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"extra", Discovery, PlanRework} {
		if !seen[want] {
			t.Errorf("List() missing %q: %v", want, names)
		}
	}
}

func TestLoader_UnknownPrompt(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if _, err := loader.Load("no-such-prompt"); err == nil {
		t.Error("Load() error = nil for unknown prompt")
	}
}

func TestLoader_PlanReworkListsProblems(t *testing.T) {
	loader := NewLoader(t.TempDir())

	got, err := loader.LoadWithVars(PlanRework, map[string]any{
		"Title":    "Add rate limiting",
		"Problems": []string{"steps: description too short", "dependencies: cycle detected"},
		"StepsMissingComplexity": []string{"step-3"},
	})
	if err != nil {
		t.Fatalf("LoadWithVars() error = %v", err)
	}
	for _, want := range []string{"description too short", "cycle detected", "step-3"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered rework prompt missing %q:\n%s", want, got)
		}
	}
}

func TestFuncMap_Helpers(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "prompts")
	if err := os.MkdirAll(override, 0755); err != nil {
		t.Fatal(err)
	}
	tmpl := `{{title .Name}}|{{indent 2 "a\nb"}}|{{default "none" .Missing}}`
	if err := os.WriteFile(filepath.Join(override, "helpers.txt"), []byte(tmpl), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir)
	got, err := loader.LoadWithVars("helpers", map[string]any{"Name": "rate limiting"})
	if err != nil {
		t.Fatalf("LoadWithVars() error = %v", err)
	}
	want := "Rate Limiting|  a\n  b|none"
	if got != want {
		t.Errorf("LoadWithVars() = %q, want %q", got, want)
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	got := b.Add("intro").
		AddSection("Plan", "two steps").
		AddList("Risks", []string{"cycle", "lock contention"}).
		Build()

	for _, want := range []string{"intro", "## Plan", "- cycle", "- lock contention"} {
		if !strings.Contains(got, want) {
			t.Errorf("Build() missing %q:\n%s", want, got)
		}
	}
}
