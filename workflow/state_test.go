package workflow

import (
	"errors"
	"strings"
	"testing"

	ralphflow "github.com/clrke/ralphflow"
)

func sampleSession() ralphflow.Session {
	return ralphflow.Session{
		ID:        "sess-1",
		ProjectID: "proj-a",
		FeatureID: "feat-login",
		Title:     "Add login flow",
		Status:    ralphflow.StatusDiscovery,
	}
}

func TestNewState(t *testing.T) {
	state := NewState(sampleSession())

	if state.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", state.SessionID, "sess-1")
	}
	if state.ProjectID != "proj-a" || state.FeatureID != "feat-login" {
		t.Errorf("ProjectID/FeatureID = %q/%q", state.ProjectID, state.FeatureID)
	}
	if state.Title != "Add login flow" {
		t.Errorf("Title = %q", state.Title)
	}
	if state.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
	if state.HasError() {
		t.Error("new state should have no error")
	}
}

func TestState_WithWorkDir(t *testing.T) {
	state := NewState(sampleSession()).WithWorkDir("/tmp/work")
	if state.WorkDir != "/tmp/work" {
		t.Errorf("WorkDir = %q, want /tmp/work", state.WorkDir)
	}
}

func TestState_LockKey(t *testing.T) {
	state := NewState(sampleSession())
	key := state.LockKey()
	if key.ProjectID != "proj-a" || key.FeatureID != "feat-login" {
		t.Errorf("LockKey = %+v", key)
	}
}

func TestState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*State)
		req     StateRequirement
		wantErr bool
	}{
		{"session present", func(s *State) {}, RequireSession, false},
		{"session missing", func(s *State) { s.SessionID = "" }, RequireSession, true},
		{"output missing", func(s *State) {}, RequireOutput, true},
		{"output present", func(s *State) { s.RawOutput = "done" }, RequireOutput, false},
		{"plan missing", func(s *State) {}, RequirePlan, true},
		{"pr missing", func(s *State) {}, RequirePR, true},
		{"pr present", func(s *State) {
			s.Session.PRNumber = 7
			s.Session.PRURL = "https://example.com/pr/7"
		}, RequirePR, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState(sampleSession())
			tt.mutate(&state)
			err := state.Validate(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%s) error = %v, wantErr %v", tt.req, err, tt.wantErr)
			}
		})
	}
}

func TestState_ValidateUnknownRequirement(t *testing.T) {
	state := NewState(sampleSession())
	if err := state.Validate(StateRequirement("bogus")); err == nil {
		t.Error("unknown requirement should error")
	}
}

func TestState_AddUsage(t *testing.T) {
	state := NewState(sampleSession())

	state.AddUsage(&ralphflow.InvokeResult{TokensIn: 100, TokensOut: 40, Cost: 0.02})
	state.AddUsage(&ralphflow.InvokeResult{TokensIn: 50, TokensOut: 10, Cost: 0.01})
	state.AddUsage(nil)

	if state.TotalTokensIn != 150 || state.TotalTokensOut != 50 {
		t.Errorf("tokens = %d/%d, want 150/50", state.TotalTokensIn, state.TotalTokensOut)
	}
	if state.TotalCost != 0.03 {
		t.Errorf("TotalCost = %f, want 0.03", state.TotalCost)
	}
}

func TestState_SetError(t *testing.T) {
	state := NewState(sampleSession())

	state.SetError(nil)
	if state.HasError() {
		t.Error("SetError(nil) should not record an error")
	}

	state.SetError(errors.New("boom"))
	if !state.HasError() || state.Error != "boom" {
		t.Errorf("Error = %q, want boom", state.Error)
	}
}

func TestState_Summary(t *testing.T) {
	state := NewState(sampleSession())
	summary := state.Summary()
	if !strings.Contains(summary, "sess-1") || !strings.Contains(summary, "Add login flow") {
		t.Errorf("Summary = %q, want session id and title", summary)
	}

	state.SetError(errors.New("boom"))
	if !strings.Contains(state.Summary(), "failed") {
		t.Errorf("Summary after error = %q, want failed status", state.Summary())
	}
}
