package ralphflow

import (
	"strings"
	"testing"
)

func TestStage_Valid(t *testing.T) {
	for s := StageDiscovery; s <= StageCompleted; s++ {
		if !s.Valid() {
			t.Errorf("Stage(%d).Valid() = false, want true", s)
		}
	}
	for _, s := range []Stage{0, 8, -1} {
		if s.Valid() {
			t.Errorf("Stage(%d).Valid() = true, want false", s)
		}
	}
}

func TestStage_String(t *testing.T) {
	if got := StagePlanning.String(); got != "2 (planning)" {
		t.Errorf("String() = %q, want %q", got, "2 (planning)")
	}
	if got := Stage(99).String(); got != "99" {
		t.Errorf("String() = %q, want %q", got, "99")
	}
}

func TestStatusForStage(t *testing.T) {
	tests := []struct {
		stage Stage
		want  Status
	}{
		{StageDiscovery, StatusDiscovery},
		{StageImplementing, StatusImplementing},
		{StageFinalApproval, StatusFinalApproval},
		{StageCompleted, StatusCompleted},
		{Stage(0), StatusDiscovery},
	}
	for _, tt := range tests {
		if got := StatusForStage(tt.stage); got != tt.want {
			t.Errorf("StatusForStage(%d) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%q.Terminal() = false, want true", s)
		}
	}
	for _, s := range []Status{StatusQueued, StatusDiscovery, StatusPaused, StatusFinalApproval} {
		if s.Terminal() {
			t.Errorf("%q.Terminal() = true, want false", s)
		}
	}
}

func TestStatus_Active(t *testing.T) {
	for _, s := range []Status{StatusDiscovery, StatusPlanning, StatusImplementing, StatusPRCreation, StatusPRReview, StatusFinalApproval} {
		if !s.Active() {
			t.Errorf("%q.Active() = false, want true", s)
		}
	}
	// Queued and paused sessions do not hold the active slot.
	for _, s := range []Status{StatusQueued, StatusPaused, StatusCompleted, StatusFailed} {
		if s.Active() {
			t.Errorf("%q.Active() = true, want false", s)
		}
	}
}

func TestSession_HasPR(t *testing.T) {
	s := &Session{}
	if s.HasPR() {
		t.Error("empty session should have no PR")
	}
	if !(&Session{PRNumber: 5}).HasPR() {
		t.Error("session with PR number should have PR")
	}
	if !(&Session{PRURL: "https://example.com/pr/5"}).HasPR() {
		t.Error("session with PR URL should have PR")
	}
}

func TestSession_Touch(t *testing.T) {
	s := &Session{DataVersion: 1}
	s.touch()
	if s.DataVersion != 2 {
		t.Errorf("DataVersion = %d, want 2", s.DataVersion)
	}
	if s.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestSession_Paths(t *testing.T) {
	s := &Session{ProjectID: "proj-a", FeatureID: "feat-x"}
	if got := s.DocumentPath(); got != "projects/proj-a/features/feat-x/session.json" {
		t.Errorf("DocumentPath = %q", got)
	}
	if got := s.PlanPath(); got != "projects/proj-a/features/feat-x/plan.json" {
		t.Errorf("PlanPath = %q", got)
	}
}

func TestNewSessionID(t *testing.T) {
	a, b := newSessionID(), newSessionID()
	if !strings.HasPrefix(a, "sess-") {
		t.Errorf("id = %q, want sess- prefix", a)
	}
	if a == b {
		t.Error("ids should be unique")
	}
}
