package ralphflow

// ApprovalAction is a reviewer decision submitted during final approval.
type ApprovalAction string

const (
	// ActionMerge merges the pull request and completes the session.
	ActionMerge ApprovalAction = "merge"
	// ActionPlanChanges sends the session back to planning with feedback.
	ActionPlanChanges ApprovalAction = "plan_changes"
	// ActionReReview sends the session back to pr_review with feedback.
	ActionReReview ApprovalAction = "re_review"
)

// approvalOutcome describes where an approval action lands a session.
type approvalOutcome struct {
	status           Status
	stage            Stage
	requiresFeedback bool
	clearsTracking   bool
}

// approvalTable is the explicit outcome map for final approval decisions.
var approvalTable = map[ApprovalAction]approvalOutcome{
	ActionMerge: {
		status: StatusCompleted,
		stage:  StageCompleted,
	},
	ActionPlanChanges: {
		status:           StatusPlanning,
		stage:            StagePlanning,
		requiresFeedback: true,
		clearsTracking:   true,
	},
	ActionReReview: {
		status:           StatusPRReview,
		stage:            StagePRReview,
		requiresFeedback: true,
	},
}

// CanAdvance reports whether a session in status may enter target. An active
// working session may move to any other stage, forward or backward; entry
// gates are checked separately. Queued, paused, and terminal sessions do not
// advance directly; they are promoted or resumed first.
func CanAdvance(status Status, target Stage) bool {
	if !status.Active() {
		return false
	}
	return target.Valid() && StatusForStage(target) != status
}

// checkStageEntry enforces per-stage entry preconditions on top of the
// ordering rules.
func checkStageEntry(s *Session, target Stage) error {
	switch target {
	case StageImplementing:
		if !s.PlanApproved {
			return ErrPlanNotApproved
		}
	case StageFinalApproval, StageCompleted:
		if !s.HasPR() {
			return ErrPRMissing
		}
	}
	return nil
}
