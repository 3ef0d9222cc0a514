package workflow

import (
	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/pr"
	"github.com/clrke/ralphflow/prompt"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// ReviewNode runs the pr_review stage: the assistant reviews the pull
// request against the plan's acceptance criteria.
//
// Prerequisites: PR attached, session active at pr_review
// Updates: state.ReviewSummary; the PR description is refreshed from the
// plan, the review is posted as a PR comment, and configured reviewers are
// re-requested when a provider is available; session advances to
// final_approval
func ReviewNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireSession, RequirePR); err != nil {
		return state, err
	}

	cfg := nodeConfigFrom(ctx)
	provider := pr.ProviderFromContext(ctx)

	if provider != nil && state.Plan != nil {
		// The plan may have been reworked since the PR opened; bring the
		// description back in sync before reviewing against it.
		body := buildPROptions(state, cfg).Body
		_, _ = provider.UpdatePR(ctx, state.Session.PRNumber, pr.UpdateOptions{Body: &body})
	}

	state, err := invokeStage(ctx, state, ralphflow.StagePRReview, prompt.PRReview, map[string]any{
		"Title":    state.Title,
		"PRURL":    state.Session.PRURL,
		"Feedback": state.Session.PlanFeedback,
	})
	if err != nil {
		return state, err
	}
	state.ReviewSummary = state.RawOutput

	if provider != nil && state.ReviewSummary != "" {
		comment := prompt.NewBuilder().
			AddSection("Review summary", state.ReviewSummary).
			Build()
		// Best-effort; the review text stays on the state either way.
		_ = provider.AddComment(ctx, state.Session.PRNumber, comment)
		if len(cfg.Reviewers) > 0 {
			_ = provider.RequestReview(ctx, state.Session.PRNumber, cfg.Reviewers)
		}
	}

	lifecycle := MustLifecycleFrom(ctx)
	session, err := lifecycle.AdvanceStage(state.SessionID, state.Session.DataVersion, ralphflow.StageFinalApproval)
	if err != nil {
		state.SetError(err)
		return state, err
	}
	return refreshSession(state, session), nil
}
