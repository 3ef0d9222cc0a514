package workflow

import (
	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/pr"
	"github.com/clrke/ralphflow/prompt"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// FinalApprovalNode runs the final_approval stage: the assistant condenses
// the session into an approval summary for the human reviewer. The decision
// itself (merge, plan_changes, re_review) arrives through the lifecycle API
// unless AutoMerge unattended mode is on.
//
// Prerequisites: PR attached, session active at final_approval
// Updates: state.ApprovalSummary; with AutoMerge, the PR is merged and the
// session completes
func FinalApprovalNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireSession, RequirePR); err != nil {
		return state, err
	}

	state, err := invokeStage(ctx, state, ralphflow.StageFinalApproval, prompt.FinalApproval, map[string]any{
		"Title": state.Title,
	})
	if err != nil {
		return state, err
	}
	state.ApprovalSummary = state.RawOutput

	cfg := nodeConfigFrom(ctx)
	if !cfg.AutoMerge {
		return state, nil
	}

	if provider := pr.ProviderFromContext(ctx); provider != nil {
		current, err := provider.GetPR(ctx, state.Session.PRNumber)
		if err != nil {
			state.SetError(err)
			return state, err
		}
		// Someone may have merged out of band; then only the session
		// needs completing.
		if current.State != pr.StateMerged {
			if err := provider.MergePR(ctx, state.Session.PRNumber, pr.MergeOptions{
				Method:       pr.MergeMethodSquash,
				DeleteBranch: true,
			}); err != nil {
				state.SetError(err)
				return state, err
			}
		}
	}

	lifecycle := MustLifecycleFrom(ctx)
	session, err := lifecycle.ResolveFinalApproval(state.SessionID, state.Session.DataVersion, ralphflow.ActionMerge, "")
	if err != nil {
		state.SetError(err)
		return state, err
	}
	return refreshSession(state, session), nil
}
