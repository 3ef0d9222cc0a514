package workflow

import (
	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/prompt"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// DiscoveryNode runs the discovery stage: the assistant explores the
// codebase and surfaces decisions that need a human.
//
// Prerequisites: session active at discovery
// Updates: state.Parsed.Decisions; session advances to planning
func DiscoveryNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireSession); err != nil {
		return state, err
	}

	state, err := invokeStage(ctx, state, ralphflow.StageDiscovery, prompt.Discovery, map[string]any{
		"Title":       state.Title,
		"Description": state.Session.Description,
	})
	if err != nil {
		return state, err
	}

	lifecycle := MustLifecycleFrom(ctx)
	session, err := lifecycle.AdvanceStage(state.SessionID, state.Session.DataVersion, ralphflow.StagePlanning)
	if err != nil {
		state.SetError(err)
		return state, err
	}

	return refreshSession(state, session), nil
}
