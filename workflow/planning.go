package workflow

import (
	"fmt"

	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/marker"
	"github.com/clrke/ralphflow/plan"
	"github.com/clrke/ralphflow/prompt"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// PlanningNode runs the planning stage. The assistant emits a composable
// plan in marker form; the node assembles and validates it, sending the
// assistant structured rework context until the plan passes or the attempt
// budget runs out.
//
// Prerequisites: session active at planning
// Updates: state.Plan, state.Validation; plan persisted; session advances
// to implementing once the plan is approved
func PlanningNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireSession); err != nil {
		return state, err
	}

	cfg := nodeConfigFrom(ctx)

	state, err := invokeStage(ctx, state, ralphflow.StagePlanning, prompt.Planning, map[string]any{
		"Title":       state.Title,
		"Description": state.Session.Description,
		"Feedback":    state.Session.PlanFeedback,
	})
	if err != nil {
		return state, err
	}

	for {
		state.PlanAttempts++

		composable := marker.ExtractComposablePlan(state.RawOutput)
		if composable == nil {
			err := fmt.Errorf("planning output contains no plan steps")
			if state.PlanAttempts >= cfg.MaxPlanAttempts {
				state.SetError(err)
				return state, err
			}
			state, err = reworkPlan(ctx, state, []string{"no plan steps were emitted; use the structured plan markers"}, nil)
			if err != nil {
				return state, err
			}
			continue
		}

		p := plan.FromComposable(state.SessionID, composable)
		result := plan.Validate(p)
		state.Plan = p
		state.Validation = result

		if result.Overall {
			break
		}
		if state.PlanAttempts >= cfg.MaxPlanAttempts {
			err := fmt.Errorf("plan failed validation after %d attempts", state.PlanAttempts)
			state.SetError(err)
			return state, err
		}

		var problems []string
		for _, verr := range result.AllErrors() {
			problems = append(problems, fmt.Sprintf("%s: %s", verr.Section, verr.Message))
		}
		state, err = reworkPlan(ctx, state, problems, result.StepsMissingComplexity())
		if err != nil {
			return state, err
		}
	}

	if err := persistPlan(ctx, state); err != nil {
		state.SetError(err)
		return state, err
	}

	lifecycle := MustLifecycleFrom(ctx)

	approved := state.Parsed.PlanApproved || cfg.AutoApprovePlans
	if !approved {
		// A human approves through the API; the pipeline stops here and
		// resumes at implementing.
		return state, nil
	}

	session, err := lifecycle.ApprovePlan(state.SessionID, state.Session.DataVersion)
	if err != nil {
		state.SetError(err)
		return state, err
	}
	state = refreshSession(state, session)

	session, err = lifecycle.AdvanceStage(state.SessionID, state.Session.DataVersion, ralphflow.StageImplementing)
	if err != nil {
		state.SetError(err)
		return state, err
	}
	return refreshSession(state, session), nil
}

// reworkPlan sends validation problems back to the assistant and replaces
// the raw output with its corrected plan.
func reworkPlan(ctx flowgraph.Context, state State, problems, missingComplexity []string) (State, error) {
	return invokeStage(ctx, state, ralphflow.StagePlanning, prompt.PlanRework, map[string]any{
		"Title":                  state.Title,
		"Problems":               problems,
		"StepsMissingComplexity": missingComplexity,
	})
}

// persistPlan writes the assembled plan to the session's plan document.
func persistPlan(ctx flowgraph.Context, state State) error {
	store := StoreFrom(ctx)
	if store == nil {
		return nil
	}
	return store.WriteJSON(state.Session.PlanPath(), state.Plan)
}
