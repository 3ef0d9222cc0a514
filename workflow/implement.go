package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/marker"
	"github.com/clrke/ralphflow/notify"
	"github.com/clrke/ralphflow/prompt"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// ImplementNode runs the implementing stage: the assistant works through
// the approved plan, emitting a completion marker per finished step.
//
// Prerequisites: plan approved, session active at implementing
// Updates: plan step statuses, state.Parsed.StepCompletions; session
// advances to pr_creation once the implementation-complete marker appears
func ImplementNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireSession, RequirePlan); err != nil {
		return state, err
	}
	if !state.Session.PlanApproved {
		return state, fmt.Errorf("implement: %w", ralphflow.ErrPlanNotApproved)
	}

	state, err := invokeStage(ctx, state, ralphflow.StageImplementing, prompt.Implementing, map[string]any{
		"Title":       state.Title,
		"PlanSummary": planSummary(state),
	})
	if err != nil {
		return state, err
	}

	state = applyStepCompletions(ctx, state)
	broadcastImplementationStatus(ctx, state)

	if !state.Parsed.ImplementationComplete {
		err := fmt.Errorf("implementation did not signal completion")
		state.SetError(err)
		return state, err
	}

	lifecycle := MustLifecycleFrom(ctx)
	session, err := lifecycle.AdvanceStage(state.SessionID, state.Session.DataVersion, ralphflow.StagePRCreation)
	if err != nil {
		state.SetError(err)
		return state, err
	}
	return refreshSession(state, session), nil
}

// applyStepCompletions marks completed plan steps and broadcasts progress.
func applyStepCompletions(ctx flowgraph.Context, state State) State {
	if state.Plan == nil || len(state.Parsed.StepCompletions) == 0 {
		return state
	}

	broadcaster := notify.BroadcasterFromContext(ctx)
	done := 0
	for _, completion := range state.Parsed.StepCompletions {
		step := state.Plan.Step(completion.ID)
		if step == nil {
			// Tolerate "step-N" vs "N" id styles.
			step = state.Plan.Step("step-" + completion.ID)
		}
		if step == nil {
			continue
		}
		step.Status = marker.StepCompleted
		done++

		if broadcaster != nil {
			broadcaster.Broadcast(ctx, notify.Event{
				Type:      notify.EventStepCompleted,
				Channel:   notify.Channel{ProjectID: state.ProjectID, FeatureID: state.FeatureID},
				SessionID: state.SessionID,
				Message:   completion.Summary,
				Payload:   map[string]any{"stepId": completion.ID},
			})
		}
	}

	if done > 0 {
		state.Plan.Touch()
		if err := persistPlan(ctx, state); err != nil {
			// Progress tracking is best-effort; the completion markers
			// remain in the raw output.
			slog.Warn("persist plan progress failed", "sessionId", state.SessionID, "error", err)
		}
	}
	return state
}

// broadcastImplementationStatus publishes the assistant's reported progress:
// a stepStarted event for the step currently in flight and an
// implementationProgress event with the completed/total counts.
func broadcastImplementationStatus(ctx flowgraph.Context, state State) {
	status := state.Parsed.ImplementationStatus
	broadcaster := notify.BroadcasterFromContext(ctx)
	if status == nil || broadcaster == nil {
		return
	}

	channel := notify.Channel{ProjectID: state.ProjectID, FeatureID: state.FeatureID}
	if status.CurrentStepID != "" {
		broadcaster.Broadcast(ctx, notify.Event{
			Type:      notify.EventStepStarted,
			Channel:   channel,
			SessionID: state.SessionID,
			Message:   "working on " + status.CurrentStepID,
			Payload:   map[string]any{"stepId": status.CurrentStepID},
		})
	}
	broadcaster.Broadcast(ctx, notify.Event{
		Type:      notify.EventImplementationProgress,
		Channel:   channel,
		SessionID: state.SessionID,
		Message:   status.Summary,
		Payload: map[string]any{
			"completedSteps": status.CompletedSteps,
			"totalSteps":     status.TotalSteps,
		},
	})
}

// planSummary renders the plan's steps as a compact ordered list for the
// implementing prompt.
func planSummary(state State) string {
	if state.Plan == nil {
		return ""
	}
	var b strings.Builder
	for _, step := range state.Plan.Steps {
		fmt.Fprintf(&b, "%s [%s]: %s\n", step.ID, step.Status, step.Title)
	}
	return b.String()
}
