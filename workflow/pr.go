package workflow

import (
	"errors"
	"fmt"

	ralphflow "github.com/clrke/ralphflow"
	"github.com/clrke/ralphflow/pr"
	"github.com/clrke/ralphflow/prompt"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// CreatePRNode runs the pr_creation stage. With a pr.Provider in context
// the node opens the pull request itself; otherwise the assistant opens it
// and reports it back through a PR_CREATED marker. Either way the artifact
// is recorded on the session before advancing.
//
// Prerequisites: implementation complete, session active at pr_creation
// Updates: session.PRNumber/PRURL; session advances to pr_review
func CreatePRNode(ctx flowgraph.Context, state State) (State, error) {
	if err := state.Validate(RequireSession); err != nil {
		return state, err
	}

	var number int
	var url string

	if provider := pr.ProviderFromContext(ctx); provider != nil {
		cfg := nodeConfigFrom(ctx)
		pullRequest, err := provider.CreatePR(ctx, buildPROptions(state, cfg))
		if errors.Is(err, pr.ErrExists) {
			// An open PR for the feature branch survives a restarted run;
			// pick it up instead of failing.
			open, listErr := provider.ListPRs(ctx, pr.Filter{
				State: pr.StateOpen,
				Head:  featureBranch(state.FeatureID),
			})
			if listErr == nil && len(open) > 0 {
				pullRequest, err = open[0], nil
			}
		}
		if err != nil {
			state.SetError(err)
			return state, err
		}
		number = pullRequest.ID
		url = pullRequest.HTMLURL
		if url == "" {
			url = pullRequest.URL
		}
	} else {
		var err error
		state, err = invokeStage(ctx, state, ralphflow.StagePRCreation, prompt.PRCreation, map[string]any{
			"Title": state.Title,
		})
		if err != nil {
			return state, err
		}
		if state.Parsed.PRCreated == nil {
			err := fmt.Errorf("assistant did not report a created pull request")
			state.SetError(err)
			return state, err
		}
		number = state.Parsed.PRCreated.Number
		url = state.Parsed.PRCreated.URL
	}

	lifecycle := MustLifecycleFrom(ctx)
	session, err := lifecycle.AttachPR(state.SessionID, state.Session.DataVersion, number, url)
	if err != nil {
		state.SetError(err)
		return state, err
	}
	state = refreshSession(state, session)

	session, err = lifecycle.AdvanceStage(state.SessionID, state.Session.DataVersion, ralphflow.StagePRReview)
	if err != nil {
		state.SetError(err)
		return state, err
	}
	return refreshSession(state, session), nil
}

// featureBranch names the branch a feature's work lands on.
func featureBranch(featureID string) string {
	return "ralphflow/" + featureID
}

// buildPROptions creates PR options from state.
func buildPROptions(state State, cfg NodeConfig) pr.Options {
	builder := pr.NewBuilder(state.Title).
		WithFeature(state.FeatureID).
		WithHead(featureBranch(state.FeatureID))

	var changes []string
	if state.Plan != nil {
		for _, step := range state.Plan.Steps {
			changes = append(changes, step.Title)
		}
	}
	summary := state.Session.Description
	if summary == "" {
		summary = "Implementation of " + state.Title + "."
	}
	builder.WithSummary(summary, changes, "")

	if len(cfg.Reviewers) > 0 {
		builder.WithReviewers(cfg.Reviewers...)
	}
	return builder.Build()
}
