package task

import (
	"github.com/randalmurphal/llmkit/model"
)

// Type represents the kind of work a pipeline stage asks of the assistant.
// This determines which model tier is appropriate.
type Type string

const (
	// Discovery and planning - need reasoning
	Discover Type = "discover"
	Plan     Type = "plan"

	// Standard dev tasks - default tier
	Implement  Type = "implement"
	Review     Type = "review"
	Fix        Type = "fix"
	ReworkPlan Type = "rework_plan"

	// Fast tasks - can use smaller models
	Summarize Type = "summarize"
	DraftPR   Type = "draft_pr"
	Classify  Type = "classify"
)

// DefaultModelMap maps task types to default models.
var DefaultModelMap = map[Type]model.ModelName{
	Discover:   model.ModelOpus,
	Plan:       model.ModelOpus,
	Implement:  model.ModelSonnet,
	Review:     model.ModelSonnet,
	Fix:        model.ModelSonnet,
	ReworkPlan: model.ModelSonnet,
	Summarize:  model.ModelHaiku,
	DraftPR:    model.ModelHaiku,
	Classify:   model.ModelHaiku,
}

// TierForTask returns the appropriate tier for a task type.
func TierForTask(t Type) model.Tier {
	switch t {
	case Discover, Plan:
		return model.TierThinking
	case Summarize, DraftPR, Classify:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector configured for workflow tasks.
// It uses the standard task-to-tier mapping.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if t, ok := task.(Type); ok {
				return TierForTask(t)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the appropriate model for a task type.
// Uses the default model map unless overridden.
func SelectModel(t Type) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	switch TierForTask(t) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}
