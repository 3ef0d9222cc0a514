package marker

import (
	"regexp"
	"strings"
)

// Parse extracts every typed record from one assistant response. It never
// fails and never panics: malformed regions are skipped, missing attributes
// take their documented defaults.
func Parse(text string) ParsedOutput {
	out := ParsedOutput{
		Decisions:       []Decision{},
		Steps:           []Step{},
		StepCompletions: []StepCompletion{},
	}

	var formal []StepCompletion
	for _, tok := range Tokenize(text) {
		switch tok.Name {
		case TagDecision:
			out.Decisions = append(out.Decisions, parseDecision(tok))
		case TagPlanStep:
			out.Steps = append(out.Steps, parseStep(tok))
		case TagStepComplete:
			sc := StepCompletion{
				ID:      tok.Attrs.String("id", ""),
				Summary: strings.TrimSpace(tok.Body),
				Formal:  true,
			}
			if sc.ID == "" {
				continue
			}
			formal = append(formal, sc)
		case TagPlanModeEntered:
			out.PlanModeEntered = true
		case TagPlanModeExited:
			out.PlanModeExited = true
		case TagPlanApproved:
			out.PlanApproved = true
		case TagImplementationComplete:
			out.ImplementationComplete = true
		case TagPlanFile:
			out.PlanFilePath = tok.Attrs.String("path", strings.TrimSpace(tok.Body))
		case TagImplementationStatus:
			out.ImplementationStatus = &ImplementationStatus{
				CompletedSteps: tok.Attrs.Int("completedSteps", 0),
				TotalSteps:     tok.Attrs.Int("totalSteps", 0),
				CurrentStepID:  tok.Attrs.String("currentStep", ""),
				Summary:        strings.TrimSpace(tok.Body),
			}
		case TagPRCreated:
			out.PRCreated = &PRCreated{
				Number: tok.Attrs.Int("number", 0),
				URL:    tok.Attrs.String("url", ""),
				Branch: tok.Attrs.String("branch", ""),
			}
		}
	}

	if len(formal) > 0 {
		last := formal[len(formal)-1]
		out.LastStepComplete = &last
	}
	out.StepCompletions = reconcileCompletions(formal, plainCompletions(text))

	return out
}

// =============================================================================
// Decisions
// =============================================================================

// optionLine matches exactly `- Option <Letter>: <label>` with an optional
// trailing "(recommended)". Any other bullet stays in the question text so
// explanatory lists are not misread as answer choices.
var optionLine = regexp.MustCompile(`^-\s+Option\s+([A-Za-z]):\s*(.+?)(\s*\((?i:recommended)\))?\s*$`)

func parseDecision(tok Token) Decision {
	d := Decision{
		Priority: tok.Attrs.Int("priority", DefaultDecisionPriority),
		Category: tok.Attrs.String("category", ""),
		File:     tok.Attrs.String("file", ""),
		Line:     tok.Attrs.Int("line", 0),
	}

	var question []string
	for _, line := range strings.Split(tok.Body, "\n") {
		m := optionLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			question = append(question, line)
			continue
		}
		d.Options = append(d.Options, DecisionOption{
			Label:       strings.TrimSpace(m[2]),
			Recommended: m[3] != "",
		})
	}
	d.Question = strings.TrimSpace(strings.Join(question, "\n"))
	return d
}

// =============================================================================
// Plan Steps
// =============================================================================

func parseStep(tok Token) Step {
	return Step{
		ID:                    tok.Attrs.String("id", ""),
		ParentID:              tok.Attrs.String("parent", ""),
		OrderIndex:            tok.Attrs.Int("order", 0),
		Title:                 tok.Attrs.String("title", ""),
		Description:           strings.TrimSpace(tok.Body),
		Status:                stepStatus(tok.Attrs),
		Complexity:            stepComplexity(tok.Attrs),
		AcceptanceCriteriaIDs: splitList(tok.Attrs.String("acceptanceCriteria", "")),
		EstimatedFiles:        splitList(tok.Attrs.String("estimatedFiles", "")),
	}
}

func stepStatus(attrs AttrSet) string {
	switch s := attrs.String("status", StepPending); s {
	case StepPending, StepInProgress, StepCompleted, StepBlocked, StepSkipped, StepNeedsReview:
		return s
	default:
		return StepPending
	}
}

func stepComplexity(attrs AttrSet) string {
	switch c := attrs.String("complexity", ""); c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return c
	default:
		return ""
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// Step Completion Reconciliation
// =============================================================================

// Plain-text completion signals recognized alongside formal STEP_COMPLETE
// markers. N is digits or step-<digits>.
var plainCompletionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\*\*Step\s+((?:step-)?\d+)\s+Complete\*\*`),
	regexp.MustCompile(`(?im)^#{2,}\s*Step\s+((?:step-)?\d+)\s+Complete\b`),
	regexp.MustCompile(`(?i)\bStep\s+((?:step-)?\d+)\s+Done\b`),
}

type plainMention struct {
	id     string
	offset int
}

func plainCompletions(text string) []plainMention {
	var mentions []plainMention
	for _, pat := range plainCompletionPatterns {
		for _, m := range pat.FindAllStringSubmatchIndex(text, -1) {
			mentions = append(mentions, plainMention{
				id:     text[m[2]:m[3]],
				offset: m[0],
			})
		}
	}
	return mentions
}

// canonicalStepID folds "step-5" and "5" together for deduplication.
func canonicalStepID(id string) string {
	return strings.TrimPrefix(strings.ToLower(id), "step-")
}

// reconcileCompletions collapses formal markers and plain-text mentions into
// one record per step. Formal records come first and their summary wins.
func reconcileCompletions(formal []StepCompletion, mentions []plainMention) []StepCompletion {
	out := []StepCompletion{}
	seen := map[string]bool{}

	for _, sc := range formal {
		key := canonicalStepID(sc.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sc)
	}
	for _, m := range mentions {
		key := canonicalStepID(m.id)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, StepCompletion{ID: m.id})
	}
	return out
}
