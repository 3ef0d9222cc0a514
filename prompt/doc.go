// Package prompt provides prompt template loading for the pipeline stages.
//
// Each stage that invokes the assistant has an embedded default template
// (discovery, planning, implementing, pr_creation, pr_review,
// final_approval, plan_rework) carrying the marker vocabulary the assistant
// must emit. Projects override any of them by dropping a same-named .txt
// file in .ralphflow/prompts/.
//
// Example usage:
//
//	loader := prompt.NewLoader(projectDir)
//	text, err := loader.LoadWithVars(prompt.Planning, map[string]any{
//	    "Title":       session.Title,
//	    "Description": session.Description,
//	})
package prompt
