// Package ralphflow drives AI-assisted feature development through a
// seven-stage pipeline: discovery, planning, implementing, pr_creation,
// pr_review, final_approval, completed.
//
// The root package owns the session lifecycle: the per-project queue with
// its single active slot, stage transitions and their entry gates, the
// optimistic version counter, and the admission lock that keeps one
// assistant invocation in flight per session. It also wraps the external
// assistant CLI.
//
// The subpackages are organized by domain:
//
//   - marker: bracket-delimited marker extraction from assistant output
//   - plan: the canonical plan document and its validator
//   - workflow: stage nodes and the flowgraph pipeline
//   - prompt: stage prompt templates with project overrides
//   - pr: pull request providers for GitHub and GitLab
//   - notify: event broadcasting (log, webhook, Slack)
//   - storage: JSON document persistence
//   - task: task-based model selection
//   - config: hierarchical configuration
//
// # Quick Start
//
//	store, _ := storage.NewFileStore(".ralphflow/data")
//	lifecycle := ralphflow.NewLifecycle(store)
//
//	session, _ := lifecycle.CreateSession(ralphflow.CreateParams{
//	    ProjectID: "acme",
//	    FeatureID: "rate-limits",
//	    Title:     "Add per-tenant rate limits",
//	})
//
//	graph, _ := workflow.BuildGraph()
//	// Inject services via workflow.WithLifecycle et al, then run the
//	// graph over workflow.NewState(*session).
//
// See individual package documentation for detailed usage.
package ralphflow
