// Package marker extracts typed records from assistant output text.
//
// Assistants communicate structured results back to the workflow by embedding
// bracket-delimited marker regions in otherwise free-form text:
//
//	[DECISION priority="2" category="architecture"]
//	Which storage backend should we use?
//	- Option A: SQLite (recommended)
//	- Option B: Flat files
//	[/DECISION]
//
// Parse never fails: malformed or partial input degrades to documented
// per-field defaults. A parallel composable-plan marker vocabulary
// (PLAN_META, PLAN_STEP, PLAN_DEPENDENCIES, PLAN_TEST_COVERAGE,
// PLAN_ACCEPTANCE_MAPPING) is extracted by ExtractComposablePlan.
package marker
