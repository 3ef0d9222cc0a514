// Package plan defines the composable plan data model and its validator.
//
// A plan is the structured output of the planning stage: ordered steps with
// parent links, an independent dependency-edge list over the same step set,
// test coverage, and an acceptance-criteria mapping. Validation checks each
// section in isolation and then the cross-section invariants (reference
// resolution, dependency acyclicity), emitting structured error records
// rather than bare strings so callers never re-parse messages.
package plan
