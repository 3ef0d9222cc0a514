// Package workflow wires the pipeline stages into a flowgraph graph.
//
// Each stage node invokes the assistant under the session's admission lock,
// extracts markers from its output, and records the results on the session
// through the lifecycle manager. BuildGraph assembles the seven-stage
// pipeline; individual nodes are exported so callers can run a single stage
// or compose a custom graph.
package workflow
