package workflow

import (
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
)

// BuildGraph assembles the seven-stage pipeline. The completed stage has no
// node of its own; the final-approval resolution moves the session there.
func BuildGraph() (*flowgraph.CompiledGraph[State], error) {
	graph := flowgraph.NewGraph[State]().
		AddNode("discovery", DiscoveryNode).
		AddNode("planning", PlanningNode).
		AddNode("implement", ImplementNode).
		AddNode("create-pr", CreatePRNode).
		AddNode("review", ReviewNode).
		AddNode("final-approval", FinalApprovalNode).
		AddEdge("discovery", "planning").
		AddEdge("planning", "implement").
		AddEdge("implement", "create-pr").
		AddEdge("create-pr", "review").
		AddEdge("review", "final-approval").
		AddEdge("final-approval", flowgraph.END).
		SetEntry("discovery")

	return graph.Compile()
}
