// Package diagram renders a workflow's next_action chain as ASCII, Mermaid or
// a graphviz image, optionally overlaid with the outcome of a run.
package diagram

// NodeKind classifies a diagram node.
type NodeKind string

const (
	NodeKindAction NodeKind = "action"
	NodeKindStart  NodeKind = "start"
	NodeKindEnd    NodeKind = "end"
)

// Node IDs of the virtual start and end nodes.
const (
	StartID = "__start__"
	EndID   = "__end__"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title string
	Nodes []*Node
	Edges []Edge
}

// Node represents a single action descriptor, or the virtual start/end.
type Node struct {
	ID        string
	Label     string
	Selector  string
	Kind      NodeKind
	Reachable bool
	Status    *StatusOverlay
}

// StatusOverlay carries the last observed run state of a node.
type StatusOverlay struct {
	Status string // running, completed or failed
	Step   int
	Runs   int
	Error  string
}

// Edge is a next_action pointer between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// findNode looks up a node by ID in the model's node list.
func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
