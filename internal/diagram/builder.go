package diagram

import (
	"sort"

	"github.com/rendis/oscaptool/pkg/schema"
)

// Build constructs a DiagramModel from a workflow descriptor and an optional
// run trace. Actions are ordered by following next_action from the initial
// action; actions the walk never reaches come last, sorted by name.
func Build(wf *schema.WorkflowDescriptor, trace []schema.Event) *DiagramModel {
	order := walkOrder(wf)
	reachable := make(map[string]bool, len(order))
	for _, name := range order {
		reachable[name] = true
	}
	rest := make([]string, 0, len(wf.Actions))
	for name := range wf.Actions {
		if !reachable[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	nodes := make([]*Node, 0, len(wf.Actions)+2)
	nodes = append(nodes, &Node{ID: StartID, Label: "Start", Kind: NodeKindStart, Reachable: true})
	for _, name := range append(order, rest...) {
		desc := wf.Actions[name]
		nodes = append(nodes, &Node{
			ID:        name,
			Label:     name + "\n" + desc.Type,
			Selector:  desc.Type,
			Kind:      NodeKindAction,
			Reachable: reachable[name],
		})
	}
	nodes = append(nodes, &Node{ID: EndID, Label: "End", Kind: NodeKindEnd, Reachable: true})

	overlayTrace(nodes, trace)

	return &DiagramModel{
		Title: titleFor(wf),
		Nodes: nodes,
		Edges: buildEdges(wf, nodes),
	}
}

// walkOrder follows next_action from the initial action until it terminates,
// dangles or revisits an action.
func walkOrder(wf *schema.WorkflowDescriptor) []string {
	var order []string
	seen := make(map[string]bool)
	cur := wf.InitialAction
	for cur != "" && !seen[cur] {
		desc, ok := wf.Actions[cur]
		if !ok {
			break
		}
		seen[cur] = true
		order = append(order, cur)
		next, _ := desc.NextAction()
		cur = next
	}
	return order
}

func buildEdges(wf *schema.WorkflowDescriptor, nodes []*Node) []Edge {
	var edges []Edge
	if _, ok := wf.Actions[wf.InitialAction]; ok {
		edges = append(edges, Edge{From: StartID, To: wf.InitialAction})
	}
	for _, n := range nodes {
		if n.Kind != NodeKindAction {
			continue
		}
		next, ok := wf.Actions[n.ID].NextAction()
		switch {
		case !ok:
			// no next_action configured: the run fails after this action
		case next == "":
			edges = append(edges, Edge{From: n.ID, To: EndID})
		default:
			edges = append(edges, Edge{From: n.ID, To: next})
		}
	}
	return edges
}

// overlayTrace marks each action with the last state the run reported for it.
func overlayTrace(nodes []*Node, trace []schema.Event) {
	for _, ev := range trace {
		var status string
		switch ev.Type {
		case schema.EventActionStarted:
			status = "running"
		case schema.EventActionCompleted:
			status = "completed"
		case schema.EventActionFailed:
			status = "failed"
		default:
			continue
		}
		node := findNode(nodes, ev.Action)
		if node == nil {
			continue
		}
		if node.Status == nil {
			node.Status = &StatusOverlay{}
		}
		if ev.Type == schema.EventActionStarted {
			node.Status.Runs++
		}
		node.Status.Status = status
		node.Status.Step = ev.Step
		node.Status.Error = ev.Error
	}
}

func titleFor(wf *schema.WorkflowDescriptor) string {
	if wf.Description != "" {
		return wf.ID + ": " + wf.Description
	}
	return wf.ID
}
