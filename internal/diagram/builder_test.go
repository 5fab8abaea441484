package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/oscaptool/pkg/schema"
)

func action(selector, next string) schema.ActionDescriptor {
	return schema.ActionDescriptor{Type: selector, Config: map[string]any{schema.NextActionKey: next}}
}

func linearWorkflow() *schema.WorkflowDescriptor {
	return &schema.WorkflowDescriptor{
		ID:            "show-scan-result",
		Description:   "Print a stored scan result.",
		InitialAction: "fetch_result",
		Actions: map[string]schema.ActionDescriptor{
			"fetch_result": action("scan.fetch_result", "print"),
			"print":        action("output.print", ""),
		},
	}
}

func cyclicWorkflow() *schema.WorkflowDescriptor {
	return &schema.WorkflowDescriptor{
		ID:            "loop",
		InitialAction: "a",
		Actions: map[string]schema.ActionDescriptor{
			"a":      action("data.transform", "b"),
			"b":      action("data.assert", "a"),
			"orphan": action("output.print", ""),
		},
	}
}

func nodeIDs(model *DiagramModel) []string {
	ids := make([]string, len(model.Nodes))
	for i, n := range model.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestBuildLinear(t *testing.T) {
	model := Build(linearWorkflow(), nil)

	assert.Equal(t, "show-scan-result: Print a stored scan result.", model.Title)
	assert.Equal(t, []string{StartID, "fetch_result", "print", EndID}, nodeIDs(model))
	assert.Equal(t, []Edge{
		{From: StartID, To: "fetch_result"},
		{From: "fetch_result", To: "print"},
		{From: "print", To: EndID},
	}, model.Edges)

	fetch := findNode(model.Nodes, "fetch_result")
	require.NotNil(t, fetch)
	assert.Equal(t, "scan.fetch_result", fetch.Selector)
	assert.Equal(t, NodeKindAction, fetch.Kind)
	assert.True(t, fetch.Reachable)
	assert.Nil(t, fetch.Status)
}

func TestBuildCycleAndUnreachable(t *testing.T) {
	model := Build(cyclicWorkflow(), nil)

	assert.Equal(t, []string{StartID, "a", "b", "orphan", EndID}, nodeIDs(model))
	assert.Contains(t, model.Edges, Edge{From: "b", To: "a"})
	assert.Contains(t, model.Edges, Edge{From: "orphan", To: EndID})
	assert.False(t, findNode(model.Nodes, "orphan").Reachable)
	assert.True(t, findNode(model.Nodes, "b").Reachable)
}

func TestBuildMissingNextAction(t *testing.T) {
	wf := linearWorkflow()
	wf.Actions["print"] = schema.ActionDescriptor{Type: "output.print", Config: map[string]any{}}

	model := Build(wf, nil)
	for _, e := range model.Edges {
		assert.NotEqual(t, "print", e.From)
	}
}

func TestBuildTraceOverlay(t *testing.T) {
	trace := []schema.Event{
		{Type: schema.EventWorkflowStarted},
		{Type: schema.EventActionStarted, Action: "fetch_result", Step: 1},
		{Type: schema.EventActionCompleted, Action: "fetch_result", Step: 1},
		{Type: schema.EventActionStarted, Action: "print", Step: 2},
		{Type: schema.EventActionFailed, Action: "print", Step: 2, Error: "boom"},
		{Type: schema.EventWorkflowFailed},
	}

	model := Build(linearWorkflow(), trace)

	fetch := findNode(model.Nodes, "fetch_result")
	require.NotNil(t, fetch.Status)
	assert.Equal(t, "completed", fetch.Status.Status)
	assert.Equal(t, 1, fetch.Status.Runs)

	printNode := findNode(model.Nodes, "print")
	require.NotNil(t, printNode.Status)
	assert.Equal(t, "failed", printNode.Status.Status)
	assert.Equal(t, 2, printNode.Status.Step)
	assert.Equal(t, "boom", printNode.Status.Error)
}

func TestBuildTraceCountsRepeatedRuns(t *testing.T) {
	trace := []schema.Event{
		{Type: schema.EventActionStarted, Action: "a", Step: 1},
		{Type: schema.EventActionCompleted, Action: "a", Step: 1},
		{Type: schema.EventActionStarted, Action: "b", Step: 2},
		{Type: schema.EventActionCompleted, Action: "b", Step: 2},
		{Type: schema.EventActionStarted, Action: "a", Step: 3},
	}

	model := Build(cyclicWorkflow(), trace)
	a := findNode(model.Nodes, "a")
	assert.Equal(t, 2, a.Status.Runs)
	assert.Equal(t, "running", a.Status.Status)
	assert.Equal(t, 3, a.Status.Step)
}
