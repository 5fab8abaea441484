package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/oscaptool/internal/actions"
	"github.com/rendis/oscaptool/internal/engine"
	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/internal/registry"
	"github.com/rendis/oscaptool/pkg/schema"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	f, err := actions.NewBuiltinFactory(actions.Deps{Logger: logging.Discard(), Stdout: io.Discard})
	require.NoError(t, err)
	reg, err := registry.LoadDefault(f)
	require.NoError(t, err)
	e := engine.New(reg, f, engine.Config{Logger: logging.Discard()})
	return NewServer(ServerDeps{Runner: e, Workflows: reg, Logger: logging.Discard()})
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func TestRunTool(t *testing.T) {
	s := newTestServer(t)

	req := buildRequest("oscaptool.run", map[string]any{
		"workflow_id": "show-scan-history",
		"inputs":      map[string]any{"results_dir": t.TempDir() + "/absent"},
	})

	result, err := s.handleRun(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	var out RunResult
	unmarshalResult(t, result, &out)
	assert.Equal(t, "show-scan-history", out.WorkflowID)
	assert.Equal(t, schema.RunStateCompleted, out.Status)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, []any{}, out.Bag["stdout_input"])
	assert.Nil(t, out.Error)

	var started []string
	for _, ev := range out.Trace {
		if ev.Type == schema.EventActionStarted {
			started = append(started, ev.Action)
		}
	}
	assert.Equal(t, []string{"list_history", "to_scan_ids", "print"}, started)
	assert.Equal(t, schema.EventWorkflowCompleted, out.Trace[len(out.Trace)-1].Type)
}

func TestRunToolActionFailure(t *testing.T) {
	s := newTestServer(t)

	req := buildRequest("oscaptool.run", map[string]any{
		"workflow_id": "comp-scan-results",
		"inputs": map[string]any{
			"results_dir": t.TempDir(),
			"scan_id_1":   "1_xccdf_eval",
			"scan_id_2":   "2_xccdf_eval",
		},
	})

	result, err := s.handleRun(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var out RunResult
	unmarshalResult(t, result, &out)
	assert.Equal(t, schema.RunStateFailed, out.Status)
	assert.Nil(t, out.Bag)
	require.NotNil(t, out.Error)
	assert.Equal(t, schema.ErrCodeActionExecution, out.Error.Code)
	assert.Equal(t, "fetch_first", out.Error.Action)
	assert.Equal(t, schema.EventWorkflowFailed, out.Trace[len(out.Trace)-1].Type)
}

func TestRunToolUnknownWorkflow(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleRun(context.Background(), buildRequest("oscaptool.run", map[string]any{
		"workflow_id": "scan-nope-nope",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var out RunResult
	unmarshalResult(t, result, &out)
	require.NotNil(t, out.Error)
	assert.Equal(t, schema.ErrCodeSetupFailure, out.Error.Code)
	assert.Equal(t, schema.ErrCodeUnknownWorkflow, out.Error.Cause)
}

func TestRunToolMissingWorkflowID(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleRun(context.Background(), buildRequest("oscaptool.run", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "workflow_id is required")
}

func TestWorkflowsTool(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleWorkflows(context.Background(), buildRequest("oscaptool.workflows", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Workflows []string `json:"workflows"`
	}
	unmarshalResult(t, result, &out)
	assert.Contains(t, out.Workflows, "scan-xccdf-eval")
	assert.Contains(t, out.Workflows, "comp-scan-results")
	assert.IsIncreasing(t, out.Workflows)
}

func TestWorkflowsToolWithoutLister(t *testing.T) {
	s := NewServer(ServerDeps{Logger: logging.Discard()})

	result, err := s.handleWorkflows(context.Background(), buildRequest("oscaptool.workflows", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"workflows":[]}`, extractText(t, result))
}

func TestDiagramTool(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		format string
		want   string
	}{
		{"mermaid", "fetch_result --> print"},
		{"ascii", "scan.fetch_result"},
	}
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			result, err := s.handleDiagram(context.Background(), buildRequest("oscaptool.diagram", map[string]any{
				"workflow_id": "show-scan-result",
				"format":      tc.format,
			}))
			require.NoError(t, err)
			assert.False(t, result.IsError)
			assert.Contains(t, extractText(t, result), tc.want)
		})
	}
}

func TestDiagramToolImage(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleDiagram(context.Background(), buildRequest("oscaptool.diagram", map[string]any{
		"workflow_id": "comp-scan-results",
		"format":      "image",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	png, err := base64.StdEncoding.DecodeString(extractText(t, result))
	require.NoError(t, err)
	require.True(t, len(png) > 4)
	assert.Equal(t, byte(0x89), png[0])
}

func TestDiagramToolErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing workflow", map[string]any{"format": "ascii"}, "workflow_id is required"},
		{"missing format", map[string]any{"workflow_id": "show-scan-result"}, "format is required"},
		{"bad format", map[string]any{"workflow_id": "show-scan-result", "format": "gif"}, "format must be"},
		{"unknown workflow", map[string]any{"workflow_id": "nope", "format": "ascii"}, "UNKNOWN_WORKFLOW"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleDiagram(context.Background(), buildRequest("oscaptool.diagram", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractText(t, result), tc.want)
		})
	}
}

// --- Test helpers ---

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}
