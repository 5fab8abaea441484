package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/oscaptool/internal/diagram"
	"github.com/rendis/oscaptool/internal/engine"
	"github.com/rendis/oscaptool/pkg/schema"
)

// RunResult is the payload returned by oscaptool.run.
type RunResult struct {
	WorkflowID string          `json:"workflow_id"`
	RunID      string          `json:"run_id,omitempty"`
	Status     schema.RunState `json:"status"`
	Bag        schema.DataBag  `json:"bag,omitempty"`
	Trace      []schema.Event  `json:"trace"`
	Error      *RunErrorDetail `json:"error,omitempty"`
}

// RunErrorDetail describes why a run failed.
type RunErrorDetail struct {
	Code    string `json:"code"`
	Cause   string `json:"cause,omitempty"`
	Action  string `json:"action,omitempty"`
	Step    int    `json:"step"`
	State   string `json:"state,omitempty"`
	Message string `json:"message"`
}

// handleRun runs a workflow and reports its final bag plus the step trace.
func (s *Server) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	inputs := mcp.ParseStringMap(req, "inputs", nil)

	rec := &engine.Recorder{}
	ctx = engine.WithObserver(ctx, engine.ObserverFunc(func(ctx context.Context, ev schema.Event) {
		rec.OnEvent(ctx, ev)
		s.notifier.OnEvent(ctx, ev)
	}))

	bag, runErr := s.runner.RunWorkflow(ctx, workflowID, inputs)
	trace := rec.Events()

	out := RunResult{
		WorkflowID: workflowID,
		Status:     schema.RunStateCompleted,
		Bag:        bag,
		Trace:      trace,
	}
	if len(trace) > 0 {
		out.RunID = trace[0].RunID
	}
	if runErr == nil {
		return marshalResult(out)
	}

	s.logger.Warn("mcp run failed", "workflow_id", workflowID, "error", runErr)
	out.Status = schema.RunStateFailed
	out.Bag = nil
	out.Error = errorDetail(runErr)

	res, mErr := marshalResult(out)
	if mErr != nil || res == nil {
		return res, mErr
	}
	res.IsError = true
	return res, nil
}

// handleWorkflows lists the loaded workflow ids.
func (s *Server) handleWorkflows(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := []string{}
	if s.workflows != nil {
		ids = append(ids, s.workflows.IDs()...)
	}
	return marshalResult(map[string]any{"workflows": ids})
}

// handleDiagram renders a workflow's action chain in the requested format.
func (s *Server) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if s.workflows == nil {
		return mcp.NewToolResultError("no workflows loaded"), nil
	}

	wf, wfErr := s.workflows.Workflow(workflowID)
	if wfErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow lookup failed: %v", wfErr)), nil
	}
	model := diagram.Build(wf, nil)

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	case "image":
		png, imgErr := diagram.RenderImage(ctx, model, diagram.FormatPNG)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	default:
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}
}

func errorDetail(err error) *RunErrorDetail {
	d := &RunErrorDetail{Code: schema.CodeOf(err), Message: err.Error()}
	var wfErr *schema.WorkflowError
	if errors.As(err, &wfErr) {
		d.Code = wfErr.Code
		d.Action = wfErr.Action
		d.Step = wfErr.Step
		d.State = wfErr.State
		if wfErr.Cause != nil {
			d.Cause = schema.CodeOf(wfErr.Cause)
		}
	}
	return d
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
