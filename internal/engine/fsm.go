package engine

import (
	"context"
	"slices"

	"github.com/rendis/oscaptool/pkg/schema"
)

// ValidRunTransitions defines the allowed state transitions for a run.
var ValidRunTransitions = map[schema.RunState][]schema.RunState{
	schema.RunStateInitializing: {schema.RunStateRunning, schema.RunStateFailed},
	schema.RunStateRunning:      {schema.RunStateCompleted, schema.RunStateFailed},
	schema.RunStateCompleted:    {},
	schema.RunStateFailed:       {},
}

// runState is the mutable bookkeeping of a single run. It is owned by the
// goroutine executing the run.
type runState struct {
	workflowID string
	runID      string
	state      schema.RunState
	step       int
	action     string
	selector   string
}

// runFSM validates run transitions and reports the matching workflow events.
type runFSM struct {
	notify func(ctx context.Context, ev schema.Event)
}

// transition moves r to the given state. An invalid transition is a
// programming error in the engine and is returned as INVALID_TRANSITION.
func (f *runFSM) transition(ctx context.Context, r *runState, to schema.RunState, cause error) error {
	if !isValidRunTransition(r.state, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid run transition: %s -> %s", r.state, to).
			WithDetails(map[string]any{"workflow_id": r.workflowID, "run_id": r.runID})
	}
	r.state = to

	if eventType := runEventType(to); eventType != "" {
		ev := schema.Event{Type: eventType, WorkflowID: r.workflowID, RunID: r.runID, Step: r.step}
		if cause != nil {
			ev.Action = r.action
			ev.Error = cause.Error()
		}
		f.notify(ctx, ev)
	}
	return nil
}

func isValidRunTransition(from, to schema.RunState) bool {
	return slices.Contains(ValidRunTransitions[from], to)
}

func runEventType(to schema.RunState) string {
	switch to {
	case schema.RunStateRunning:
		return schema.EventWorkflowStarted
	case schema.RunStateCompleted:
		return schema.EventWorkflowCompleted
	case schema.RunStateFailed:
		return schema.EventWorkflowFailed
	default:
		return ""
	}
}
