// Package engine drives workflow runs: it materializes actions through the
// factory, executes them one at a time and follows the next_action pointer
// until it is empty.
package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rendis/oscaptool/internal/actions"
	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/pkg/schema"
)

// WorkflowSource is the read-only lookup the engine resolves workflows and
// action descriptors from. Satisfied by *registry.Registry.
type WorkflowSource interface {
	Workflow(id string) (*schema.WorkflowDescriptor, error)
	Action(workflowID, name string) (schema.ActionDescriptor, error)
}

// ActionFactory materializes actions. Satisfied by *actions.Factory.
type ActionFactory interface {
	Create(selector string, config map[string]any) (actions.Action, error)
}

// Runner runs a workflow to completion.
type Runner interface {
	RunWorkflow(ctx context.Context, workflowID string, inputs map[string]any) (schema.DataBag, error)
}

// Config holds optional engine settings.
type Config struct {
	Logger   *slog.Logger
	Observer Observer
	// NewRunID generates run ids. Defaults to uuid.NewString.
	NewRunID func() string
}

// Engine executes workflows. It holds no per-run state and is safe for
// concurrent runs.
type Engine struct {
	workflows WorkflowSource
	factory   ActionFactory
	logger    *slog.Logger
	observer  Observer
	newRunID  func() string
}

// Compile-time interface check.
var _ Runner = (*Engine)(nil)

// New creates an Engine.
func New(workflows WorkflowSource, factory ActionFactory, cfg Config) *Engine {
	e := &Engine{
		workflows: workflows,
		factory:   factory,
		logger:    cfg.Logger,
		observer:  cfg.Observer,
		newRunID:  cfg.NewRunID,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.newRunID == nil {
		e.newRunID = uuid.NewString
	}
	return e
}

// RunWorkflow runs workflowID against a copy of inputs and returns the final
// bag. Any failure is a *schema.WorkflowError: SETUP_FAILURE for lookup,
// creation and next_action problems, ACTION_EXECUTION_FAILURE when an action
// fails. Effects of actions that already ran are not rolled back.
func (e *Engine) RunWorkflow(ctx context.Context, workflowID string, inputs map[string]any) (schema.DataBag, error) {
	r := &runState{workflowID: workflowID, runID: e.newRunID(), state: schema.RunStateInitializing}
	ctx = logging.WithIDs(ctx, workflowID, r.runID)
	log := logging.LogWith(ctx, e.logger)
	fsm := &runFSM{notify: e.notify}

	bag := schema.NewDataBag(inputs)

	// Initializing: resolve the workflow and materialize its entry action.
	wf, err := e.workflows.Workflow(workflowID)
	if err != nil {
		return nil, e.fail(ctx, fsm, r, schema.ErrCodeSetupFailure, err)
	}
	r.step = 1
	r.action = wf.InitialAction
	current, err := e.materialize(r)
	if err != nil {
		return nil, e.fail(ctx, fsm, r, schema.ErrCodeSetupFailure, err)
	}

	if err := fsm.transition(ctx, r, schema.RunStateRunning, nil); err != nil {
		return nil, err
	}
	log.Info("workflow started", "initial_action", r.action)

	for {
		actx := logging.WithAction(ctx, r.action)
		e.notify(actx, e.actionEvent(r, schema.EventActionStarted))
		log.Debug("executing action", "step", r.step, "action", r.action, "selector", r.selector)

		out, err := current.Execute(actx, bag)
		if err == nil && out == nil {
			err = schema.NewError(schema.ErrCodeExecution, "action returned no data bag").WithAction(r.action)
		}
		if err != nil {
			ev := e.actionEvent(r, schema.EventActionFailed)
			ev.Error = err.Error()
			e.notify(actx, ev)
			return nil, e.fail(ctx, fsm, r, schema.ErrCodeActionExecution, err)
		}
		bag = out

		next, nextErr := nextAction(bag)
		if nextErr != nil {
			return nil, e.fail(ctx, fsm, r, schema.ErrCodeSetupFailure, nextErr.WithAction(r.action))
		}
		ev := e.actionEvent(r, schema.EventActionCompleted)
		ev.NextAction = next
		e.notify(actx, ev)

		if next == "" {
			if err := fsm.transition(ctx, r, schema.RunStateCompleted, nil); err != nil {
				return nil, err
			}
			log.Info("workflow completed", "steps", r.step)
			return bag, nil
		}

		// Fresh instance for every step, even when the descriptor repeats.
		r.step++
		r.action = next
		r.selector = ""
		if current, err = e.materialize(r); err != nil {
			return nil, e.fail(ctx, fsm, r, schema.ErrCodeSetupFailure, err)
		}
	}
}

// materialize looks up r.action in the run's workflow and creates it.
func (e *Engine) materialize(r *runState) (actions.Action, error) {
	desc, err := e.workflows.Action(r.workflowID, r.action)
	if err != nil {
		return nil, err
	}
	r.selector = desc.Type
	return e.factory.Create(desc.Type, desc.Config)
}

// nextAction reads the reserved control key every action must set. A missing
// key and a non-string value are reported with different codes.
func nextAction(bag schema.DataBag) (string, *schema.Error) {
	if next, ok := bag.NextAction(); ok {
		return next, nil
	}
	v, present := bag[schema.NextActionKey]
	if !present {
		return "", schema.NewErrorf(schema.ErrCodeMissingInput, "action did not set %q", schema.NextActionKey)
	}
	return "", schema.NewErrorf(schema.ErrCodeInvalidInput, "%q must be a string, got %T", schema.NextActionKey, v)
}

func (e *Engine) fail(ctx context.Context, fsm *runFSM, r *runState, code string, cause error) error {
	wfErr := &schema.WorkflowError{
		Code:       code,
		WorkflowID: r.workflowID,
		RunID:      r.runID,
		Action:     r.action,
		Step:       r.step,
		State:      string(r.state),
		Cause:      cause,
	}
	if err := fsm.transition(ctx, r, schema.RunStateFailed, wfErr); err != nil {
		return err
	}
	logging.LogWith(ctx, e.logger).Error("workflow failed",
		"code", code, "step", r.step, "action", r.action, "error", cause.Error())
	return wfErr
}

func (e *Engine) actionEvent(r *runState, eventType string) schema.Event {
	return schema.Event{
		Type:       eventType,
		WorkflowID: r.workflowID,
		RunID:      r.runID,
		Action:     r.action,
		Selector:   r.selector,
		Step:       r.step,
	}
}

func (e *Engine) notify(ctx context.Context, ev schema.Event) {
	if e.observer != nil {
		e.observer.OnEvent(ctx, ev)
	}
	if obs := observerFrom(ctx); obs != nil {
		obs.OnEvent(ctx, ev)
	}
}
