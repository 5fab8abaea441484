package actions

import (
	"context"

	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/pkg/schema"
)

const transformConfigSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "minLength": 1},
    "output_key_name": {"type": "string", "minLength": 1},
    "next_action": {"type": "string"}
  },
  "required": ["query", "output_key_name", "next_action"]
}`

const assertConfigSchema = `{
  "type": "object",
  "properties": {
    "expression": {"type": "string", "minLength": 1},
    "message": {"type": "string"},
    "next_action": {"type": "string"}
  },
  "required": ["expression", "next_action"]
}`

// --- data.transform ---

type transformAction struct {
	step
	query, outputKey string
	deps             *Deps
}

func newTransform(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("data.transform", cfg)
	if err != nil {
		return nil, err
	}
	a := &transformAction{step: st, deps: deps}
	if a.query, err = cfg.String("query"); err != nil {
		return nil, err
	}
	if a.outputKey, err = cfg.String("output_key_name"); err != nil {
		return nil, err
	}
	if err := deps.JQ.Compile(a.query); err != nil {
		return nil, invalidConfig("config %q is not a valid jq query", "query").WithCause(err)
	}
	return a, nil
}

// Execute runs the jq query with the whole bag as input.
func (a *transformAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	logging.LogWith(ctx, a.deps.Logger).Debug("transforming data", "query", a.query)

	out, err := a.deps.JQ.Evaluate(ctx, a.query, bag.Lookup())
	if err != nil {
		return nil, a.fail(err)
	}
	bag.Set(a.outputKey, out)
	return a.finish(bag), nil
}

// --- data.assert ---

type assertAction struct {
	step
	expression, message string
	deps                *Deps
}

func newAssert(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("data.assert", cfg)
	if err != nil {
		return nil, err
	}
	a := &assertAction{step: st, deps: deps}
	if a.expression, err = cfg.String("expression"); err != nil {
		return nil, err
	}
	if a.message, err = cfg.StringOr("message", ""); err != nil {
		return nil, err
	}
	if a.message == "" {
		a.message = "assertion failed: " + a.expression
	}
	if err := deps.CEL.Compile(a.expression); err != nil {
		return nil, invalidConfig("config %q is not a valid CEL expression", "expression").WithCause(err)
	}
	return a, nil
}

// Execute evaluates the CEL expression over the bag and fails when it is false.
func (a *assertAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	logging.LogWith(ctx, a.deps.Logger).Debug("asserting", "expression", a.expression)

	ok, err := a.deps.CEL.EvaluateBool(ctx, a.expression, bag.Lookup())
	if err != nil {
		return nil, a.fail(err)
	}
	if !ok {
		return nil, a.fail(schema.NewError(schema.ErrCodeExecution, a.message).
			WithDetails(map[string]any{"expression": a.expression}))
	}
	return a.finish(bag), nil
}
