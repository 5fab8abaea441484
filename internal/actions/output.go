package actions

import (
	"context"
	"fmt"

	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/pkg/schema"
)

// KeyStdoutInput is the default bag key printed by output.print.
const KeyStdoutInput = "stdout_input"

const printConfigSchema = `{
  "type": "object",
  "properties": {
    "input_key_name": {"type": "string", "minLength": 1},
    "next_action": {"type": "string"}
  },
  "required": ["next_action"]
}`

type printAction struct {
	step
	inputKey string
	deps     *Deps
}

func newPrint(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("output.print", cfg)
	if err != nil {
		return nil, err
	}
	key, err := cfg.StringOr("input_key_name", KeyStdoutInput)
	if err != nil {
		return nil, err
	}
	return &printAction{step: st, inputKey: key, deps: deps}, nil
}

// Execute prints a string, or a list of strings one per line.
func (a *printAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	logging.LogWith(ctx, a.deps.Logger).Debug("printing output", "key", a.inputKey)

	v, err := bag.Value(a.inputKey)
	if err != nil {
		return nil, a.fail(err)
	}

	var lines []string
	switch val := v.(type) {
	case string:
		lines = []string{val}
	case []string, []any:
		if lines, err = bag.Strings(a.inputKey); err != nil {
			return nil, a.fail(err)
		}
	default:
		return nil, a.fail(schema.NewErrorf(schema.ErrCodeInvalidInput,
			"input %q must be a string or a list of strings, got %s", a.inputKey, describe(v)))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(a.deps.Stdout, line); err != nil {
			return nil, a.fail(schema.NewError(schema.ErrCodeExecution, "write output").WithCause(err))
		}
	}
	return a.finish(bag), nil
}
