package actions

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/pkg/schema"
)

// Bag keys written by the command actions.
const (
	KeyCmdStr      = "cmd_str"
	KeyCmdArgs     = "cmd_args"
	KeyCmdExitCode = "cmd_exit_code"
)

const maxLineSize = 1024 * 1024 // 1MB

// --- JSON Schemas ---

const buildCommandConfigSchema = `{
  "type": "object",
  "properties": {
    "command": {"type": "string", "minLength": 1},
    "mappings": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "input": {"type": "string", "minLength": 1},
          "flag": {"type": "string"},
          "required": {"type": "boolean"}
        },
        "required": ["input"],
        "additionalProperties": false
      }
    },
    "next_action": {"type": "string"}
  },
  "required": ["command", "next_action"]
}`

const runCommandConfigSchema = `{
  "type": "object",
  "properties": {
    "allowed_exit_codes": {"type": "array", "items": {"type": "integer"}, "minItems": 1},
    "timeout": {"type": "string"},
    "next_action": {"type": "string"}
  },
  "required": ["next_action"]
}`

// --- command.build ---

// Mapping binds a bag key to a command-line argument. A mapping with a flag
// renders as "<flag> <value>"; one without renders the value positionally.
type Mapping struct {
	Input    string
	Flag     string
	Required bool
}

type buildCommandAction struct {
	step
	command  []string
	mappings []Mapping
	deps     *Deps
}

func newBuildCommand(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("command.build", cfg)
	if err != nil {
		return nil, err
	}
	command, err := cfg.String("command")
	if err != nil {
		return nil, err
	}
	mappings, err := parseMappings(cfg["mappings"])
	if err != nil {
		return nil, err
	}
	return &buildCommandAction{step: st, command: strings.Fields(command), mappings: mappings, deps: deps}, nil
}

func parseMappings(raw any) ([]Mapping, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, invalidConfig("config %q must be a list, got %s", "mappings", describe(raw))
	}

	out := make([]Mapping, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, invalidConfig("mappings[%d] must be an object, got %s", i, describe(item))
		}
		c := Config(m)
		input, err := c.String("input")
		if err != nil {
			return nil, invalidConfig("mappings[%d]", i).WithCause(err)
		}
		flag, err := c.StringOr("flag", "")
		if err != nil {
			return nil, invalidConfig("mappings[%d]", i).WithCause(err)
		}
		// Positional arguments are required unless stated otherwise.
		required, err := c.Bool("required", flag == "")
		if err != nil {
			return nil, invalidConfig("mappings[%d]", i).WithCause(err)
		}
		out = append(out, Mapping{Input: input, Flag: flag, Required: required})
	}
	return out, nil
}

// BuildArgs renders the argument vector: the command words, then every
// flagged mapping in order, then every positional mapping in order.
func BuildArgs(command []string, mappings []Mapping, bag schema.DataBag) ([]string, error) {
	var flagged, positional []string
	for _, m := range mappings {
		if !bag.Has(m.Input) {
			if m.Required {
				return nil, schema.NewErrorf(schema.ErrCodeMissingInput, "missing input %q", m.Input)
			}
			continue
		}
		val, err := bag.String(m.Input)
		if err != nil {
			return nil, err
		}
		if val == "" && !m.Required {
			continue
		}
		if m.Flag != "" {
			flagged = append(flagged, m.Flag, val)
		} else {
			positional = append(positional, val)
		}
	}

	args := make([]string, 0, len(command)+len(flagged)+len(positional))
	args = append(args, command...)
	args = append(args, flagged...)
	args = append(args, positional...)
	return args, nil
}

func (a *buildCommandAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	args, err := BuildArgs(a.command, a.mappings, bag)
	if err != nil {
		return nil, a.fail(err)
	}
	logging.LogWith(ctx, a.deps.Logger).Debug("built command", "args", args)

	bag.Set(KeyCmdArgs, args)
	bag.Set(KeyCmdStr, strings.Join(args, " "))
	return a.finish(bag), nil
}

// --- command.run ---

type runCommandAction struct {
	step
	allowed []int
	timeout time.Duration
	deps    *Deps
}

func newRunCommand(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("command.run", cfg)
	if err != nil {
		return nil, err
	}
	allowed, err := cfg.Ints("allowed_exit_codes", []int{0})
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Duration("timeout")
	if err != nil {
		return nil, err
	}
	return &runCommandAction{step: st, allowed: allowed, timeout: timeout, deps: deps}, nil
}

func (a *runCommandAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	log := logging.LogWith(ctx, a.deps.Logger)

	args, err := commandArgs(bag)
	if err != nil {
		return nil, a.fail(err)
	}
	log.Debug("running command", "args", args)

	lines, exitCode, err := a.run(ctx, args)
	if err != nil {
		return nil, a.fail(err)
	}
	bag.Set(KeyCmdStdout, lines)
	bag.Set(KeyCmdExitCode, exitCode)

	if !slices.Contains(a.allowed, exitCode) {
		return nil, a.fail(schema.NewErrorf(schema.ErrCodeExecution,
			"command %q exited with code %d", args[0], exitCode).
			WithDetails(map[string]any{"exit_code": exitCode, "allowed_exit_codes": a.allowed}))
	}
	log.Debug("command finished", "exit_code", exitCode, "lines", len(lines))
	return a.finish(bag), nil
}

// run starts the command with stderr merged into stdout and echoes every line
// to the terminal writer while collecting it. It returns only after the
// output is drained and the process has exited.
func (a *runCommandAction) run(ctx context.Context, args []string) ([]string, int, error) {
	limits := a.deps.Limits
	limits.Timeout = a.timeout

	cmd, cleanup, err := a.deps.Isolator.Wrap(ctx, exec.Command(args[0], args[1:]...), limits)
	if err != nil {
		return nil, 0, schema.NewError(schema.ErrCodeIsolation, "isolation wrap failed").WithCause(err)
	}
	defer cleanup()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, 0, schema.NewError(schema.ErrCodeExecution, "open command output").WithCause(err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, 0, schema.NewErrorf(schema.ErrCodeExecution, "start %q", args[0]).WithCause(err)
	}

	var lines []string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(a.deps.Stdout, line)
		lines = append(lines, line)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if lines == nil {
		lines = []string{}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return lines, 0, schema.NewErrorf(schema.ErrCodeExecution, "command %q interrupted", args[0]).WithCause(ctxErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return lines, 0, schema.NewErrorf(schema.ErrCodeExecution, "command %q failed", args[0]).WithCause(waitErr)
		}
		if exitErr.ExitCode() < 0 {
			return lines, 0, schema.NewErrorf(schema.ErrCodeExecution, "command %q was killed", args[0]).WithCause(waitErr)
		}
		return lines, exitErr.ExitCode(), nil
	}
	if scanErr != nil {
		return lines, 0, schema.NewErrorf(schema.ErrCodeExecution, "read output of %q", args[0]).WithCause(scanErr)
	}
	return lines, 0, nil
}

// commandArgs prefers the argument vector written by command.build and falls
// back to splitting cmd_str on whitespace.
func commandArgs(bag schema.DataBag) ([]string, error) {
	var args []string
	var err error
	switch {
	case bag.Has(KeyCmdArgs):
		args, err = bag.Strings(KeyCmdArgs)
	case bag.Has(KeyCmdStr):
		var s string
		s, err = bag.String(KeyCmdStr)
		args = strings.Fields(s)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeMissingInput, "missing input %q", KeyCmdStr)
	}
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, schema.NewError(schema.ErrCodeInvalidInput, "command is empty")
	}
	return args, nil
}
