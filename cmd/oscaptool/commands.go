package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

const keyResultsDir = "results_dir"

// invocation is a workflow id plus the initial bag built from the command line.
type invocation struct {
	workflowID string
	inputs     map[string]any
}

// errUsage marks argument errors. They map to the usage exit code.
var errUsage = &exitError{code: exitUsage, err: errors.New("invalid arguments")}

// parseInvocation maps a workflow subcommand and its arguments to an
// invocation. schedule uses it for the command it repeats.
func parseInvocation(cmd string, args []string, stderr io.Writer) (invocation, error) {
	switch cmd {
	case "scan":
		return parseScan(args, stderr)
	case "show":
		return parseShow(args)
	case "comp":
		return parseComp(args)
	case "run":
		return parseRun(args)
	default:
		return invocation{}, fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// parseScan handles scan <scantype> <scansubtype> [--profile P] <content>.
func parseScan(args []string, stderr io.Writer) (invocation, error) {
	fs := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	profile := fs.String("profile", "", "XCCDF profile to evaluate")
	if err := fs.Parse(args); err != nil {
		return invocation{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 3 {
		return invocation{}, fmt.Errorf("%w: scan needs <scantype> <scansubtype> <content>", errUsage)
	}
	return scanInvocation(fs.Arg(0), fs.Arg(1), fs.Arg(2), *profile), nil
}

// scanInvocation targets the scan-<scantype>-<scansubtype> workflow.
func scanInvocation(scanType, subtype, content, profile string) invocation {
	inputs := map[string]any{
		"scantype":    scanType,
		"scansubtype": subtype,
		"content":     content,
	}
	if profile != "" {
		inputs["profile"] = profile
	}
	return invocation{workflowID: fmt.Sprintf("scan-%s-%s", scanType, subtype), inputs: inputs}
}

// parseShow handles show [scan_id].
func parseShow(args []string) (invocation, error) {
	switch len(args) {
	case 0:
		return invocation{workflowID: "show-scan-history", inputs: map[string]any{}}, nil
	case 1:
		return invocation{workflowID: "show-scan-result", inputs: map[string]any{"scan_id": args[0]}}, nil
	default:
		return invocation{}, fmt.Errorf("%w: show takes at most one scan id", errUsage)
	}
}

// parseComp handles comp <scan_id_1> <scan_id_2>.
func parseComp(args []string) (invocation, error) {
	if len(args) != 2 {
		return invocation{}, fmt.Errorf("%w: comp needs two scan ids", errUsage)
	}
	return invocation{
		workflowID: "comp-scan-results",
		inputs:     map[string]any{"scan_id_1": args[0], "scan_id_2": args[1]},
	}, nil
}

// parseRun handles run <workflow_id> [key=value...].
func parseRun(args []string) (invocation, error) {
	if len(args) == 0 {
		return invocation{}, fmt.Errorf("%w: run needs a workflow id", errUsage)
	}
	inputs := make(map[string]any, len(args)-1)
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return invocation{}, fmt.Errorf("%w: input %q is not key=value", errUsage, kv)
		}
		inputs[k] = v
	}
	return invocation{workflowID: args[0], inputs: inputs}, nil
}
