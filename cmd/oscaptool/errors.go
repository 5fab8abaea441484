package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes returned by the oscaptool process.
const (
	exitOK       = 0
	exitWorkflow = 1
	exitUsage    = 2
)

// exitError carries the process exit code for a command failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func usageErrorf(format string, args ...any) error {
	return withExit(exitUsage, fmt.Errorf(format, args...))
}

// handleError prints err to cmd's error output and returns the exit code.
// Errors raised by cobra itself (bad flags, wrong argument counts, unknown
// commands) are usage errors and are followed by the command's usage.
func handleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return exitOK
	}
	cmd.PrintErrln("Error:", err)

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.code == exitUsage {
			cmd.PrintErr("\n", cmd.UsageString())
		}
		return ee.code
	}
	cmd.PrintErr("\n", cmd.UsageString())
	return exitUsage
}
