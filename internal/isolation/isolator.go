package isolation

import (
	"context"
	"os/exec"
	"time"
)

// drainDelay bounds how long Wait keeps reading pipes after the process is killed.
const drainDelay = 5 * time.Second

// Isolator wraps a command before it is started by an action.
type Isolator interface {
	Wrap(ctx context.Context, cmd *exec.Cmd, limits ResourceLimits) (*exec.Cmd, func(), error)
}

// Compile-time interface check.
var _ Isolator = (*ExecIsolator)(nil)

// ExecIsolator binds a command to a context (and optional timeout) so that
// cancellation kills the child. It does not enforce kernel resource limits.
type ExecIsolator struct{}

// NewIsolator returns the Isolator used by command actions.
func NewIsolator() Isolator {
	return &ExecIsolator{}
}

// Wrap clones cmd onto a context-aware exec.Cmd.
// The returned cleanup function must always be called after process completion.
// The caller must use the returned *exec.Cmd, not the original.
func (e *ExecIsolator) Wrap(ctx context.Context, cmd *exec.Cmd, limits ResourceLimits) (*exec.Cmd, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	execCtx := ctx
	var cancel context.CancelFunc
	if limits.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, limits.Timeout)
	}

	// exec.Cmd.Cancel is only honored for cmds created via exec.CommandContext.
	wrapped := exec.CommandContext(execCtx, cmd.Path, cmd.Args[1:]...)
	wrapped.Args = cmd.Args
	wrapped.Dir = cmd.Dir
	wrapped.Env = cmd.Env
	wrapped.Stdin = cmd.Stdin
	wrapped.Stdout = cmd.Stdout
	wrapped.Stderr = cmd.Stderr
	wrapped.Cancel = func() error {
		if wrapped.Process != nil {
			return wrapped.Process.Kill()
		}
		return nil
	}
	wrapped.WaitDelay = drainDelay

	cleanup := func() {
		if cancel != nil {
			cancel()
		}
	}
	return wrapped, cleanup, nil
}
