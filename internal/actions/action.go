// Package actions holds the Action capability, the factory that materializes
// actions from descriptors and the built-in action variants.
package actions

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rendis/oscaptool/internal/expressions"
	"github.com/rendis/oscaptool/internal/fsutil"
	"github.com/rendis/oscaptool/internal/isolation"
	"github.com/rendis/oscaptool/pkg/schema"
)

// Action is a single unit of work in a workflow. Execute reads what it needs
// from bag, writes its results and next_action, and returns the same bag.
// Instances are created per step and never reused.
type Action interface {
	Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error)
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, bag schema.DataBag) (schema.DataBag, error)

// Execute calls f.
func (f ActionFunc) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	return f(ctx, bag)
}

// Constructor builds an action from its static configuration. It must not
// perform side effects and fails with INVALID_CONFIG on bad configuration.
type Constructor func(cfg Config, deps *Deps) (Action, error)

// Deps are the collaborators shared by every action a Factory creates.
type Deps struct {
	Files     *fsutil.Helper
	Isolator  isolation.Isolator
	Limits    isolation.ResourceLimits
	Stdout    io.Writer
	Now       func() time.Time
	Templates *expressions.Interpolator
	JQ        *expressions.GoJQEngine
	CEL       *expressions.CELEngine
	Logger    *slog.Logger
}

func (d *Deps) withDefaults() (*Deps, error) {
	out := *d
	if out.Files == nil {
		out.Files = fsutil.New(out.Limits)
	}
	if out.Isolator == nil {
		out.Isolator = isolation.NewIsolator()
	}
	if out.Stdout == nil {
		out.Stdout = os.Stdout
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	if out.Templates == nil {
		out.Templates = expressions.NewInterpolator(nil)
	}
	if out.JQ == nil {
		out.JQ = expressions.NewGoJQEngine()
	}
	if out.CEL == nil {
		cel, err := expressions.NewCELEngine()
		if err != nil {
			return nil, err
		}
		out.CEL = cel
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out, nil
}

// step carries the next_action every built-in action takes from its config.
type step struct {
	selector string
	next     string
}

// newStep fails with INVALID_CONFIG when next_action is not configured, so a
// workflow that cannot continue is rejected before any side effect.
func newStep(selector string, cfg Config) (step, error) {
	next, ok, err := cfg.NextAction()
	if err != nil {
		return step{}, err
	}
	if !ok {
		return step{}, invalidConfig("missing required config %q", schema.NextActionKey)
	}
	return step{selector: selector, next: next}, nil
}

func (s step) finish(bag schema.DataBag) schema.DataBag {
	bag.SetNextAction(s.next)
	return bag
}

func (s step) fail(err error) error {
	if e, ok := err.(*schema.Error); ok {
		if e.Action == "" {
			e.Action = s.selector
		}
		return e
	}
	return schema.NewError(schema.ErrCodeExecution, "action failed").WithAction(s.selector).WithCause(err)
}
