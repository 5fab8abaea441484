package expressions

import "context"

// Engine evaluates expressions against workflow data.
// Three implementations: Expr (templates), GoJQ (transforms), CEL (assertions).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
