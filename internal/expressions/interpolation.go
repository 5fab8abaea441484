package expressions

import (
	"context"
	"fmt"
	"strings"

	"github.com/rendis/oscaptool/pkg/schema"
)

const (
	openMarker  = "${{"
	closeMarker = "}}"
)

// Interpolator renders ${{ expr }} templates used in action configuration,
// such as result directory paths. Each placeholder is an Expr expression
// evaluated against the data bag.
type Interpolator struct {
	engine *ExprEngine
}

// NewInterpolator creates an Interpolator backed by engine.
func NewInterpolator(engine *ExprEngine) *Interpolator {
	if engine == nil {
		engine = NewExprEngine()
	}
	return &Interpolator{engine: engine}
}

type placeholder struct {
	start, end int // byte offsets of the whole ${{ ... }} token
	expr       string
}

// Validate checks the template's syntax and compiles every placeholder.
func (i *Interpolator) Validate(template string) error {
	tokens, err := scan(template)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		if err := i.engine.Compile(tok.expr); err != nil {
			return schema.NewErrorf(schema.ErrCodeInterpolation, "invalid expression in ${{%s}}", tok.expr).WithCause(err)
		}
	}
	return nil
}

// Render replaces every placeholder with its value. A placeholder that
// evaluates to nil is reported as a missing input.
func (i *Interpolator) Render(ctx context.Context, template string, data map[string]any) (string, error) {
	tokens, err := scan(template)
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return template, nil
	}

	var out strings.Builder
	out.Grow(len(template))
	last := 0
	for _, tok := range tokens {
		out.WriteString(template[last:tok.start])

		val, err := i.engine.Evaluate(ctx, tok.expr, data)
		if err != nil {
			return "", schema.NewErrorf(schema.ErrCodeInterpolation, "render ${{%s}}", tok.expr).WithCause(err)
		}
		if val == nil {
			return "", schema.NewErrorf(schema.ErrCodeMissingInput,
				"template expression %q resolved to nothing", tok.expr).
				WithDetails(map[string]any{"expression": tok.expr, "template": template})
		}
		out.WriteString(formatValue(val))
		last = tok.end
	}
	out.WriteString(template[last:])
	return out.String(), nil
}

// scan locates the placeholders of template in order.
func scan(template string) ([]placeholder, error) {
	var tokens []placeholder
	i := 0
	for i < len(template) {
		idx := strings.Index(template[i:], openMarker)
		if idx == -1 {
			break
		}
		start := i + idx
		body := start + len(openMarker)

		end := strings.Index(template[body:], closeMarker)
		if end == -1 {
			return nil, schema.NewErrorf(schema.ErrCodeInterpolation, "unclosed %s expression in %q", openMarker, template)
		}
		end += body

		expr := strings.TrimSpace(template[body:end])
		if strings.Contains(expr, openMarker) {
			return nil, schema.NewErrorf(schema.ErrCodeInterpolation, "nested interpolation not allowed in %q", template)
		}
		if expr == "" {
			return nil, schema.NewErrorf(schema.ErrCodeInterpolation, "empty placeholder in %q", template)
		}

		tokens = append(tokens, placeholder{start: start, end: end + len(closeMarker), expr: expr})
		i = end + len(closeMarker)
	}
	return tokens, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
