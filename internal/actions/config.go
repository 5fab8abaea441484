package actions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rendis/oscaptool/pkg/schema"
)

// Config is the static configuration of an action descriptor.
type Config map[string]any

func invalidConfig(format string, args ...any) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeInvalidConfig, format, args...)
}

// String returns a required non-empty string.
func (c Config) String(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", invalidConfig("missing required config %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidConfig("config %q must be a string, got %T", key, v)
	}
	if s == "" {
		return "", invalidConfig("config %q must not be empty", key)
	}
	return s, nil
}

// StringOr returns an optional string, or def when absent.
func (c Config) StringOr(key, def string) (string, error) {
	if _, ok := c[key]; !ok {
		return def, nil
	}
	return c.String(key)
}

// Bool returns an optional boolean, or def when absent.
func (c Config) Bool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalidConfig("config %q must be a boolean, got %T", key, v)
	}
	return b, nil
}

// Ints returns an optional list of integers, or def when absent.
func (c Config) Ints(key string, def []int) ([]int, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}
	var items []any
	switch val := v.(type) {
	case []int:
		return val, nil
	case []any:
		items = val
	default:
		return nil, invalidConfig("config %q must be a list of integers, got %T", key, v)
	}

	out := make([]int, 0, len(items))
	for i, item := range items {
		n, ok := toInt(item)
		if !ok {
			return nil, invalidConfig("config %q[%d] must be an integer, got %v", key, i, item)
		}
		out = append(out, n)
	}
	return out, nil
}

// Duration returns an optional duration written as a Go duration string.
func (c Config) Duration(key string) (time.Duration, error) {
	s, err := c.StringOr(key, "")
	if err != nil || s == "" {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, invalidConfig("config %q is not a valid duration", key).WithCause(err)
	}
	if d < 0 {
		return 0, invalidConfig("config %q must not be negative", key)
	}
	return d, nil
}

// NextAction returns the configured next_action. An empty string is valid
// and terminates the workflow.
func (c Config) NextAction() (string, bool, error) {
	v, ok := c[schema.NextActionKey]
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, invalidConfig("config %q must be a string, got %T", schema.NextActionKey, v)
	}
	return s, true, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
