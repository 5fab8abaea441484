package schema

import "sort"

// NextActionKey is the reserved DataBag key naming the action to run next.
// The empty string terminates the workflow.
const NextActionKey = "next_action"

// DataBag is the mutable key-value state threaded through a workflow run.
// It is owned by exactly one run and is never shared between goroutines.
type DataBag map[string]any

// NewDataBag returns a bag holding a shallow copy of values.
func NewDataBag(values map[string]any) DataBag {
	b := make(DataBag, len(values))
	for k, v := range values {
		b[k] = v
	}
	return b
}

// Has reports whether key is present.
func (b DataBag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Value returns the raw value stored under key.
func (b DataBag) Value(key string) (any, error) {
	v, ok := b[key]
	if !ok {
		return nil, NewErrorf(ErrCodeMissingInput, "missing input %q", key)
	}
	return v, nil
}

// String returns the string stored under key.
func (b DataBag) String(key string) (string, error) {
	v, err := b.Value(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", NewErrorf(ErrCodeInvalidInput, "input %q must be a string, got %T", key, v)
	}
	return s, nil
}

// Strings returns the list of strings stored under key. Both []string and
// []any holding only strings are accepted.
func (b DataBag) Strings(key string) ([]string, error) {
	v, err := b.Value(key)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, NewErrorf(ErrCodeInvalidInput, "input %q[%d] must be a string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, NewErrorf(ErrCodeInvalidInput, "input %q must be a list of strings, got %T", key, v)
	}
}

// Set stores value under key, overwriting any previous value.
func (b DataBag) Set(key string, value any) {
	b[key] = value
}

// SetNextAction records the action the engine should run next.
func (b DataBag) SetNextAction(name string) {
	b[NextActionKey] = name
}

// NextAction returns the next action name. ok is false when the key is absent
// or does not hold a string.
func (b DataBag) NextAction() (name string, ok bool) {
	v, present := b[NextActionKey]
	if !present {
		return "", false
	}
	name, ok = v.(string)
	return name, ok
}

// Keys returns the bag's keys in sorted order.
func (b DataBag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup adapts the bag to a plain map for expression engines.
func (b DataBag) Lookup() map[string]any {
	return map[string]any(b)
}
