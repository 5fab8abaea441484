package schema

// Document is the JSON-serializable workflow document loaded by the registry.
type Document struct {
	Workflows map[string]*WorkflowDescriptor `json:"workflows"`
}

// WorkflowDescriptor names a set of action descriptors and the action a run starts with.
type WorkflowDescriptor struct {
	ID            string                      `json:"-"`
	Description   string                      `json:"description,omitempty"`
	InitialAction string                      `json:"initial_action"`
	Actions       map[string]ActionDescriptor `json:"actions"`
}

// ActionDescriptor is a declarative (selector, config) pair describing how to
// build an action.
type ActionDescriptor struct {
	Name   string         `json:"-"`
	Type   string         `json:"type"`             // selector, e.g. "scan.compare"
	Config map[string]any `json:"config,omitempty"` // action-specific constants
}

// NextAction returns the statically configured next action, if any.
func (d ActionDescriptor) NextAction() (string, bool) {
	v, ok := d.Config[NextActionKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (d ActionDescriptor) Clone() ActionDescriptor {
	out := ActionDescriptor{Name: d.Name, Type: d.Type}
	if d.Config != nil {
		out.Config, _ = cloneValue(d.Config).(map[string]any)
	}
	return out
}

// Clone returns a deep copy of the workflow descriptor.
func (w *WorkflowDescriptor) Clone() *WorkflowDescriptor {
	if w == nil {
		return nil
	}
	out := &WorkflowDescriptor{
		ID:            w.ID,
		Description:   w.Description,
		InitialAction: w.InitialAction,
		Actions:       make(map[string]ActionDescriptor, len(w.Actions)),
	}
	for name, a := range w.Actions {
		out.Actions[name] = a.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
