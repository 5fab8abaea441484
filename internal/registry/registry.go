// Package registry holds the read-only workflow lookup built from a
// workflow document.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/rendis/oscaptool/internal/validation"
	"github.com/rendis/oscaptool/pkg/schema"
)

//go:embed workflows.json
var defaultDocument []byte

// DefaultDocument returns a copy of the built-in workflow document.
func DefaultDocument() []byte {
	return append([]byte(nil), defaultDocument...)
}

// Registry maps workflow ids to their descriptors. It is immutable after
// Load and safe for concurrent use.
type Registry struct {
	workflows map[string]*schema.WorkflowDescriptor
	warnings  []schema.ValidationIssue
}

// Load validates raw and builds a Registry. lookup resolves selectors and
// validates action configs; nil skips those checks. Any validation error
// fails the load. Warnings are kept and available through Warnings.
func Load(raw []byte, lookup validation.ActionLookup) (*Registry, error) {
	wv, err := validation.NewWorkflowValidator(lookup)
	if err != nil {
		return nil, err
	}

	doc, result := wv.Validate(raw)
	if err := result.ToError(); err != nil {
		return nil, err
	}
	return &Registry{workflows: doc.Workflows, warnings: result.Warnings}, nil
}

// LoadFile reads the workflow document at path and loads it. Files ending in
// .yaml or .yml are decoded as YAML; anything else is read as JSON.
func LoadFile(path string, lookup validation.ActionLookup) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflows file: %w", err)
	}
	if isYAML(path) {
		if raw, err = yamlToJSON(raw); err != nil {
			return nil, err
		}
	}
	return Load(raw, lookup)
}

// LoadDefault loads the built-in workflow document.
func LoadDefault(lookup validation.ActionLookup) (*Registry, error) {
	return Load(defaultDocument, lookup)
}

// Workflow returns a copy of the descriptor registered under id.
func (r *Registry) Workflow(id string) (*schema.WorkflowDescriptor, error) {
	wf, ok := r.workflows[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeUnknownWorkflow, "unknown workflow %q", id)
	}
	return wf.Clone(), nil
}

// Action returns a copy of the action descriptor name within workflow id.
func (r *Registry) Action(id, name string) (schema.ActionDescriptor, error) {
	wf, ok := r.workflows[id]
	if !ok {
		return schema.ActionDescriptor{}, schema.NewErrorf(schema.ErrCodeUnknownWorkflow, "unknown workflow %q", id)
	}
	desc, ok := wf.Actions[name]
	if !ok {
		return schema.ActionDescriptor{}, schema.NewErrorf(schema.ErrCodeUnknownAction,
			"unknown action %q in workflow %q", name, id).WithAction(name)
	}
	return desc.Clone(), nil
}

// IDs returns the registered workflow ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.workflows))
	for id := range r.workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Warnings returns the non-fatal issues found while loading.
func (r *Registry) Warnings() []schema.ValidationIssue {
	return append([]schema.ValidationIssue(nil), r.warnings...)
}
