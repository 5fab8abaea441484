package validation

import (
	"encoding/json"
	"sort"

	"github.com/rendis/oscaptool/pkg/schema"
)

// ActionLookup resolves selectors against the known action variants.
// Satisfied by *actions.Factory.
type ActionLookup interface {
	Has(selector string) bool
	ValidateConfig(selector string, config map[string]any) error
}

// WorkflowValidator orchestrates the load-time validation pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (selectors, configs, action references)
// 3. Graph (reachability and cycles along next_action links)
type WorkflowValidator struct {
	jsonSchema *JSONSchemaValidator
	actions    ActionLookup
}

// NewWorkflowValidator creates a WorkflowValidator.
// lookup may be nil to skip selector and config checks.
func NewWorkflowValidator(lookup ActionLookup) (*WorkflowValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &WorkflowValidator{jsonSchema: jsv, actions: lookup}, nil
}

// Validate checks raw document bytes and returns the decoded document with
// the aggregated result. Structural errors short-circuit the later stages.
func (wv *WorkflowValidator) Validate(raw []byte) (*schema.Document, *schema.ValidationResult) {
	result := &schema.ValidationResult{}

	if err := wv.jsonSchema.ValidateDocument(raw); err != nil {
		addStructural(result, err)
		return nil, result
	}

	var doc schema.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return nil, result
	}
	for id, wf := range doc.Workflows {
		wf.ID = id
		for name, a := range wf.Actions {
			a.Name = name
			wf.Actions[name] = a
		}
	}

	result.Merge(validateDuplicates(raw))
	result.Merge(validateSemantic(&doc, wv.actions))
	if result.Valid() {
		result.Merge(validateGraph(&doc))
	}
	return &doc, result
}

func addStructural(result *schema.ValidationResult, err error) {
	e, ok := err.(*schema.Error)
	if !ok {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return
	}
	if violations, ok := e.Details["violations"].([]string); ok {
		for _, v := range violations {
			result.AddError("/", schema.ErrCodeValidation, v)
		}
		return
	}
	result.AddError("/", schema.ErrCodeValidation, e.Message)
}

func sortedWorkflowIDs(doc *schema.Document) []string {
	ids := make([]string, 0, len(doc.Workflows))
	for id := range doc.Workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedActionNames(wf *schema.WorkflowDescriptor) []string {
	names := make([]string, 0, len(wf.Actions))
	for name := range wf.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
