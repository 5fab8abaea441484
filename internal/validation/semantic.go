package validation

import (
	"fmt"

	"github.com/rendis/oscaptool/pkg/schema"
)

// validateSemantic checks that every selector resolves, every config is valid
// for its selector, and every action reference names an existing descriptor.
func validateSemantic(doc *schema.Document, lookup ActionLookup) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	for _, id := range sortedWorkflowIDs(doc) {
		wf := doc.Workflows[id]
		base := "workflows." + id

		if _, ok := wf.Actions[wf.InitialAction]; !ok {
			result.AddError(base+".initial_action", schema.ErrCodeUnknownAction,
				fmt.Sprintf("initial action %q is not defined", wf.InitialAction))
		}

		for _, name := range sortedActionNames(wf) {
			validateActionSemantic(wf, name, base+".actions."+name, lookup, result)
		}
	}
	return result
}

func validateActionSemantic(wf *schema.WorkflowDescriptor, name, path string, lookup ActionLookup, result *schema.ValidationResult) {
	desc := wf.Actions[name]

	if lookup != nil {
		if !lookup.Has(desc.Type) {
			result.AddError(path+".type", schema.ErrCodeUnknownActionType,
				fmt.Sprintf("unknown action type %q", desc.Type))
		} else if err := lookup.ValidateConfig(desc.Type, desc.Config); err != nil {
			result.AddError(path+".config", schema.ErrCodeInvalidConfig, errorMessage(err))
		}
	}

	raw, present := desc.Config[schema.NextActionKey]
	if !present {
		return
	}
	next, ok := raw.(string)
	if !ok {
		result.AddError(path+".config.next_action", schema.ErrCodeInvalidConfig,
			fmt.Sprintf("next_action must be a string, got %T", raw))
		return
	}
	if next == "" {
		return
	}
	if _, ok := wf.Actions[next]; !ok {
		result.AddError(path+".config.next_action", schema.ErrCodeUnknownAction,
			fmt.Sprintf("next action %q is not defined in workflow %q", next, wf.ID))
	}
}

func errorMessage(err error) string {
	if e, ok := err.(*schema.Error); ok {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
