package validation

import (
	"fmt"

	"github.com/rendis/oscaptool/pkg/schema"
)

// validateGraph follows the static next_action chain from each workflow's
// initial action. Cycles are legal but reported, as are descriptors the chain
// never reaches.
func validateGraph(doc *schema.Document) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	for _, id := range sortedWorkflowIDs(doc) {
		wf := doc.Workflows[id]
		base := "workflows." + id

		visited := make(map[string]bool, len(wf.Actions))
		current := wf.InitialAction
		for current != "" {
			if visited[current] {
				result.AddWarning(base+".actions."+current, schema.ErrCodeCycleDetected,
					fmt.Sprintf("action %q is revisited; the workflow never terminates unless an action overrides next_action", current))
				break
			}
			visited[current] = true

			desc, ok := wf.Actions[current]
			if !ok {
				break
			}
			current, _ = desc.NextAction()
		}

		for _, name := range sortedActionNames(wf) {
			if !visited[name] {
				result.AddWarning(base+".actions."+name, schema.ErrCodeUnreachable,
					fmt.Sprintf("action %q is unreachable from initial action %q", name, wf.InitialAction))
			}
		}
	}
	return result
}
