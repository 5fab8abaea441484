package validation

import (
	"testing"

	"github.com/rendis/oscaptool/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLookup struct {
	known  map[string]bool
	reject map[string]error
}

func newMockLookup(selectors ...string) *mockLookup {
	m := &mockLookup{known: make(map[string]bool), reject: make(map[string]error)}
	for _, s := range selectors {
		m.known[s] = true
	}
	return m
}

func (m *mockLookup) Has(selector string) bool { return m.known[selector] }

func (m *mockLookup) ValidateConfig(selector string, _ map[string]any) error {
	return m.reject[selector]
}

func codes(issues []schema.ValidationIssue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

const twoStepDoc = `{
  "workflows": {
    "wf": {
      "initial_action": "a",
      "actions": {
        "a": {"type": "noop", "config": {"next_action": "b"}},
        "b": {"type": "noop", "config": {"next_action": ""}}
      }
    }
  }
}`

func TestWorkflowValidator_Valid(t *testing.T) {
	wv, err := NewWorkflowValidator(newMockLookup("noop"))
	require.NoError(t, err)

	doc, result := wv.Validate([]byte(twoStepDoc))
	require.True(t, result.Valid(), result.Errors)
	assert.Empty(t, result.Warnings)

	wf := doc.Workflows["wf"]
	require.NotNil(t, wf)
	assert.Equal(t, "wf", wf.ID)
	assert.Equal(t, "a", wf.Actions["a"].Name)
	next, ok := wf.Actions["a"].NextAction()
	assert.True(t, ok)
	assert.Equal(t, "b", next)
}

func TestWorkflowValidator_NilLookupSkipsSelectorChecks(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	_, result := wv.Validate([]byte(twoStepDoc))
	assert.True(t, result.Valid())
}

func TestWorkflowValidator_StructuralFailShortCircuits(t *testing.T) {
	wv, err := NewWorkflowValidator(newMockLookup())
	require.NoError(t, err)

	doc, result := wv.Validate([]byte(`{"workflows": {"wf": {"actions": {}}}}`))
	assert.Nil(t, doc)
	require.False(t, result.Valid())
	for _, e := range result.Errors {
		assert.Equal(t, schema.ErrCodeValidation, e.Code)
	}
}

func TestWorkflowValidator_MalformedJSON(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	doc, result := wv.Validate([]byte(`{"workflows":`))
	assert.Nil(t, doc)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeValidation, result.Errors[0].Code)
}

func TestWorkflowValidator_UnknownFieldRejected(t *testing.T) {
	wv, err := NewWorkflowValidator(nil)
	require.NoError(t, err)

	_, result := wv.Validate([]byte(`{"workflows": {"wf": {"initial_action": "a", "retries": 3,
		"actions": {"a": {"type": "noop"}}}}}`))
	assert.False(t, result.Valid())
}

func TestWorkflowValidator_SemanticErrors(t *testing.T) {
	lookup := newMockLookup("noop", "picky")
	lookup.reject["picky"] = schema.NewError(schema.ErrCodeInvalidConfig, "missing output_key_name")
	wv, err := NewWorkflowValidator(lookup)
	require.NoError(t, err)

	_, result := wv.Validate([]byte(`{
	  "workflows": {
	    "wf": {
	      "initial_action": "start",
	      "actions": {
	        "a": {"type": "ghost", "config": {"next_action": ""}},
	        "b": {"type": "picky", "config": {"next_action": ""}},
	        "c": {"type": "noop", "config": {"next_action": "nowhere"}},
	        "d": {"type": "noop", "config": {"next_action": 7}}
	      }
	    }
	  }
	}`))

	require.False(t, result.Valid())
	assert.ElementsMatch(t, []string{
		schema.ErrCodeUnknownAction,     // initial action
		schema.ErrCodeUnknownActionType, // a
		schema.ErrCodeInvalidConfig,     // b
		schema.ErrCodeUnknownAction,     // c
		schema.ErrCodeInvalidConfig,     // d
	}, codes(result.Errors))
	assert.Empty(t, result.Warnings, "graph stage is skipped when semantic checks fail")

	err = result.ToError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing output_key_name")
}

func TestWorkflowValidator_CycleAndUnreachableWarn(t *testing.T) {
	wv, err := NewWorkflowValidator(newMockLookup("noop"))
	require.NoError(t, err)

	_, result := wv.Validate([]byte(`{
	  "workflows": {
	    "wf": {
	      "initial_action": "a",
	      "actions": {
	        "a": {"type": "noop", "config": {"next_action": "b"}},
	        "b": {"type": "noop", "config": {"next_action": "a"}},
	        "orphan": {"type": "noop"}
	      }
	    }
	  }
	}`))

	require.True(t, result.Valid())
	assert.ElementsMatch(t, []string{schema.ErrCodeCycleDetected, schema.ErrCodeUnreachable}, codes(result.Warnings))
	for _, w := range result.Warnings {
		if w.Code == schema.ErrCodeUnreachable {
			assert.Equal(t, "workflows.wf.actions.orphan", w.Path)
		}
	}
}

func TestWorkflowValidator_DuplicateActionLastWins(t *testing.T) {
	wv, err := NewWorkflowValidator(newMockLookup("noop", "other"))
	require.NoError(t, err)

	doc, result := wv.Validate([]byte(`{
	  "workflows": {
	    "wf": {
	      "initial_action": "a",
	      "actions": {
	        "a": {"type": "noop"},
	        "a": {"type": "other"}
	      }
	    }
	  }
	}`))

	require.True(t, result.Valid())
	assert.Equal(t, []string{schema.ErrCodeDuplicateAction}, codes(result.Warnings))
	assert.Equal(t, "other", doc.Workflows["wf"].Actions["a"].Type)
}

func TestDuplicateKeys(t *testing.T) {
	assert.Equal(t, []string{"x"}, duplicateKeys([]byte(`{"x": 1, "y": {"x": 2}, "x": 3, "x": 4}`)))
	assert.Empty(t, duplicateKeys([]byte(`[1, 2]`)))
	assert.Empty(t, duplicateKeys(nil))
}
