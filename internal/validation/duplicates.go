package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rendis/oscaptool/pkg/schema"
)

// validateDuplicates reports action names defined more than once inside one
// workflow. encoding/json keeps the last definition, so the warning names the
// one that wins.
func validateDuplicates(raw []byte) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	var doc struct {
		Workflows map[string]struct {
			Actions json.RawMessage `json:"actions"`
		} `json:"workflows"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return result
	}

	for _, id := range sortedKeys(doc.Workflows) {
		for _, name := range duplicateKeys(doc.Workflows[id].Actions) {
			result.AddWarning(fmt.Sprintf("workflows.%s.actions.%s", id, name), schema.ErrCodeDuplicateAction,
				fmt.Sprintf("action %q is defined more than once; the last definition is used", name))
		}
	}
	return result
}

// duplicateKeys returns the top-level keys of a JSON object that occur more than once.
func duplicateKeys(obj json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}

	seen := make(map[string]int)
	var dups []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return dups
		}
		key, _ := tok.(string)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return dups
		}
	}
	return dups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
