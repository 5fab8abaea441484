package registry

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/oscaptool/pkg/schema"
)

// isYAML reports whether path names a YAML workflow document.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlToJSON converts a YAML workflow document to the JSON form validation
// expects. Duplicate mapping keys are rejected by the YAML decoder.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow document is not valid YAML").WithCause(err)
	}
	normalized, err := normalizeYAML(doc)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow document is not representable as JSON").WithCause(err)
	}
	return json.Marshal(normalized)
}

// normalizeYAML replaces map[any]any nodes with map[string]any.
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			n, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("mapping key %v is not a string", k)
			}
			n, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		for i, child := range t {
			n, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	default:
		return v, nil
	}
}
