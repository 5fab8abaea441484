package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rendis/oscaptool/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const documentSchemaURL = "https://oscaptool.dev/schemas/workflows.json"

// documentSchemaJSON is the JSON Schema for the workflow document.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://oscaptool.dev/schemas/workflows.json",
  "type": "object",
  "required": ["workflows"],
  "properties": {
    "workflows": {
      "type": "object",
      "minProperties": 1,
      "propertyNames": { "minLength": 1 },
      "additionalProperties": { "$ref": "#/$defs/workflow" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "workflow": {
      "type": "object",
      "required": ["initial_action", "actions"],
      "properties": {
        "description": { "type": "string" },
        "initial_action": { "type": "string", "minLength": 1 },
        "actions": {
          "type": "object",
          "minProperties": 1,
          "propertyNames": { "minLength": 1 },
          "additionalProperties": { "$ref": "#/$defs/action" }
        }
      },
      "additionalProperties": false
    },
    "action": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": { "type": "string", "minLength": 1 },
        "config": { "type": "object" }
      },
      "additionalProperties": false
    }
  }
}`

// JSONSchemaValidator validates the workflow document and action configs
// against JSON Schema Draft 2020-12. It is safe for concurrent use.
type JSONSchemaValidator struct {
	documentSchema *jsonschema.Schema

	// mu guards the cache of dynamically compiled config schemas.
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator creates a validator with the document schema pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := newCompiler()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document schema: %w", err)
	}
	if err := c.AddResource(documentSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add document schema resource: %w", err)
	}
	compiled, err := c.Compile(documentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}

	return &JSONSchemaValidator{
		documentSchema: compiled,
		cache:          make(map[string]*jsonschema.Schema),
	}, nil
}

// ValidateDocument validates raw workflow document bytes.
func (v *JSONSchemaValidator) ValidateDocument(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "workflow document is not valid JSON").WithCause(err)
	}
	if err := v.documentSchema.Validate(doc); err != nil {
		return toSchemaError(schema.ErrCodeValidation, err)
	}
	return nil
}

// ValidateValue validates value against a JSON Schema given as raw bytes.
// Failures carry the given error code. The compiled schema is cached.
func (v *JSONSchemaValidator) ValidateValue(value any, rawSchema []byte, code string) error {
	if len(rawSchema) == 0 {
		return nil
	}

	compiled, err := v.getOrCompile(rawSchema)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid schema").WithCause(err)
	}

	doc, err := toJSONValue(value)
	if err != nil {
		return schema.NewError(code, "value is not JSON-serializable").WithCause(err)
	}
	if err := compiled.Validate(doc); err != nil {
		return toSchemaError(code, err)
	}
	return nil
}

func (v *JSONSchemaValidator) getOrCompile(rawSchema []byte) (*jsonschema.Schema, error) {
	key := string(rawSchema)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// A fresh compiler per schema avoids resource URL collisions.
	url := fmt.Sprintf("oscaptool://config-schema/%d", len(v.cache))
	c := newCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// toJSONValue round-trips a Go value through JSON so numbers become
// json.Number, as the jsonschema library requires.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

// toSchemaError flattens a jsonschema.ValidationError into a single Error
// listing every leaf violation.
func toSchemaError(code string, err error) *schema.Error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(code, err.Error())
	}

	violations := collectViolations(verr)
	switch len(violations) {
	case 0:
		return schema.NewError(code, verr.Error())
	case 1:
		return schema.NewError(code, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	default:
		return schema.NewErrorf(code, "%d violations: %s", len(violations), strings.Join(violations, "; ")).
			WithDetails(map[string]any{"violations": violations})
	}
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
