package actions

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rendis/oscaptool/internal/validation"
	"github.com/rendis/oscaptool/pkg/schema"
)

// VariantInfo is a summary of a registered action variant for listing.
type VariantInfo struct {
	Selector     string          `json:"selector"`
	Description  string          `json:"description,omitempty"`
	ConfigSchema json.RawMessage `json:"config_schema,omitempty"`
}

type variant struct {
	info VariantInfo
	ctor Constructor
}

// Factory materializes actions from (selector, config) pairs using a
// registry of constructors. It is safe for concurrent use.
type Factory struct {
	deps      *Deps
	validator *validation.JSONSchemaValidator

	mu       sync.RWMutex
	variants map[string]variant
}

// NewFactory creates an empty Factory. Zero-valued deps are filled with
// defaults.
func NewFactory(deps Deps) (*Factory, error) {
	d, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	v, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Factory{
		deps:      d,
		validator: v,
		variants:  make(map[string]variant),
	}, nil
}

// Register adds a constructor under selector. configSchema may be empty.
// Returns CONFLICT on a duplicate selector.
func (f *Factory) Register(selector string, ctor Constructor, configSchema, description string) error {
	if selector == "" {
		return schema.NewError(schema.ErrCodeValidation, "selector is empty")
	}
	if ctor == nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "constructor for %q is nil", selector)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.variants[selector]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "action type %q already registered", selector)
	}
	info := VariantInfo{Selector: selector, Description: description}
	if configSchema != "" {
		info.ConfigSchema = json.RawMessage(configSchema)
	}
	f.variants[selector] = variant{info: info, ctor: ctor}
	return nil
}

// Create resolves selector and builds a fresh action from config.
// Every failure is an ACTION_CREATION_ERROR whose cause carries the specific
// code (UNKNOWN_ACTION_TYPE or INVALID_CONFIG).
func (f *Factory) Create(selector string, config map[string]any) (Action, error) {
	a, err := f.build(selector, config)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeActionCreation, "cannot create action %q", selector).
			WithAction(selector).WithCause(err)
	}
	return a, nil
}

// ValidateConfig reports whether config is acceptable for selector without
// keeping the constructed action.
func (f *Factory) ValidateConfig(selector string, config map[string]any) error {
	_, err := f.build(selector, config)
	return err
}

// Has reports whether selector is registered.
func (f *Factory) Has(selector string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.variants[selector]
	return ok
}

// List returns the registered variants sorted by selector.
func (f *Factory) List() []VariantInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()

	infos := make([]VariantInfo, 0, len(f.variants))
	for _, v := range f.variants {
		infos = append(infos, v.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Selector < infos[j].Selector
	})
	return infos
}

// Count returns the number of registered variants.
func (f *Factory) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.variants)
}

func (f *Factory) build(selector string, config map[string]any) (Action, error) {
	f.mu.RLock()
	v, ok := f.variants[selector]
	f.mu.RUnlock()
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeUnknownActionType, "unknown action type %q", selector)
	}

	if config == nil {
		config = map[string]any{}
	}
	if len(v.info.ConfigSchema) > 0 {
		if err := f.validator.ValidateValue(config, v.info.ConfigSchema, schema.ErrCodeInvalidConfig); err != nil {
			return nil, err
		}
	}

	a, err := v.ctor(Config(config), f.deps)
	if err != nil {
		if schema.HasCode(err, schema.ErrCodeInvalidConfig) {
			return nil, err
		}
		return nil, schema.NewError(schema.ErrCodeInvalidConfig, "invalid configuration").WithCause(err)
	}
	if a == nil {
		return nil, schema.NewErrorf(schema.ErrCodeInvalidConfig, "constructor for %q returned no action", selector)
	}
	return a, nil
}
