package registry

import (
	"encoding/json"
	"sort"
)

// Origin says where a parameter value comes from.
type Origin int

const (
	OriginQuery Origin = iota
	OriginPath
)

// Parameter is the declaration a command supplies.
type Parameter struct {
	Name        string
	Required    bool
	Multivalue  bool
	Boolean     bool
	Description string
}

// ParameterSpec is the frozen contract for one parameter of a registered command.
type ParameterSpec struct {
	name        string
	description string
	required    bool
	multivalue  bool
	boolean     bool
	origin      Origin
	position    int
}

func (spec ParameterSpec) Name() string { return spec.name }
func (spec ParameterSpec) Description() string { return spec.description }
func (spec ParameterSpec) Required() bool { return spec.required }
func (spec ParameterSpec) Multivalue() bool { return spec.multivalue }
func (spec ParameterSpec) Boolean() bool { return spec.boolean }
func (spec ParameterSpec) Origin() Origin { return spec.origin }
func (spec ParameterSpec) InPath() bool { return spec.origin == OriginPath }
func (spec ParameterSpec) InQuery() bool { return spec.origin == OriginQuery }

// Position is the capture order of a path parameter; -1 for query parameters.
func (spec ParameterSpec) Position() int { return spec.position }

type parameterDocument struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Multivalue  bool   `json:"isMultivalue"`
	Boolean     bool   `json:"isBoolean"`
	Description string `json:"description,omitempty"`
	InPath      bool   `json:"inPath,omitempty"`
	Position    *int   `json:"position,omitempty"`
	InQuery     bool   `json:"inQuery,omitempty"`
}

// MarshalJSON renders the introspection shape.
func (spec ParameterSpec) MarshalJSON() ([]byte, error) {
	document := parameterDocument{
		Name:        spec.name,
		Required:    spec.required,
		Multivalue:  spec.multivalue,
		Boolean:     spec.boolean,
		Description: spec.description,
		InPath:      spec.InPath(),
		InQuery:     spec.InQuery(),
	}
	if spec.InPath() {
		position := spec.position
		document.Position = &position
	}
	return json.Marshal(document)
}

// classifyParameters merges path captures (in capture order) with the declared parameters.
// Declarations naming a capture contribute only their description.
func classifyParameters(source string, captureNames []string, declared []Parameter) ([]ParameterSpec, error) {
	declaredByName := make(map[string]Parameter, len(declared))
	for _, parameter := range declared {
		if parameter.Name == "" {
			return nil, newConfigurationError(source, ErrIncompleteCommand, "parameter without a name")
		}
		if _, exists := declaredByName[parameter.Name]; exists {
			return nil, newConfigurationError(source, ErrDuplicateParameter, "parameter %q declared twice", parameter.Name)
		}
		declaredByName[parameter.Name] = parameter
	}

	specs := make([]ParameterSpec, 0, len(captureNames)+len(declared))
	captured := make(map[string]struct{}, len(captureNames))
	for position, name := range captureNames {
		if _, exists := captured[name]; exists {
			return nil, newConfigurationError(source, ErrDuplicateParameter, "path variable %q appears twice", name)
		}
		captured[name] = struct{}{}
		specs = append(specs, ParameterSpec{
			name:        name,
			description: declaredByName[name].Description,
			required:    true,
			origin:      OriginPath,
			position:    position,
		})
	}
	for _, parameter := range declared {
		if _, isPath := captured[parameter.Name]; isPath {
			continue
		}
		specs = append(specs, ParameterSpec{
			name:        parameter.Name,
			description: parameter.Description,
			required:    parameter.Required,
			multivalue:  parameter.Multivalue,
			boolean:     parameter.Boolean,
			origin:      OriginQuery,
			position:    -1,
		})
	}

	sort.SliceStable(specs, func(left, right int) bool {
		leftSpec, rightSpec := specs[left], specs[right]
		if leftSpec.origin != rightSpec.origin {
			return leftSpec.origin == OriginPath
		}
		if leftSpec.origin == OriginPath {
			return leftSpec.position < rightSpec.position
		}
		return leftSpec.name < rightSpec.name
	})
	return specs, nil
}
