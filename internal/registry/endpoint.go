package registry

import (
	"encoding/json"
	"regexp"
)

// EndpointDefinition is the frozen description of one registered command.
type EndpointDefinition struct {
	method     string
	path       string
	pattern    string
	source     string
	parameters []ParameterSpec
	matcher    *regexp.Regexp
}

func (endpoint *EndpointDefinition) Method() string { return endpoint.method }

// Path is the registered path in flat notation.
func (endpoint *EndpointDefinition) Path() string { return endpoint.path }

// Pattern is the source of the wire matcher.
func (endpoint *EndpointDefinition) Pattern() string { return endpoint.pattern }

// Source names the module that registered the command.
func (endpoint *EndpointDefinition) Source() string { return endpoint.source }

// Parameters returns a copy of the parameter contract, path parameters first.
func (endpoint *EndpointDefinition) Parameters() []ParameterSpec {
	return append([]ParameterSpec{}, endpoint.parameters...)
}

// Parameter looks up a parameter by name.
func (endpoint *EndpointDefinition) Parameter(name string) (ParameterSpec, bool) {
	for _, spec := range endpoint.parameters {
		if spec.name == name {
			return spec, true
		}
	}
	return ParameterSpec{}, false
}

// QueryParameters returns the query parameters sorted by name.
func (endpoint *EndpointDefinition) QueryParameters() []ParameterSpec {
	specs := make([]ParameterSpec, 0, len(endpoint.parameters))
	for _, spec := range endpoint.parameters {
		if spec.InQuery() {
			specs = append(specs, spec)
		}
	}
	return specs
}

// Match tests an escaped request path and returns the raw captures by parameter name.
func (endpoint *EndpointDefinition) Match(escapedPath string) (map[string]string, bool) {
	submatches := endpoint.matcher.FindStringSubmatch(escapedPath)
	if submatches == nil {
		return nil, false
	}
	captures := make(map[string]string)
	for index, name := range endpoint.matcher.SubexpNames() {
		if name == "" || index >= len(submatches) {
			continue
		}
		captures[name] = submatches[index]
	}
	return captures, true
}

type endpointDocument struct {
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Parameters []ParameterSpec `json:"parameters"`
	Matcher    string          `json:"matcher"`
	Source     string          `json:"source"`
}

// MarshalJSON renders the introspection shape served by the api command.
func (endpoint *EndpointDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(endpointDocument{
		Method:     endpoint.method,
		Path:       endpoint.path,
		Parameters: endpoint.Parameters(),
		Matcher:    endpoint.pattern,
		Source:     endpoint.source,
	})
}
