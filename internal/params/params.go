// Package params binds request fields to a registered command's parameter contract.
package params

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/temirov/cmdsrv/internal/registry"
)

const (
	multivalueSeparator = ','
	escapeCharacter     = '\\'

	errorUnknownParametersFormat = "unknown parameters: %s while accessing %s"
	errorMissingParameterFormat  = "missing required parameter '%s' for %s %s"
	errorRepeatedParameterFormat = "parameter '%s' accepts a single value but received %d"
	errorDecodePathFormat        = "could not decode path parameter '%s' value '%s'"
	errorParseBooleanFormat      = "could not parse parameter '%s' value '%s' as boolean"
)

var (
	truePattern  = regexp.MustCompile(`^(?i:y|yes|t|true|1)$`)
	falsePattern = regexp.MustCompile(`^(?i:n|no|f|false|0)$`)
)

// Source holds raw request fields by name.
type Source map[string][]string

// Process validates source against the endpoint contract, decodes the path captures and
// returns the bound values. Vars holds the supplied declared parameters and every capture.
func Process(endpoint *registry.EndpointDefinition, source Source, captures map[string]string) (registry.Vars, error) {
	if unknown := unknownFields(endpoint, source); len(unknown) > 0 {
		return nil, registry.NewRequestError(errorUnknownParametersFormat, strings.Join(unknown, ", "), endpoint.Path())
	}

	vars := make(registry.Vars, len(captures)+len(source))
	for _, spec := range endpoint.Parameters() {
		if spec.InPath() {
			raw := captures[spec.Name()]
			decoded, err := url.PathUnescape(raw)
			if err != nil {
				return nil, registry.NewRequestError(errorDecodePathFormat, spec.Name(), raw)
			}
			vars[spec.Name()] = decoded
			continue
		}

		values, supplied := source[spec.Name()]
		if !supplied || len(values) == 0 {
			if spec.Required() {
				return nil, registry.NewRequestError(errorMissingParameterFormat, spec.Name(), endpoint.Method(), endpoint.Path())
			}
			continue
		}
		value, err := bindQueryParameter(spec, values)
		if err != nil {
			return nil, err
		}
		vars[spec.Name()] = value
	}
	return vars, nil
}

func unknownFields(endpoint *registry.EndpointDefinition, source Source) []string {
	var unknown []string
	for name := range source {
		spec, declared := endpoint.Parameter(name)
		if !declared || !spec.InQuery() {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func bindQueryParameter(spec registry.ParameterSpec, values []string) (any, error) {
	if spec.Multivalue() {
		entries := make([]string, 0, len(values))
		for _, value := range values {
			entries = append(entries, SplitMultivalue(value)...)
		}
		if !spec.Boolean() {
			return entries, nil
		}
		flags := make([]bool, 0, len(entries))
		for _, entry := range entries {
			flag, err := parseBooleanParameter(spec.Name(), entry)
			if err != nil {
				return nil, err
			}
			flags = append(flags, flag)
		}
		return flags, nil
	}

	if len(values) > 1 {
		return nil, registry.NewRequestError(errorRepeatedParameterFormat, spec.Name(), len(values))
	}
	if spec.Boolean() {
		return parseBooleanParameter(spec.Name(), values[0])
	}
	return values[0], nil
}

func parseBooleanParameter(name string, value string) (bool, error) {
	flag, err := ParseBoolean(value)
	if err != nil {
		return false, registry.NewRequestError(errorParseBooleanFormat, name, value)
	}
	return flag, nil
}

// ParseBoolean accepts y, yes, t, true, 1 and n, no, f, false, 0 in any case.
func ParseBoolean(value string) (bool, error) {
	switch {
	case truePattern.MatchString(value):
		return true, nil
	case falsePattern.MatchString(value):
		return false, nil
	default:
		return false, &InvalidBooleanError{Value: value}
	}
}

// InvalidBooleanError reports a value outside the accepted boolean literals.
type InvalidBooleanError struct {
	Value string
}

func (invalidBooleanError *InvalidBooleanError) Error() string {
	return "invalid boolean value '" + invalidBooleanError.Value + "'"
}

// SplitMultivalue splits on commas not preceded by a backslash, unescapes "\,",
// trims every entry and drops empty ones.
func SplitMultivalue(value string) []string {
	var entries []string
	var current strings.Builder
	flush := func() {
		entry := strings.TrimSpace(current.String())
		if entry != "" {
			entries = append(entries, entry)
		}
		current.Reset()
	}

	runes := []rune(value)
	for index := 0; index < len(runes); index++ {
		character := runes[index]
		if character == escapeCharacter && index+1 < len(runes) && runes[index+1] == multivalueSeparator {
			current.WriteRune(multivalueSeparator)
			index++
			continue
		}
		if character == multivalueSeparator {
			flush()
			continue
		}
		current.WriteRune(character)
	}
	flush()
	return entries
}
