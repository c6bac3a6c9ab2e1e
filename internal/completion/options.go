package completion

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/utils"
)

const (
	optionAssignment = "="
	escapedSeparator = `\,`
	booleanTrue      = "true"
	booleanFalse     = "false"
)

var (
	// ErrUnknownOption is reported for an option the command does not declare.
	ErrUnknownOption = errors.New("unknown option")
	// ErrMalformedOption is reported for option text that cannot be read as name[=value].
	ErrMalformedOption = errors.New("malformed option")
)

// OptionCompletions completes the option text typed after "--" against the endpoint's
// query parameters. Completed tokens are name or name=value separated by whitespace; the
// last token is the one being typed unless the text ends in whitespace.
func OptionCompletions(endpoint *registry.EndpointDefinition, optionString string) ([]string, error) {
	if strings.Contains(optionString, escapedSeparator) {
		return nil, fmt.Errorf("%w: escaped separator in %q", ErrMalformedOption, optionString)
	}

	specs := make(map[string]registry.ParameterSpec)
	for _, spec := range endpoint.QueryParameters() {
		specs[spec.Name()] = spec
	}

	tokens := strings.Fields(optionString)
	current := ""
	if len(tokens) > 0 && !endsInSpace(optionString) {
		current = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	used := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		name, _, _ := strings.Cut(token, optionAssignment)
		if name == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedOption, token)
		}
		if _, declared := specs[name]; !declared {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, name)
		}
		used[name] = struct{}{}
	}

	if name, _, assigned := strings.Cut(current, optionAssignment); assigned {
		spec, declared := specs[name]
		if !declared {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, name)
		}
		if !spec.Boolean() {
			return []string{}, nil
		}
		values := []string{name + optionAssignment + booleanFalse, name + optionAssignment + booleanTrue}
		return nonNil(utils.FilterPrefix(values, current)), nil
	}

	var completions []string
	for name, spec := range specs {
		if _, alreadyUsed := used[name]; alreadyUsed && !spec.Multivalue() {
			continue
		}
		if spec.Boolean() {
			completions = append(completions, name)
			continue
		}
		completions = append(completions, name+optionAssignment)
	}
	sort.Strings(completions)
	return nonNil(utils.FilterPrefix(completions, current)), nil
}

func endsInSpace(value string) bool {
	return value != "" && strings.TrimRight(value, " \t\n") != value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
