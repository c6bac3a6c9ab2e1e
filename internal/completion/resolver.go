// Package completion answers "what can come next" for partially typed command paths.
package completion

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/cmdsrv/internal/model"
	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/types"
	"github.com/temirov/cmdsrv/internal/utils"
)

const (
	cliSeparator   = " "
	urlSeparator   = "/"
	hiddenPrefix   = "_"
	loggerName     = "completion"
	logFieldQuery  = "command"
	logFieldReason = "reason"

	warnOptionCompletionFailed = "option completion failed; returning unfiltered candidates"
	errorUnmatchedSegment      = "unknown or unmatched path segment '%s' after '%s'"
	errorFetchOptionsFormat    = "fetch options for :%s: %w"
)

var optionsMarker = regexp.MustCompile(`(?:^|\s+)--\s*`)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for degraded option completion.
func WithLogger(logger *zap.Logger) Option {
	return func(resolver *Resolver) {
		if logger != nil {
			resolver.logger = logger.Named(loggerName)
		}
	}
}

// WithProgramName sets the leading word dropped from CLI-style queries.
func WithProgramName(programName string) Option {
	return func(resolver *Resolver) {
		resolver.programName = strings.TrimSpace(programName)
	}
}

// Resolver walks a snapshot to produce next-token candidates. It holds no per-query state.
type Resolver struct {
	logger      *zap.Logger
	programName string
}

// New builds a Resolver.
func New(options ...Option) *Resolver {
	resolver := &Resolver{logger: zap.NewNop(), programName: types.DefaultProgramName}
	for _, option := range options {
		option(resolver)
	}
	return resolver
}

type query struct {
	segments      []string
	separator     string
	optionString  string
	optionsMarked bool
}

func (resolver *Resolver) parse(partial string) query {
	parsed := query{}
	commandPath := partial
	if location := optionsMarker.FindStringIndex(partial); location != nil {
		commandPath = partial[:location[0]]
		parsed.optionString = partial[location[1]:]
		parsed.optionsMarked = true
	}

	commandPath = strings.TrimSpace(commandPath)
	if strings.Contains(commandPath, urlSeparator) {
		parsed.separator = urlSeparator
		parsed.segments = strings.Split(commandPath, urlSeparator)
		if len(parsed.segments) > 0 && parsed.segments[0] == "" {
			parsed.segments = parsed.segments[1:]
		}
		return parsed
	}

	parsed.separator = cliSeparator
	parsed.segments = strings.Fields(commandPath)
	if len(parsed.segments) > 0 && resolver.programName != "" && parsed.segments[0] == resolver.programName {
		parsed.segments = parsed.segments[1:]
	}
	return parsed
}

// NextTokens returns the sorted, de-duplicated candidates following partial. An unmatched
// segment is a *registry.RequestError and yields no candidates.
func (resolver *Resolver) NextTokens(ctx context.Context, snapshot *registry.Snapshot, partial string, reader model.Reader) ([]string, error) {
	parsed := resolver.parse(partial)

	node := snapshot.Root()
	bindings := registry.Bindings{}
	walked := make([]string, 0, len(parsed.segments))
	for _, segment := range parsed.segments {
		if segment == "" {
			break
		}
		if child, found := node.Literal(segment); found {
			walked = append(walked, segment)
			node = child
			continue
		}
		typeKey, child, hasVariable := node.Variable()
		if hasVariable {
			if variableResolver, found := snapshot.Resolvers().Lookup(typeKey); found && variableResolver.Accepts(segment) {
				walked = append(walked, segment)
				bindings[typeKey] = segment
				node = child
				continue
			}
		}
		return nil, registry.NewRequestError(errorUnmatchedSegment, segment, strings.Join(walked, parsed.separator))
	}

	candidates, err := resolver.candidates(ctx, snapshot, node, bindings, reader)
	if err != nil {
		return nil, err
	}

	if parsed.optionsMarked {
		if leaf, hasLeaf := node.PrimaryLeaf(); hasLeaf {
			options, optionsErr := OptionCompletions(leaf.Endpoint, parsed.optionString)
			if optionsErr != nil {
				resolver.logger.Warn(warnOptionCompletionFailed,
					zap.String(logFieldQuery, partial),
					zap.String(logFieldReason, optionsErr.Error()),
				)
				return candidates, nil
			}
			return options, nil
		}
	}
	return candidates, nil
}

func (resolver *Resolver) candidates(ctx context.Context, snapshot *registry.Snapshot, node *registry.Node, bindings registry.Bindings, reader model.Reader) ([]string, error) {
	var candidates []string
	for _, name := range node.LiteralNames() {
		if name == "" || strings.HasPrefix(name, hiddenPrefix) {
			continue
		}
		candidates = append(candidates, name)
	}
	if typeKey, _, hasVariable := node.Variable(); hasVariable {
		variableResolver, found := snapshot.Resolvers().Lookup(typeKey)
		if found {
			values, err := variableResolver.Options(ctx, bindings, reader)
			if err != nil {
				return nil, fmt.Errorf(errorFetchOptionsFormat, typeKey, err)
			}
			candidates = append(candidates, values...)
		}
	}
	return utils.SortedUnique(candidates), nil
}
