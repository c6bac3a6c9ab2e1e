package registry

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

const (
	logMessageRegistered = "registered command"
	logFieldMethod       = "method"
	logFieldPattern      = "pattern"
	logFieldSource       = "source"
)

// Command is the registration input a handler module supplies.
type Command struct {
	Method string
	// Path accepts list notation ({"server", "stop?"}) or flat notation ("/server/stop?").
	Path       []string
	Parameters []Parameter
	Factory    ExecutorFactory
	Source     string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for registration lines and handed to executor factories.
func WithLogger(logger *zap.Logger) Option {
	return func(builder *Builder) {
		if logger != nil {
			builder.logger = logger
		}
	}
}

// Builder assembles a command tree. It is not safe for concurrent use.
type Builder struct {
	resolvers *Resolvers
	logger    *zap.Logger
	root      *Node
	routes    []route
	sealed    bool
}

// NewBuilder starts an empty tree whose variables resolve against resolvers.
func NewBuilder(resolvers *Resolvers, options ...Option) *Builder {
	builder := &Builder{
		resolvers: resolvers,
		logger:    zap.NewNop(),
		root:      newNode(),
	}
	for _, option := range options {
		option(builder)
	}
	return builder
}

// Register compiles command and attaches it to the tree. Nothing is attached when it fails.
func (builder *Builder) Register(command Command) (*EndpointDefinition, error) {
	source := command.Source
	if builder.sealed {
		return nil, newConfigurationError(source, ErrBuilderSealed, "register %s %v", command.Method, command.Path)
	}
	method := strings.ToUpper(strings.TrimSpace(command.Method))
	if method == "" || len(command.Path) == 0 || command.Factory == nil {
		return nil, newConfigurationError(source, ErrIncompleteCommand, "a command must define method, path and factory (method %q, path %v)", command.Method, command.Path)
	}

	segments, parseErr := ParseSegments(command.Path)
	if parseErr != nil {
		return nil, newConfigurationError(source, ErrInvalidSegment, "%v", parseErr)
	}
	if len(segments) == 0 {
		return nil, newConfigurationError(source, ErrIncompleteCommand, "path %v has no segments", command.Path)
	}
	flatPath := FormatPath(segments)

	if err := builder.checkPlacement(source, method, segments); err != nil {
		return nil, err
	}

	pattern, matcher, captureNames, compileErr := compileRoute(source, segments, builder.resolvers)
	if compileErr != nil {
		return nil, compileErr
	}
	parameters, classifyErr := classifyParameters(source, captureNames, command.Parameters)
	if classifyErr != nil {
		return nil, classifyErr
	}

	endpoint := &EndpointDefinition{
		method:     method,
		path:       flatPath,
		pattern:    pattern,
		source:     source,
		parameters: parameters,
		matcher:    matcher,
	}
	executor := command.Factory(Environment{
		Logger:     builder.logger,
		Endpoint:   endpoint,
		Parameters: endpoint.Parameters(),
	})
	if executor == nil {
		return nil, newConfigurationError(source, ErrIncompleteCommand, "factory for %s %s returned no executor", method, flatPath)
	}

	leaf := &Leaf{Endpoint: endpoint, Executor: executor}
	final := builder.root.attach(segments)
	final.leaves = append(final.leaves, leaf)
	builder.routes = append(builder.routes, route{endpoint: endpoint, leaf: leaf})

	builder.logger.Info(logMessageRegistered,
		zap.String(logFieldMethod, method),
		zap.String(logFieldPattern, pattern),
		zap.String(logFieldSource, source),
	)
	return endpoint, nil
}

// checkPlacement walks the existing tree without mutating it.
func (builder *Builder) checkPlacement(source string, method string, segments []Segment) error {
	current := builder.root
	for index, segment := range segments {
		if segment.Kind == SegmentVariable {
			if _, found := builder.resolvers.Lookup(segment.Value); !found {
				return newConfigurationError(source, ErrUnknownResolver, "variable %q in %s", segment.Value, FormatPath(segments))
			}
		}
		next, err := current.descend(segment)
		if errors.Is(err, ErrAmbiguousBranch) {
			return newConfigurationError(source, ErrAmbiguousBranch, "%s already branches on :%s, cannot add :%s", FormatPath(segments[:index]), current.variableKey, segment.Value)
		}
		if next == nil {
			return nil
		}
		current = next
	}
	if _, exists := current.Leaf(method); exists {
		return newConfigurationError(source, ErrDuplicateCommand, "%s %s already registered", method, FormatPath(segments))
	}
	return nil
}

// RegisterAll registers commands in order, stopping at the first error.
func (builder *Builder) RegisterAll(commands []Command) error {
	for _, command := range commands {
		if _, err := builder.Register(command); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot freezes the tree. Later Register calls fail.
func (builder *Builder) Snapshot() *Snapshot {
	builder.sealed = true
	return &Snapshot{
		root:      builder.root,
		resolvers: builder.resolvers,
		routes:    append([]route{}, builder.routes...),
	}
}

// Build registers every module against a fresh tree and returns its snapshot.
func Build(resolvers *Resolvers, logger *zap.Logger, modules ...[]Command) (*Snapshot, error) {
	builder := NewBuilder(resolvers, WithLogger(logger))
	for _, module := range modules {
		if err := builder.RegisterAll(module); err != nil {
			return nil, err
		}
	}
	return builder.Snapshot(), nil
}
