package registry

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/temirov/cmdsrv/internal/model"
)

const resolversSource = "path resolvers"

// Bindings maps resolver type keys to the values walked so far in a completion query.
type Bindings map[string]string

// Clone returns an independent copy.
func (bindings Bindings) Clone() Bindings {
	clone := make(Bindings, len(bindings))
	for key, value := range bindings {
		clone[key] = value
	}
	return clone
}

// OptionsFetcher lists the values a variable segment may take at this point of the walk.
type OptionsFetcher func(ctx context.Context, bindings Bindings, reader model.Reader) ([]string, error)

// PathResolver declares how one variable type is matched and completed.
type PathResolver struct {
	// Pattern is a regular expression tested against the whole segment value.
	Pattern string
	Options OptionsFetcher
}

// Resolver is a compiled PathResolver.
type Resolver struct {
	key       string
	pattern   string
	valueTest *regexp.Regexp
	options   OptionsFetcher
}

// Key returns the resolver type key.
func (resolver *Resolver) Key() string { return resolver.key }

// Pattern returns the value pattern as declared.
func (resolver *Resolver) Pattern() string { return resolver.pattern }

// Accepts reports whether value is a full match of the resolver pattern.
func (resolver *Resolver) Accepts(value string) bool {
	return resolver.valueTest.MatchString(value)
}

// Options calls the fetcher with a private copy of the bindings.
func (resolver *Resolver) Options(ctx context.Context, bindings Bindings, reader model.Reader) ([]string, error) {
	return resolver.options(ctx, bindings.Clone(), reader)
}

// Resolvers is the immutable registry of path resolvers keyed by type.
type Resolvers struct {
	byKey map[string]*Resolver
}

// NewResolvers compiles every declaration. Patterns may not declare named groups since
// named captures on the wire are reserved for path parameters.
func NewResolvers(declarations map[string]PathResolver) (*Resolvers, error) {
	resolvers := &Resolvers{byKey: make(map[string]*Resolver, len(declarations))}
	for key, declaration := range declarations {
		if !isIdentifier(key) {
			return nil, newConfigurationError(resolversSource, ErrInvalidResolver, "type key %q must be letters, digits or underscores", key)
		}
		if declaration.Options == nil {
			return nil, newConfigurationError(resolversSource, ErrInvalidResolver, "type key %q has no options fetcher", key)
		}
		valueTest, err := regexp.Compile(anchoredPattern(declaration.Pattern))
		if err != nil {
			return nil, newConfigurationError(resolversSource, ErrInvalidResolver, "type key %q: %v", key, err)
		}
		for _, name := range valueTest.SubexpNames() {
			if name != "" {
				return nil, newConfigurationError(resolversSource, ErrInvalidResolver, "type key %q: pattern declares named group %q", key, name)
			}
		}
		resolvers.byKey[key] = &Resolver{
			key:       key,
			pattern:   declaration.Pattern,
			valueTest: valueTest,
			options:   declaration.Options,
		}
	}
	return resolvers, nil
}

// Lookup returns the resolver for typeKey.
func (resolvers *Resolvers) Lookup(typeKey string) (*Resolver, bool) {
	if resolvers == nil {
		return nil, false
	}
	resolver, found := resolvers.byKey[typeKey]
	return resolver, found
}

// Keys lists the registered type keys in sorted order.
func (resolvers *Resolvers) Keys() []string {
	if resolvers == nil {
		return nil
	}
	keys := make([]string, 0, len(resolvers.byKey))
	for key := range resolvers.byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func anchoredPattern(pattern string) string {
	return fmt.Sprintf("^(?:%s)$", pattern)
}

// StaticOptions returns a fetcher that always answers values.
func StaticOptions(values ...string) OptionsFetcher {
	return func(context.Context, Bindings, model.Reader) ([]string, error) {
		return append([]string{}, values...), nil
	}
}
