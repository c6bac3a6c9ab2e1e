package registry

import (
	"regexp"
	"strings"
)

// compileRoute synthesizes the anchored wire pattern for segments and reports the
// variable keys in capture order.
func compileRoute(source string, segments []Segment, resolvers *Resolvers) (string, *regexp.Regexp, []string, error) {
	var builder strings.Builder
	builder.WriteString("^")
	captureNames := make([]string, 0)
	for _, segment := range segments {
		switch segment.Kind {
		case SegmentLiteral:
			builder.WriteString("/")
			builder.WriteString(regexp.QuoteMeta(segment.Value))
		case SegmentOptionalLiteral:
			builder.WriteString("(?:/")
			builder.WriteString(regexp.QuoteMeta(segment.Value))
			builder.WriteString(")?")
		case SegmentVariable:
			resolver, found := resolvers.Lookup(segment.Value)
			if !found {
				return "", nil, nil, newConfigurationError(source, ErrUnknownResolver, "variable %q in %s", segment.Value, FormatPath(segments))
			}
			builder.WriteString("/(?P<")
			builder.WriteString(segment.Value)
			builder.WriteString(">(?:")
			builder.WriteString(resolver.Pattern())
			builder.WriteString("))")
			captureNames = append(captureNames, segment.Value)
		default:
			return "", nil, nil, newConfigurationError(source, ErrInvalidSegment, "segment kind %d", segment.Kind)
		}
	}
	builder.WriteString("/?$")

	pattern := builder.String()
	matcher, err := regexp.Compile(pattern)
	if err != nil {
		return "", nil, nil, newConfigurationError(source, ErrInvalidSegment, "compile %s: %v", pattern, err)
	}
	return pattern, matcher, captureNames, nil
}
