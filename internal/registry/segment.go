package registry

import (
	"fmt"
	"strings"
)

const (
	pathDelimiter  = "/"
	variablePrefix = ":"
	optionalSuffix = "?"
)

// SegmentKind tags a Segment.
type SegmentKind int

const (
	SegmentLiteral SegmentKind = iota
	SegmentOptionalLiteral
	SegmentVariable
)

// Segment is one element of a command path. For variables Value is the resolver type key.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// Literal returns a fixed segment.
func Literal(value string) Segment {
	return Segment{Kind: SegmentLiteral, Value: value}
}

// OptionalLiteral returns a fixed segment that may be omitted on the wire.
func OptionalLiteral(value string) Segment {
	return Segment{Kind: SegmentOptionalLiteral, Value: value}
}

// Variable returns a segment resolved by the resolver registered under typeKey.
func Variable(typeKey string) Segment {
	return Segment{Kind: SegmentVariable, Value: typeKey}
}

// String renders the segment in path notation.
func (segment Segment) String() string {
	switch segment.Kind {
	case SegmentVariable:
		return variablePrefix + segment.Value
	case SegmentOptionalLiteral:
		return segment.Value + optionalSuffix
	default:
		return segment.Value
	}
}

// ParsePath reads flat notation such as "/credentials/:credential/import" or "server/stop?".
func ParsePath(path string) ([]Segment, error) {
	return ParseSegments([]string{path})
}

// ParseSegments reads list notation such as {"server", "stop?"}. Elements may themselves
// contain delimiters; empty elements are skipped.
func ParseSegments(elements []string) ([]Segment, error) {
	segments := make([]Segment, 0, len(elements))
	for _, element := range elements {
		for _, token := range strings.Split(element, pathDelimiter) {
			if token == "" {
				continue
			}
			segment, err := parseToken(token)
			if err != nil {
				return nil, err
			}
			segments = append(segments, segment)
		}
	}
	return segments, nil
}

func parseToken(token string) (Segment, error) {
	if strings.HasPrefix(token, variablePrefix) {
		key := strings.TrimPrefix(token, variablePrefix)
		if strings.HasSuffix(key, optionalSuffix) {
			return Segment{}, fmt.Errorf("%w: variable %q cannot be optional", ErrInvalidSegment, token)
		}
		if !isIdentifier(key) {
			return Segment{}, fmt.Errorf("%w: variable %q needs a resolver key of letters, digits or underscores", ErrInvalidSegment, token)
		}
		return Variable(key), nil
	}
	if strings.HasSuffix(token, optionalSuffix) {
		value := strings.TrimSuffix(token, optionalSuffix)
		if value == "" {
			return Segment{}, fmt.Errorf("%w: optional marker without a name", ErrInvalidSegment)
		}
		return OptionalLiteral(value), nil
	}
	return Literal(token), nil
}

// FormatPath renders segments in flat notation with a leading delimiter.
func FormatPath(segments []Segment) string {
	var builder strings.Builder
	for _, segment := range segments {
		builder.WriteString(pathDelimiter)
		builder.WriteString(segment.String())
	}
	if builder.Len() == 0 {
		return pathDelimiter
	}
	return builder.String()
}

func isIdentifier(value string) bool {
	if value == "" {
		return false
	}
	for index, character := range value {
		switch {
		case character == '_':
		case character >= 'a' && character <= 'z':
		case character >= 'A' && character <= 'Z':
		case character >= '0' && character <= '9' && index > 0:
		default:
			return false
		}
	}
	return true
}
