package registry

import (
	"errors"
	"fmt"
)

// Sentinels carried by ConfigurationError.
var (
	ErrUnknownResolver    = errors.New("unknown path resolver")
	ErrInvalidResolver    = errors.New("invalid path resolver")
	ErrAmbiguousBranch    = errors.New("ambiguous variable branch")
	ErrIncompleteCommand  = errors.New("incomplete command")
	ErrDuplicateParameter = errors.New("duplicate parameter")
	ErrDuplicateCommand   = errors.New("duplicate command")
	ErrInvalidSegment     = errors.New("invalid path segment")
	ErrBuilderSealed      = errors.New("builder already produced a snapshot")
)

// Routing outcomes reported by Snapshot.Lookup.
var (
	ErrRouteNotFound    = errors.New("no command matches path")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// ConfigurationError aborts startup or reload. Source names the module that supplied the command.
type ConfigurationError struct {
	Source string
	Err    error
	Detail string
}

func (configurationError *ConfigurationError) Error() string {
	if configurationError.Source == "" {
		return fmt.Sprintf("%v: %s", configurationError.Err, configurationError.Detail)
	}
	return fmt.Sprintf("%s: %v: %s", configurationError.Source, configurationError.Err, configurationError.Detail)
}

func (configurationError *ConfigurationError) Unwrap() error {
	return configurationError.Err
}

func newConfigurationError(source string, sentinel error, detailFormat string, arguments ...any) *ConfigurationError {
	return &ConfigurationError{Source: source, Err: sentinel, Detail: fmt.Sprintf(detailFormat, arguments...)}
}

// RequestError rejects a single request; the caller sees Message.
type RequestError struct {
	Message string
}

func (requestError *RequestError) Error() string {
	return requestError.Message
}

// NewRequestError formats a RequestError.
func NewRequestError(format string, arguments ...any) *RequestError {
	return &RequestError{Message: fmt.Sprintf(format, arguments...)}
}

// IsRequestError reports whether err carries a RequestError.
func IsRequestError(err error) bool {
	var requestError *RequestError
	return errors.As(err, &requestError)
}

// MethodNotAllowedError is returned when a path matches only under other methods.
type MethodNotAllowedError struct {
	Method  string
	Path    string
	Allowed []string
}

func (methodError *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrMethodNotAllowed, methodError.Method, methodError.Path)
}

func (methodError *MethodNotAllowedError) Is(target error) bool {
	return target == ErrMethodNotAllowed
}
