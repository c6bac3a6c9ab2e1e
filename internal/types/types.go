// Package types defines the constants shared across cmdsrv packages.
package types

const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	// MethodUnbind is the verb the stop command answers to.
	MethodUnbind = "UNBIND"

	FormatJSON = "json"
	FormatText = "text"

	MimeTypeJSON = "application/json"
	MimeTypeText = "text/plain"

	// ParameterCommand is the single parameter of the completion query.
	ParameterCommand = "command"

	// DefaultProgramName is dropped from the front of CLI-style completion queries.
	DefaultProgramName = "cmdsrv"
	// DefaultAddress is where the server listens unless configured otherwise.
	DefaultAddress = "127.0.0.1:32600"
)

// IsReadMethod reports whether parameters for the method are read from the query string.
func IsReadMethod(method string) bool {
	switch method {
	case MethodGet, MethodHead, MethodOptions:
		return true
	default:
		return false
	}
}
