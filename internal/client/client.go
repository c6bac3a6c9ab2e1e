// Package client talks to a running command server over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temirov/cmdsrv/internal/types"
)

const (
	defaultTimeout     = 30 * time.Second
	headerAccept       = "Accept"
	headerContentType  = "Content-Type"
	mimeTypeForm       = "application/x-www-form-urlencoded"
	httpScheme         = "http://"
	nextCommandsPath   = "/server/next-commands"
	apiPath            = "/server/api"
	reloadPath         = "/server/reload"
	stopPath           = "/server/stop"
	maximumErrorLength = 4096
)

// ErrEmptyMethod is returned when Call receives no HTTP method.
var ErrEmptyMethod = errors.New("method is required")

// ResponseError carries a non-2xx answer from the server.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (responseError *ResponseError) Error() string {
	if responseError.Message == "" {
		return fmt.Sprintf("server responded %d", responseError.StatusCode)
	}
	return fmt.Sprintf("server responded %d: %s", responseError.StatusCode, responseError.Message)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

// Client issues commands against a server base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for address, which may be host:port or a full http URL.
func New(address string, options ...Option) *Client {
	baseURL := strings.TrimSpace(address)
	if baseURL == "" {
		baseURL = types.DefaultAddress
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = httpScheme + baseURL
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// BaseURL reports the server URL commands are sent to.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// NextCommands asks the server for the candidates following command.
func (client *Client) NextCommands(ctx context.Context, command string, format string) ([]byte, error) {
	fields := url.Values{}
	if strings.TrimSpace(command) != "" {
		fields.Set(types.ParameterCommand, command)
	}
	return client.Call(ctx, types.MethodGet, nextCommandsPath, fields, format)
}

// API lists the registered endpoints.
func (client *Client) API(ctx context.Context, format string) ([]byte, error) {
	return client.Call(ctx, types.MethodGet, apiPath, nil, format)
}

// Reload rebuilds the server's command snapshot.
func (client *Client) Reload(ctx context.Context, format string) ([]byte, error) {
	return client.Call(ctx, types.MethodPut, reloadPath, nil, format)
}

// Stop shuts the server down.
func (client *Client) Stop(ctx context.Context, format string) ([]byte, error) {
	return client.Call(ctx, types.MethodUnbind, stopPath, nil, format)
}

// Call sends fields to path. Read methods carry them in the query string, others in a form body.
func (client *Client) Call(ctx context.Context, method string, path string, fields url.Values, format string) ([]byte, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, ErrEmptyMethod
	}
	target := client.baseURL + "/" + strings.TrimLeft(path, "/")

	var body io.Reader
	encoded := fields.Encode()
	if types.IsReadMethod(method) {
		if encoded != "" {
			target += "?" + encoded
		}
	} else if encoded != "" {
		body = strings.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		request.Header.Set(headerContentType, mimeTypeForm)
	}
	request.Header.Set(headerAccept, acceptFor(format))

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response for %s %s: %w", method, path, err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, &ResponseError{StatusCode: response.StatusCode, Message: errorMessage(payload)}
	}
	return payload, nil
}

func acceptFor(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), types.FormatText) {
		return types.MimeTypeText
	}
	return types.MimeTypeJSON
}

func errorMessage(payload []byte) string {
	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &decoded); err == nil && decoded.Message != "" {
		return decoded.Message
	}
	message := strings.TrimSpace(string(payload))
	if len(message) > maximumErrorLength {
		message = message[:maximumErrorLength]
	}
	return message
}
