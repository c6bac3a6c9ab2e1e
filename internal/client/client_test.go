package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/cmdsrv/internal/client"
)

type recordedRequest struct {
	method      string
	path        string
	query       string
	body        string
	accept      string
	contentType string
}

func newRecordingServer(t *testing.T, status int, payload string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	recorded := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		recorded.method = request.Method
		recorded.path = request.URL.Path
		recorded.query = request.URL.RawQuery
		recorded.body = string(body)
		recorded.accept = request.Header.Get("Accept")
		recorded.contentType = request.Header.Get("Content-Type")
		writer.WriteHeader(status)
		_, _ = writer.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server, recorded
}

func TestNewNormalizesAddress(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:32600", client.New("").BaseURL())
	assert.Equal(t, "http://localhost:9000", client.New("localhost:9000").BaseURL())
	assert.Equal(t, "https://example.test", client.New("https://example.test/").BaseURL())
}

func TestNextCommandsSendsQuery(t *testing.T) {
	server, recorded := newRecordingServer(t, http.StatusOK, "credentials\nserver")
	payload, err := client.New(server.URL).NextCommands(context.Background(), "cmdsrv credentials", "text")
	require.NoError(t, err)

	assert.Equal(t, "credentials\nserver", string(payload))
	assert.Equal(t, http.MethodGet, recorded.method)
	assert.Equal(t, "/server/next-commands", recorded.path)
	assert.Equal(t, "command=cmdsrv+credentials", recorded.query)
	assert.Equal(t, "text/plain", recorded.accept)
}

func TestNextCommandsOmitsEmptyCommand(t *testing.T) {
	server, recorded := newRecordingServer(t, http.StatusOK, "[]")
	_, err := client.New(server.URL).NextCommands(context.Background(), "  ", "json")
	require.NoError(t, err)
	assert.Empty(t, recorded.query)
	assert.Equal(t, "application/json", recorded.accept)
}

func TestCallSendsWriteFieldsAsForm(t *testing.T) {
	server, recorded := newRecordingServer(t, http.StatusOK, `{"message":"ok"}`)
	fields := url.Values{"registryURLs": {"https://a.example"}}
	_, err := client.New(server.URL).Call(context.Background(), "put", "server/plugins/registries/add", fields, "json")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, recorded.method)
	assert.Equal(t, "/server/plugins/registries/add", recorded.path)
	assert.Empty(t, recorded.query)
	assert.Equal(t, "registryURLs=https%3A%2F%2Fa.example", recorded.body)
	assert.Equal(t, "application/x-www-form-urlencoded", recorded.contentType)
}

func TestStopUsesUnbind(t *testing.T) {
	server, recorded := newRecordingServer(t, http.StatusOK, `{"message":"Server stopping."}`)
	_, err := client.New(server.URL).Stop(context.Background(), "json")
	require.NoError(t, err)
	assert.Equal(t, "UNBIND", recorded.method)
	assert.Equal(t, "/server/stop", recorded.path)
	assert.Empty(t, recorded.contentType)
}

func TestCallReturnsResponseError(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected string
	}{
		{name: "json_message", payload: `{"message":"unknown parameters: x while accessing GET /server/api"}`, expected: "unknown parameters: x while accessing GET /server/api"},
		{name: "plain_body", payload: "  gateway down \n", expected: "gateway down"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server, _ := newRecordingServer(t, http.StatusBadRequest, testCase.payload)
			_, err := client.New(server.URL).API(context.Background(), "json")
			var responseError *client.ResponseError
			require.True(t, errors.As(err, &responseError))
			assert.Equal(t, http.StatusBadRequest, responseError.StatusCode)
			assert.Equal(t, testCase.expected, responseError.Message)
			assert.True(t, strings.HasPrefix(err.Error(), "server responded 400"))
		})
	}
}

func TestCallRejectsEmptyMethod(t *testing.T) {
	_, err := client.New("").Call(context.Background(), " ", "/server/api", nil, "json")
	assert.ErrorIs(t, err, client.ErrEmptyMethod)
}
