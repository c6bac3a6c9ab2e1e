package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/cmdsrv/internal/credentials"
	"github.com/temirov/cmdsrv/internal/handlers"
	"github.com/temirov/cmdsrv/internal/model"
	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/services/server"
	"github.com/temirov/cmdsrv/internal/settings"
)

type fakeController struct {
	snapshot  *registry.Snapshot
	reloadErr error
	reloads   int
	stops     int
}

func (controller *fakeController) Reload(context.Context) (*registry.Snapshot, error) {
	controller.reloads++
	if controller.reloadErr != nil {
		return nil, controller.reloadErr
	}
	return controller.snapshot, nil
}

func (controller *fakeController) Stop() {
	controller.stops++
}

type staticSnapshot struct {
	snapshot *registry.Snapshot
}

func (provider staticSnapshot) Snapshot() *registry.Snapshot {
	return provider.snapshot
}

type fixture struct {
	handler     http.Handler
	controller  *fakeController
	settings    *settings.Store
	credentials *credentials.Store
	storage     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	directory := t.TempDir()

	settingsStore, err := settings.Open(filepath.Join(directory, "server-settings.yaml"))
	require.NoError(t, err)
	credentialStore, err := credentials.Open(filepath.Join(directory, "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = credentialStore.Close() })

	resolvers, err := registry.NewResolvers(handlers.Resolvers())
	require.NoError(t, err)

	controller := &fakeController{}
	storage := filepath.Join(directory, "credentials")
	snapshot, err := registry.Build(resolvers, nil, handlers.Modules(handlers.Dependencies{
		Settings:           settingsStore,
		Credentials:        credentialStore,
		CredentialsStorage: storage,
		Controller:         controller,
	})...)
	require.NoError(t, err)
	controller.snapshot = snapshot

	handler := server.NewServer(server.Config{
		Snapshots: staticSnapshot{snapshot: snapshot},
		Model:     model.New(settingsStore),
	}).Handler()
	return fixture{handler: handler, controller: controller, settings: settingsStore, credentials: credentialStore, storage: storage}
}

func (testFixture fixture) perform(t *testing.T, method string, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	testFixture.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeMessage(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload.Message
}

func TestCredentialResolverMatchesUppercaseKeys(t *testing.T) {
	resolvers, err := registry.NewResolvers(handlers.Resolvers())
	require.NoError(t, err)
	resolver, found := resolvers.Lookup(handlers.ResolverCredential)
	require.True(t, found)

	assert.True(t, resolver.Accepts("GITHUB_API"))
	assert.True(t, resolver.Accepts("X9"))
	assert.False(t, resolver.Accepts("github_api"))
	assert.False(t, resolver.Accepts("9X"))
	assert.False(t, resolver.Accepts(""))

	values, err := resolver.Options(context.Background(), registry.Bindings{}, model.Static{Credentials: []string{"ONLY"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ONLY"}, values)

	values, err = resolver.Options(context.Background(), registry.Bindings{}, nil)
	require.NoError(t, err)
	assert.Equal(t, credentials.KnownKeys(), values)
}

func TestModulesRegisterInSourceOrder(t *testing.T) {
	testFixture := newFixture(t)
	endpoints := testFixture.controller.snapshot.Endpoints()
	require.Len(t, endpoints, 9)

	sources := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		sources = append(sources, endpoint.Source())
	}
	assert.Equal(t, []string{
		"cmdsrv/server", "cmdsrv/server", "cmdsrv/server", "cmdsrv/server",
		"cmdsrv/plugins", "cmdsrv/plugins",
		"cmdsrv/credentials", "cmdsrv/credentials", "cmdsrv/credentials",
	}, sources)
}

func TestReloadReportsCommandCount(t *testing.T) {
	testFixture := newFixture(t)

	recorder := testFixture.perform(t, http.MethodPut, "/server/reload", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"commands":9}`, recorder.Body.String())
	assert.Equal(t, 1, testFixture.controller.reloads)

	testFixture.controller.reloadErr = errors.New("broken module")
	recorder = testFixture.perform(t, http.MethodPut, "/server/reload", "")
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, decodeMessage(t, recorder), "broken module")
}

func TestStopAcceptsOptionalSegment(t *testing.T) {
	testFixture := newFixture(t)

	for _, target := range []string{"/server/stop", "/server", "/server/"} {
		recorder := testFixture.perform(t, "UNBIND", target, "")
		require.Equal(t, http.StatusOK, recorder.Code, target)
		assert.Equal(t, "Server stopping.", decodeMessage(t, recorder))
	}
	assert.Equal(t, 3, testFixture.controller.stops)
}

func TestAddRegistriesPersistsURLs(t *testing.T) {
	testFixture := newFixture(t)

	recorder := testFixture.perform(t, http.MethodPut, "/server/plugins/registries/add", `{"registryURLs":" , "}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, testFixture.settings.RegistryURLs())

	recorder = testFixture.perform(t, http.MethodPut, "/server/plugins/registries/add", "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = testFixture.perform(t, http.MethodPut, "/server/plugins/registries/add", `{"registryURLs":"https://a.example,https://b.example"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, testFixture.settings.RegistryURLs())

	recorder = testFixture.perform(t, http.MethodGet, "/server/plugins/registries/list", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `["https://a.example","https://b.example"]`, recorder.Body.String())
}

func TestCredentialImportConflictsAndCopies(t *testing.T) {
	testFixture := newFixture(t)
	sourcePath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(sourcePath, []byte("key"), 0o600))
	body := `{"path":"` + sourcePath + `"}`

	recorder := testFixture.perform(t, http.MethodPut, "/credentials/GITHUB_SSH/import", body)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = testFixture.perform(t, http.MethodPut, "/credentials/GITHUB_SSH/import", body)
	require.Equal(t, http.StatusConflict, recorder.Code)

	replaceBody := `{"path":"` + sourcePath + `","replace":"yes","copyToStorage":true}`
	recorder = testFixture.perform(t, http.MethodPut, "/credentials/GITHUB_SSH/import", replaceBody)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.FileExists(t, filepath.Join(testFixture.storage, "GITHUB_SSH"))

	recorder = testFixture.perform(t, http.MethodPut, "/credentials/GITHUB_API/import", `{"path":"/does/not/exist"}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = testFixture.perform(t, http.MethodPut, "/credentials/NOT_KNOWN/import", body)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = testFixture.perform(t, http.MethodPut, "/credentials/GITHUB_API/import", `{"path":"`+sourcePath+`","bogus":null}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, decodeMessage(t, recorder), "unknown parameters: bogus")
}

func TestCredentialDetail(t *testing.T) {
	testFixture := newFixture(t)

	recorder := testFixture.perform(t, http.MethodGet, "/credentials/GITHUB_API/detail", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var detail map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &detail))
	assert.Equal(t, "GITHUB_API", detail["key"])
	assert.NotContains(t, detail, "imported")

	recorder = testFixture.perform(t, http.MethodGet, "/credentials/NOT_KNOWN/detail", "")
	require.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = testFixture.perform(t, http.MethodGet, "/credentials/lowercase/detail", "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}
