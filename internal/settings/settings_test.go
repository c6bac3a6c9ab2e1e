package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/cmdsrv/internal/settings"
)

func TestOpenCreatesDefaultSettings(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "nested", "server-settings.yaml")

	store, err := settings.Open(settingsPath)
	require.NoError(t, err)
	require.Empty(t, store.RegistryURLs())

	content, readErr := os.ReadFile(settingsPath)
	require.NoError(t, readErr)
	require.Contains(t, string(content), "registries: []")
}

func TestAddRegistriesDeduplicatesAndPersists(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "server-settings.yaml")
	store, err := settings.Open(settingsPath)
	require.NoError(t, err)

	added, registries, err := store.AddRegistries([]string{"https://a.example/registry.json", "https://b.example/registry.json", "https://a.example/registry.json"})
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Len(t, registries, 2)

	added, _, err = store.AddRegistries([]string{"https://b.example/registry.json"})
	require.NoError(t, err)
	require.Zero(t, added)

	reopened, err := settings.Open(settingsPath)
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example/registry.json", "https://b.example/registry.json"}, reopened.RegistryURLs())
}

func TestAddRegistriesRejectsBlankURL(t *testing.T) {
	store, err := settings.Open(filepath.Join(t.TempDir(), "server-settings.yaml"))
	require.NoError(t, err)

	_, _, err = store.AddRegistries([]string{"https://a.example", "  "})
	require.ErrorIs(t, err, settings.ErrEmptyRegistryURL)
	require.Empty(t, store.RegistryURLs())
}

func TestOpenRejectsMalformedYAML(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "server-settings.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("registries: [unclosed"), 0o600))

	_, err := settings.Open(settingsPath)
	require.Error(t, err)
}
