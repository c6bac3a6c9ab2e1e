package credentials_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/cmdsrv/internal/credentials"
)

func openStore(t *testing.T) (*credentials.Store, string) {
	t.Helper()
	directory := t.TempDir()
	store, err := credentials.Open(filepath.Join(directory, "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, directory
}

func writeCredentialFile(t *testing.T, directory string, name string) string {
	t.Helper()
	path := filepath.Join(directory, name)
	require.NoError(t, os.WriteFile(path, []byte("secret"), 0o600))
	return path
}

func TestOpenFailsWhenDataDirIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store, err := credentials.Open(filepath.Join(blocker, "credentials.db"))
	require.Nil(t, store)
	require.ErrorContains(t, err, "credentials: create data dir")
}

func TestKnownKeysSorted(t *testing.T) {
	require.Equal(t, []string{credentials.KeyGitHubAPI, credentials.KeyGitHubSSH}, credentials.KnownKeys())
}

func TestImportInPlaceAndList(t *testing.T) {
	store, directory := openStore(t)
	sourcePath := writeCredentialFile(t, directory, "token.txt")

	imported, err := store.Import(context.Background(), credentials.ImportRequest{Key: credentials.KeyGitHubAPI, SourcePath: sourcePath})
	require.NoError(t, err)
	require.Equal(t, sourcePath, imported.Path)
	require.False(t, imported.InStorage)

	listed, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, credentials.KeyGitHubAPI, listed[0].Key)
	require.Equal(t, "GitHub API token", listed[0].Name)
}

func TestImportRequiresReplaceForExisting(t *testing.T) {
	store, directory := openStore(t)
	sourcePath := writeCredentialFile(t, directory, "id_ed25519")
	request := credentials.ImportRequest{Key: credentials.KeyGitHubSSH, SourcePath: sourcePath}

	_, err := store.Import(context.Background(), request)
	require.NoError(t, err)

	_, err = store.Import(context.Background(), request)
	require.ErrorIs(t, err, credentials.ErrCredentialExists)

	request.Replace = true
	_, err = store.Import(context.Background(), request)
	require.NoError(t, err)
}

func TestImportCopiesIntoStorage(t *testing.T) {
	store, directory := openStore(t)
	sourcePath := writeCredentialFile(t, directory, "token.txt")
	storageDirectory := filepath.Join(directory, "credentials")

	imported, err := store.Import(context.Background(), credentials.ImportRequest{
		Key:              credentials.KeyGitHubAPI,
		SourcePath:       sourcePath,
		StorageDirectory: storageDirectory,
	})
	require.NoError(t, err)
	require.True(t, imported.InStorage)
	require.Equal(t, filepath.Join(storageDirectory, "GITHUB_API.txt"), imported.Path)

	content, readErr := os.ReadFile(imported.Path)
	require.NoError(t, readErr)
	require.Equal(t, "secret", string(content))
}

func TestImportRejectsInvalidRequests(t *testing.T) {
	store, directory := openStore(t)

	testCases := []struct {
		name    string
		request credentials.ImportRequest
		target  error
	}{
		{name: "unknown key", request: credentials.ImportRequest{Key: "NOPE", SourcePath: directory}, target: credentials.ErrUnknownCredential},
		{name: "missing path", request: credentials.ImportRequest{Key: credentials.KeyGitHubAPI}, target: credentials.ErrMissingSourcePath},
		{name: "absent file", request: credentials.ImportRequest{Key: credentials.KeyGitHubAPI, SourcePath: filepath.Join(directory, "absent")}, target: os.ErrNotExist},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := store.Import(context.Background(), testCase.request)
			require.ErrorIs(t, err, testCase.target)
		})
	}
}
