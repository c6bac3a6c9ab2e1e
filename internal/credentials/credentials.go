// Package credentials records imported credential files in a local SQLite database.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName            = "sqlite"
	dataDirPermissions    = 0o700
	storedFilePermissions = 0o600

	// KeyGitHubAPI identifies a GitHub API token file.
	KeyGitHubAPI = "GITHUB_API"
	// KeyGitHubSSH identifies a GitHub SSH private key.
	KeyGitHubSSH = "GITHUB_SSH"
)

var (
	// ErrUnknownCredential reports a credential key outside the known types.
	ErrUnknownCredential = errors.New("unknown credential type")
	// ErrCredentialExists reports an import over an existing record without replace.
	ErrCredentialExists = errors.New("credential already imported")
	// ErrMissingSourcePath reports an import without a source file.
	ErrMissingSourcePath = errors.New("credential source path is required")
)

// Type describes one credential kind the server understands.
type Type struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var knownTypes = map[string]Type{
	KeyGitHubAPI: {Key: KeyGitHubAPI, Name: "GitHub API token", Description: "Personal access token used for GitHub API calls."},
	KeyGitHubSSH: {Key: KeyGitHubSSH, Name: "GitHub SSH key", Description: "Private key used for git operations over SSH."},
}

// KnownKeys lists the credential type keys in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownTypes))
	for key := range knownTypes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// LookupType returns the credential type registered under key.
func LookupType(key string) (Type, bool) {
	credentialType, found := knownTypes[key]
	return credentialType, found
}

// Credential is one imported credential record.
type Credential struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	InStorage  bool   `json:"inStorage"`
	ImportedAt string `json:"importedAt"`
}

// ImportRequest describes a credential import.
type ImportRequest struct {
	Key        string
	SourcePath string
	Replace    bool
	// StorageDirectory, when set, receives a copy of the source file and the record points at the copy.
	StorageDirectory string
}

// Store persists credential records.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the credential database at databasePath.
func Open(databasePath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(databasePath), dataDirPermissions); err != nil {
		return nil, fmt.Errorf("credentials: create data dir: %w", err)
	}
	db, err := sql.Open(driverName, databasePath)
	if err != nil {
		return nil, fmt.Errorf("credentials: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("credentials: pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, now: time.Now}
	if migrateErr := store.migrate(); migrateErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credentials: migration: %w", migrateErr)
	}
	return store, nil
}

// Close releases the database handle.
func (store *Store) Close() error {
	return store.db.Close()
}

func (store *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS credentials (
			key         TEXT PRIMARY KEY,
			path        TEXT NOT NULL,
			in_storage  INTEGER NOT NULL DEFAULT 0,
			imported_at TEXT NOT NULL
		);
	`
	_, err := store.db.Exec(schema)
	return err
}

// Import validates the request, optionally copies the file into storage and records it.
func (store *Store) Import(ctx context.Context, request ImportRequest) (Credential, error) {
	credentialType, known := LookupType(request.Key)
	if !known {
		return Credential{}, fmt.Errorf("%w: %q", ErrUnknownCredential, request.Key)
	}
	if request.SourcePath == "" {
		return Credential{}, ErrMissingSourcePath
	}
	sourcePath, absErr := filepath.Abs(request.SourcePath)
	if absErr != nil {
		return Credential{}, fmt.Errorf("credentials: resolve %s: %w", request.SourcePath, absErr)
	}
	if _, statErr := os.Stat(sourcePath); statErr != nil {
		return Credential{}, fmt.Errorf("credentials: source %s: %w", sourcePath, statErr)
	}

	existing, lookupErr := store.lookup(ctx, request.Key)
	if lookupErr != nil {
		return Credential{}, lookupErr
	}
	if existing != nil && !request.Replace {
		return Credential{}, fmt.Errorf("%w: %s", ErrCredentialExists, request.Key)
	}

	credential := Credential{
		Key:        request.Key,
		Name:       credentialType.Name,
		Path:       sourcePath,
		ImportedAt: store.now().UTC().Format(time.RFC3339),
	}
	if request.StorageDirectory != "" {
		storedPath, copyErr := copyIntoStorage(sourcePath, request.StorageDirectory, request.Key)
		if copyErr != nil {
			return Credential{}, copyErr
		}
		credential.Path = storedPath
		credential.InStorage = true
	}

	_, execErr := store.db.ExecContext(ctx,
		`INSERT INTO credentials (key, path, in_storage, imported_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET path = excluded.path, in_storage = excluded.in_storage, imported_at = excluded.imported_at`,
		credential.Key, credential.Path, credential.InStorage, credential.ImportedAt)
	if execErr != nil {
		return Credential{}, fmt.Errorf("credentials: record %s: %w", credential.Key, execErr)
	}
	return credential, nil
}

// List returns every imported credential ordered by key.
func (store *Store) List(ctx context.Context) ([]Credential, error) {
	rows, err := store.db.QueryContext(ctx, `SELECT key, path, in_storage, imported_at FROM credentials ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("credentials: list: %w", err)
	}
	defer rows.Close()

	credentials := []Credential{}
	for rows.Next() {
		var credential Credential
		if scanErr := rows.Scan(&credential.Key, &credential.Path, &credential.InStorage, &credential.ImportedAt); scanErr != nil {
			return nil, fmt.Errorf("credentials: scan: %w", scanErr)
		}
		if credentialType, known := LookupType(credential.Key); known {
			credential.Name = credentialType.Name
		}
		credentials = append(credentials, credential)
	}
	return credentials, rows.Err()
}

func (store *Store) lookup(ctx context.Context, key string) (*Credential, error) {
	var credential Credential
	row := store.db.QueryRowContext(ctx, `SELECT key, path, in_storage, imported_at FROM credentials WHERE key = ?`, key)
	err := row.Scan(&credential.Key, &credential.Path, &credential.InStorage, &credential.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: lookup %s: %w", key, err)
	}
	return &credential, nil
}

func copyIntoStorage(sourcePath string, storageDirectory string, key string) (string, error) {
	if err := os.MkdirAll(storageDirectory, dataDirPermissions); err != nil {
		return "", fmt.Errorf("credentials: create storage dir: %w", err)
	}
	destinationPath := filepath.Join(storageDirectory, key+filepath.Ext(sourcePath))

	source, openErr := os.Open(sourcePath)
	if openErr != nil {
		return "", fmt.Errorf("credentials: open %s: %w", sourcePath, openErr)
	}
	defer source.Close()

	destination, createErr := os.OpenFile(destinationPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, storedFilePermissions)
	if createErr != nil {
		return "", fmt.Errorf("credentials: create %s: %w", destinationPath, createErr)
	}
	if _, copyErr := io.Copy(destination, source); copyErr != nil {
		_ = destination.Close()
		return "", fmt.Errorf("credentials: copy to %s: %w", destinationPath, copyErr)
	}
	if closeErr := destination.Close(); closeErr != nil {
		return "", fmt.Errorf("credentials: close %s: %w", destinationPath, closeErr)
	}
	return destinationPath, nil
}
