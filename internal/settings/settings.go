// Package settings persists the server settings file (plugin registries) as YAML.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	settingsFilePermissions      = 0o600
	settingsDirectoryPermissions = 0o700
	temporaryFileSuffix          = ".tmp"

	errorReadSettingsFormat   = "read server settings %s: %w"
	errorDecodeSettingsFormat = "decode server settings %s: %w"
	errorEncodeSettingsFormat = "encode server settings: %w"
	errorWriteSettingsFormat  = "write server settings %s: %w"
	errorCreateDirFormat      = "create settings directory %s: %w"
)

// ErrEmptyRegistryURL is returned when a blank registry URL is added.
var ErrEmptyRegistryURL = errors.New("registry URL must not be empty")

// Registry is one plugin registry entry.
type Registry struct {
	URL string `yaml:"url" json:"url"`
}

// ServerSettings is the document stored in server-settings.yaml.
type ServerSettings struct {
	Registries []Registry `yaml:"registries" json:"registries"`
}

func (serverSettings ServerSettings) clone() ServerSettings {
	return ServerSettings{Registries: append([]Registry{}, serverSettings.Registries...)}
}

// Store guards the settings document and writes every change back to disk.
type Store struct {
	path     string
	mutex    sync.RWMutex
	settings ServerSettings
}

// Open loads the settings at path. A missing file is created with an empty registry list.
func Open(path string) (*Store, error) {
	store := &Store{path: path}
	if err := store.Reload(); err != nil {
		return nil, err
	}
	return store, nil
}

// Path reports the settings file location.
func (store *Store) Path() string {
	return store.path
}

// Reload re-reads the settings file, creating it when it does not exist.
func (store *Store) Reload() error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	content, readErr := os.ReadFile(store.path)
	if errors.Is(readErr, os.ErrNotExist) {
		store.settings = ServerSettings{Registries: []Registry{}}
		return store.writeLocked()
	}
	if readErr != nil {
		return fmt.Errorf(errorReadSettingsFormat, store.path, readErr)
	}
	var decoded ServerSettings
	if decodeErr := yaml.Unmarshal(content, &decoded); decodeErr != nil {
		return fmt.Errorf(errorDecodeSettingsFormat, store.path, decodeErr)
	}
	if decoded.Registries == nil {
		decoded.Registries = []Registry{}
	}
	store.settings = decoded
	return nil
}

// Settings returns a copy of the current settings.
func (store *Store) Settings() ServerSettings {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.settings.clone()
}

// RegistryURLs lists the configured registry URLs in insertion order.
func (store *Store) RegistryURLs() []string {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	urls := make([]string, 0, len(store.settings.Registries))
	for _, registry := range store.settings.Registries {
		urls = append(urls, registry.URL)
	}
	return urls
}

// AddRegistries appends the URLs that are not yet present and persists the result.
// It returns the number of registries added and the resulting registry list.
func (store *Store) AddRegistries(urls []string) (int, []Registry, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	updated := store.settings.clone()
	added := 0
	for _, candidate := range urls {
		url := strings.TrimSpace(candidate)
		if url == "" {
			return 0, nil, ErrEmptyRegistryURL
		}
		if containsRegistry(updated.Registries, url) {
			continue
		}
		updated.Registries = append(updated.Registries, Registry{URL: url})
		added++
	}
	if added == 0 {
		return 0, append([]Registry{}, store.settings.Registries...), nil
	}

	previous := store.settings
	store.settings = updated
	if writeErr := store.writeLocked(); writeErr != nil {
		store.settings = previous
		return 0, nil, writeErr
	}
	return added, append([]Registry{}, updated.Registries...), nil
}

func containsRegistry(registries []Registry, url string) bool {
	for _, registry := range registries {
		if registry.URL == url {
			return true
		}
	}
	return false
}

func (store *Store) writeLocked() error {
	directory := filepath.Dir(store.path)
	if err := os.MkdirAll(directory, settingsDirectoryPermissions); err != nil {
		return fmt.Errorf(errorCreateDirFormat, directory, err)
	}
	encoded, encodeErr := yaml.Marshal(store.settings)
	if encodeErr != nil {
		return fmt.Errorf(errorEncodeSettingsFormat, encodeErr)
	}
	temporaryPath := store.path + temporaryFileSuffix
	if err := os.WriteFile(temporaryPath, encoded, settingsFilePermissions); err != nil {
		return fmt.Errorf(errorWriteSettingsFormat, store.path, err)
	}
	if err := os.Rename(temporaryPath, store.path); err != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(errorWriteSettingsFormat, store.path, err)
	}
	return nil
}
