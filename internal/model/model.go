// Package model exposes the read-only view of server state consulted by completion fetchers
// and command executors.
package model

import (
	"github.com/temirov/cmdsrv/internal/credentials"
)

// Reader answers the questions options-fetchers ask about server state.
type Reader interface {
	// CredentialTypes lists the credential keys the server can import.
	CredentialTypes() []string
	// RegistryURLs lists the configured plugin registries.
	RegistryURLs() []string
}

type registrySource interface {
	RegistryURLs() []string
}

// Model is the Reader backed by the settings store.
type Model struct {
	registries registrySource
}

// New binds a Model to the settings store. A nil store yields no registries.
func New(registries registrySource) *Model {
	return &Model{registries: registries}
}

// CredentialTypes implements Reader.
func (model *Model) CredentialTypes() []string {
	return credentials.KnownKeys()
}

// RegistryURLs implements Reader.
func (model *Model) RegistryURLs() []string {
	if model.registries == nil {
		return []string{}
	}
	return model.registries.RegistryURLs()
}

// Static is a fixed Reader.
type Static struct {
	Credentials []string
	Registries  []string
}

// CredentialTypes implements Reader.
func (static Static) CredentialTypes() []string {
	return append([]string{}, static.Credentials...)
}

// RegistryURLs implements Reader.
func (static Static) RegistryURLs() []string {
	return append([]string{}, static.Registries...)
}

var (
	_ Reader = (*Model)(nil)
	_ Reader = Static{}
)
