package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/temirov/cmdsrv/internal/credentials"
	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/services/server"
	"github.com/temirov/cmdsrv/internal/types"
)

const (
	credentialsSource = "cmdsrv/credentials"

	parameterPath          = "path"
	parameterReplace       = "replace"
	parameterCopyToStorage = "copyToStorage"

	importedMessageFormat = "Imported '%s' credentials."
)

// CredentialCommands import and list credential files.
func CredentialCommands(dependencies Dependencies) []registry.Command {
	return []registry.Command{
		{
			Method: types.MethodPut,
			Path:   []string{"/credentials/:credential/import"},
			Parameters: []registry.Parameter{
				{Name: parameterPath, Required: true, Description: "Local path to the credential file."},
				{Name: parameterReplace, Boolean: true, Description: "Replace a credential of the same type instead of failing."},
				{Name: parameterCopyToStorage, Boolean: true, Description: "Copy the file into the server's credential storage instead of referencing it in place."},
			},
			Factory: executorFactory(importCredential(dependencies.Credentials, dependencies.CredentialsStorage)),
			Source:  credentialsSource,
		},
		{
			Method:  types.MethodGet,
			Path:    []string{"/credentials/:credential/detail"},
			Factory: executorFactory(describeCredential(dependencies.Credentials)),
			Source:  credentialsSource,
		},
		{
			Method:  types.MethodGet,
			Path:    []string{"/credentials/list"},
			Factory: executorFactory(listCredentials(dependencies.Credentials)),
			Source:  credentialsSource,
		},
	}
}

func importCredential(store *credentials.Store, storageDirectory string) registry.ExecutorFunc {
	return func(ctx context.Context, request registry.Request) (registry.Response, error) {
		if store == nil {
			return registry.Response{}, fmt.Errorf("credential store is not available")
		}
		key := request.Vars.String(ResolverCredential)
		importRequest := credentials.ImportRequest{
			Key:        key,
			SourcePath: request.Vars.String(parameterPath),
			Replace:    request.Vars.Bool(parameterReplace),
		}
		if request.Vars.Bool(parameterCopyToStorage) {
			importRequest.StorageDirectory = storageDirectory
		}
		imported, err := store.Import(ctx, importRequest)
		if err != nil {
			return registry.Response{}, credentialError(err)
		}
		return registry.Response{Data: imported, Message: fmt.Sprintf(importedMessageFormat, key)}, nil
	}
}

type credentialDetail struct {
	credentials.Type
	Imported *credentials.Credential `json:"imported,omitempty"`
}

func describeCredential(store *credentials.Store) registry.ExecutorFunc {
	return func(ctx context.Context, request registry.Request) (registry.Response, error) {
		key := request.Vars.String(ResolverCredential)
		credentialType, known := credentials.LookupType(key)
		if !known {
			return registry.Response{}, server.NewCommandExecutionError(http.StatusNotFound, fmt.Errorf("%w: %s", credentials.ErrUnknownCredential, key))
		}
		detail := credentialDetail{Type: credentialType}
		lines := []string{credentialType.Key + ": " + credentialType.Name, credentialType.Description}
		if store != nil {
			listed, err := store.List(ctx)
			if err != nil {
				return registry.Response{}, err
			}
			for index := range listed {
				if listed[index].Key == key {
					detail.Imported = &listed[index]
					lines = append(lines, "Imported from "+listed[index].Path)
				}
			}
		}
		return registry.Response{Data: detail, Message: strings.Join(lines, "\n")}, nil
	}
}

func listCredentials(store *credentials.Store) registry.ExecutorFunc {
	return func(ctx context.Context, _ registry.Request) (registry.Response, error) {
		if store == nil {
			return registry.Response{}, fmt.Errorf("credential store is not available")
		}
		listed, err := store.List(ctx)
		if err != nil {
			return registry.Response{}, err
		}
		lines := make([]string, 0, len(listed))
		for _, credential := range listed {
			lines = append(lines, credential.Key+"\t"+credential.Path)
		}
		return registry.Response{Data: listed, Message: strings.Join(lines, "\n")}, nil
	}
}

func credentialError(err error) error {
	switch {
	case errors.Is(err, credentials.ErrCredentialExists):
		return server.NewCommandExecutionError(http.StatusConflict, err)
	case errors.Is(err, credentials.ErrUnknownCredential),
		errors.Is(err, credentials.ErrMissingSourcePath),
		errors.Is(err, os.ErrNotExist):
		return registry.NewRequestError("%v", err)
	default:
		return err
	}
}
