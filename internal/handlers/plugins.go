package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/settings"
	"github.com/temirov/cmdsrv/internal/types"
)

const (
	pluginsSource = "cmdsrv/plugins"

	parameterRegistryURLs            = "registryURLs"
	parameterRegistryURLsDescription = "Comma separated plugin registry URLs to add."
	addedRegistriesMessageFormat     = "Added %d of %d registries."
)

// PluginCommands manage the plugin registries kept in the server settings.
func PluginCommands(dependencies Dependencies) []registry.Command {
	return []registry.Command{
		{
			Method: types.MethodPut,
			Path:   []string{"server", "plugins", "registries", "add"},
			Parameters: []registry.Parameter{{
				Name:        parameterRegistryURLs,
				Required:    true,
				Multivalue:  true,
				Description: parameterRegistryURLsDescription,
			}},
			Factory: executorFactory(addRegistries(dependencies.Settings)),
			Source:  pluginsSource,
		},
		{
			Method:  types.MethodGet,
			Path:    []string{"server", "plugins", "registries", "list"},
			Factory: executorFactory(listRegistries),
			Source:  pluginsSource,
		},
	}
}

type addRegistriesResult struct {
	Added      int                 `json:"added"`
	Registries []settings.Registry `json:"registries"`
}

func addRegistries(store *settings.Store) registry.ExecutorFunc {
	return func(_ context.Context, request registry.Request) (registry.Response, error) {
		if store == nil {
			return registry.Response{}, fmt.Errorf("server settings are not available")
		}
		requested := request.Vars.Strings(parameterRegistryURLs)
		added, registries, err := store.AddRegistries(requested)
		if errors.Is(err, settings.ErrEmptyRegistryURL) {
			return registry.Response{}, registry.NewRequestError("%v", err)
		}
		if err != nil {
			return registry.Response{}, err
		}
		return registry.Response{
			Data:    addRegistriesResult{Added: added, Registries: registries},
			Message: fmt.Sprintf(addedRegistriesMessageFormat, added, len(requested)),
		}, nil
	}
}

func listRegistries(_ context.Context, request registry.Request) (registry.Response, error) {
	urls := []string{}
	if request.Model != nil {
		urls = request.Model.RegistryURLs()
	}
	return registry.Response{Data: urls, Message: strings.Join(urls, "\n")}, nil
}
