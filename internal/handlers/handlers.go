// Package handlers provides the command modules served by cmdsrv and the path resolvers
// their variable segments use.
package handlers

import (
	"context"

	"github.com/temirov/cmdsrv/internal/completion"
	"github.com/temirov/cmdsrv/internal/credentials"
	"github.com/temirov/cmdsrv/internal/model"
	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/settings"
)

const (
	// ResolverCredential is the type key of credential path segments.
	ResolverCredential = "credential"

	credentialPattern = `[A-Z][A-Z0-9_]*`
)

// Controller is the part of the application the server commands drive.
type Controller interface {
	Reload(ctx context.Context) (*registry.Snapshot, error)
	Stop()
}

// Dependencies are the collaborators command executors close over.
type Dependencies struct {
	Settings           *settings.Store
	Credentials        *credentials.Store
	CredentialsStorage string
	Completion         *completion.Resolver
	Controller         Controller
}

// Modules returns every command module in registration order.
func Modules(dependencies Dependencies) [][]registry.Command {
	return [][]registry.Command{
		ServerCommands(dependencies),
		PluginCommands(dependencies),
		CredentialCommands(dependencies),
	}
}

// Resolvers declares the variable segment types used by the modules.
func Resolvers() map[string]registry.PathResolver {
	return map[string]registry.PathResolver{
		ResolverCredential: {
			Pattern: credentialPattern,
			Options: func(_ context.Context, _ registry.Bindings, reader model.Reader) ([]string, error) {
				if reader == nil {
					return credentials.KnownKeys(), nil
				}
				return reader.CredentialTypes(), nil
			},
		},
	}
}

func executorFactory(execute registry.ExecutorFunc) registry.ExecutorFactory {
	return func(registry.Environment) registry.Executor {
		return execute
	}
}
