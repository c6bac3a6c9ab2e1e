package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/temirov/cmdsrv/internal/completion"
	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/types"
)

const (
	serverSource = "cmdsrv/server"

	parameterCommandDescription = "The command path typed so far, CLI style (space separated) or URL style (slash separated), optionally followed by '--' and option text."
	reloadedMessageFormat       = "Reloaded %d commands."
	stoppingMessage             = "Server stopping."
)

// ServerCommands covers completion, introspection, reload and stop.
func ServerCommands(dependencies Dependencies) []registry.Command {
	resolver := dependencies.Completion
	if resolver == nil {
		resolver = completion.New()
	}
	return []registry.Command{
		{
			Method:     types.MethodGet,
			Path:       []string{"server", "next-commands?"},
			Parameters: []registry.Parameter{{Name: types.ParameterCommand, Description: parameterCommandDescription}},
			Factory:    executorFactory(nextCommands(resolver)),
			Source:     serverSource,
		},
		{
			Method:  types.MethodGet,
			Path:    []string{"server", "api"},
			Factory: executorFactory(describeAPI),
			Source:  serverSource,
		},
		{
			Method:  types.MethodPut,
			Path:    []string{"server", "reload"},
			Factory: executorFactory(reload(dependencies.Controller)),
			Source:  serverSource,
		},
		{
			Method:  types.MethodUnbind,
			Path:    []string{"server", "stop?"},
			Factory: executorFactory(stop(dependencies.Controller)),
			Source:  serverSource,
		},
	}
}

func nextCommands(resolver *completion.Resolver) registry.ExecutorFunc {
	return func(ctx context.Context, request registry.Request) (registry.Response, error) {
		candidates, err := resolver.NextTokens(ctx, request.Snapshot, request.Vars.String(types.ParameterCommand), request.Model)
		if err != nil {
			return registry.Response{}, err
		}
		text, renderErr := completion.Render(candidates, types.FormatText)
		if renderErr != nil {
			return registry.Response{}, renderErr
		}
		return registry.Response{Data: candidates, Message: string(text)}, nil
	}
}

func describeAPI(_ context.Context, request registry.Request) (registry.Response, error) {
	endpoints := request.Snapshot.Endpoints()
	lines := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		lines = append(lines, endpoint.Method()+" "+endpoint.Path())
	}
	return registry.Response{Data: endpoints, Message: strings.Join(lines, "\n")}, nil
}

type reloadResult struct {
	Commands int `json:"commands"`
}

func reload(controller Controller) registry.ExecutorFunc {
	return func(ctx context.Context, _ registry.Request) (registry.Response, error) {
		if controller == nil {
			return registry.Response{}, fmt.Errorf("reload is not available")
		}
		snapshot, err := controller.Reload(ctx)
		if err != nil {
			return registry.Response{}, fmt.Errorf("reload commands: %w", err)
		}
		count := len(snapshot.Endpoints())
		return registry.Response{Data: reloadResult{Commands: count}, Message: fmt.Sprintf(reloadedMessageFormat, count)}, nil
	}
}

func stop(controller Controller) registry.ExecutorFunc {
	return func(context.Context, registry.Request) (registry.Response, error) {
		if controller == nil {
			return registry.Response{}, fmt.Errorf("stop is not available")
		}
		controller.Stop()
		return registry.Response{Message: stoppingMessage}, nil
	}
}
