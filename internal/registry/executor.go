package registry

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/cmdsrv/internal/model"
)

// Request is what a command executor receives after routing and parameter processing.
type Request struct {
	Vars     Vars
	Format   string
	Snapshot *Snapshot
	Model    model.Reader
}

// Response carries a structured payload for JSON and a message for text rendering.
type Response struct {
	Data    any
	Message string
}

// Executor runs one registered command.
type Executor interface {
	Execute(ctx context.Context, request Request) (Response, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, request Request) (Response, error)

// Execute implements Executor.
func (executorFunc ExecutorFunc) Execute(ctx context.Context, request Request) (Response, error) {
	return executorFunc(ctx, request)
}

// Environment is handed to an ExecutorFactory at registration.
type Environment struct {
	Logger     *zap.Logger
	Endpoint   *EndpointDefinition
	Parameters []ParameterSpec
}

// ExecutorFactory produces the executor for a command once its contract is frozen.
type ExecutorFactory func(environment Environment) Executor
