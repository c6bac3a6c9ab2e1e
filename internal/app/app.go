// Package app wires the stores, command modules and HTTP server into a running application.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/temirov/cmdsrv/internal/completion"
	"github.com/temirov/cmdsrv/internal/config"
	"github.com/temirov/cmdsrv/internal/credentials"
	"github.com/temirov/cmdsrv/internal/handlers"
	"github.com/temirov/cmdsrv/internal/model"
	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/services/server"
	"github.com/temirov/cmdsrv/internal/settings"
)

const loggerName = "app"

// Options configures New.
type Options struct {
	Server config.ServerConfiguration
	Logger *zap.Logger
	// Modules supplies additional command modules registered after the built-in ones.
	Modules func() [][]registry.Command
}

// Application owns the current command snapshot and the stores behind it.
type Application struct {
	configuration config.ServerConfiguration
	logger        *zap.Logger
	settings      *settings.Store
	credentials   *credentials.Store
	model         *model.Model
	resolvers     *registry.Resolvers
	completion    *completion.Resolver
	extraModules  func() [][]registry.Command

	current     atomic.Pointer[registry.Snapshot]
	reloadMutex sync.Mutex

	stopMutex sync.Mutex
	stopServe context.CancelFunc
	stopped   bool
}

// New opens the stores under the configured home and builds the first snapshot.
func New(options Options) (*Application, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	settingsStore, err := settings.Open(options.Server.SettingsPath())
	if err != nil {
		return nil, err
	}
	credentialStore, err := credentials.Open(options.Server.CredentialsDatabasePath())
	if err != nil {
		return nil, err
	}
	resolvers, err := registry.NewResolvers(handlers.Resolvers())
	if err != nil {
		_ = credentialStore.Close()
		return nil, err
	}

	application := &Application{
		configuration: options.Server,
		logger:        logger.Named(loggerName),
		settings:      settingsStore,
		credentials:   credentialStore,
		model:         model.New(settingsStore),
		resolvers:     resolvers,
		completion:    completion.New(completion.WithLogger(logger), completion.WithProgramName(options.Server.ProgramName)),
		extraModules:  options.Modules,
	}

	snapshot, err := application.build()
	if err != nil {
		_ = credentialStore.Close()
		return nil, err
	}
	application.current.Store(snapshot)
	return application, nil
}

func (application *Application) build() (*registry.Snapshot, error) {
	modules := handlers.Modules(handlers.Dependencies{
		Settings:           application.settings,
		Credentials:        application.credentials,
		CredentialsStorage: application.configuration.CredentialsStorageDirectory(),
		Completion:         application.completion,
		Controller:         application,
	})
	if application.extraModules != nil {
		modules = append(modules, application.extraModules()...)
	}
	return registry.Build(application.resolvers, application.logger, modules...)
}

// Snapshot returns the snapshot currently served.
func (application *Application) Snapshot() *registry.Snapshot {
	return application.current.Load()
}

// Model returns the read-only view handed to fetchers and executors.
func (application *Application) Model() model.Reader {
	return application.model
}

// Reload re-reads the server settings, rebuilds every module and swaps the new snapshot in.
// The current snapshot stays in place when anything fails.
func (application *Application) Reload(ctx context.Context) (*registry.Snapshot, error) {
	application.reloadMutex.Lock()
	defer application.reloadMutex.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := application.settings.Reload(); err != nil {
		return nil, fmt.Errorf("reload server settings: %w", err)
	}
	snapshot, err := application.build()
	if err != nil {
		return nil, err
	}
	application.current.Store(snapshot)
	application.logger.Info("reloaded", zap.Int("commands", len(snapshot.Endpoints())))
	return snapshot, nil
}

// Serve runs the HTTP server until ctx is canceled or Stop is called.
func (application *Application) Serve(ctx context.Context, notify func(string)) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	application.stopMutex.Lock()
	if application.stopped {
		application.stopMutex.Unlock()
		return nil
	}
	application.stopServe = cancel
	application.stopMutex.Unlock()

	commandServer := server.NewServer(server.Config{
		Address:         application.configuration.Address,
		ShutdownTimeout: application.configuration.ShutdownTimeout,
		Snapshots:       application,
		Model:           application.model,
		Logger:          application.logger,
	})
	return commandServer.Run(serveCtx, notify)
}

// Stop ends a running Serve call. Calling it before Serve makes Serve return at once.
func (application *Application) Stop() {
	application.stopMutex.Lock()
	defer application.stopMutex.Unlock()
	application.stopped = true
	if application.stopServe != nil {
		application.stopServe()
	}
	application.logger.Info("stop requested")
}

// Close releases the credential database.
func (application *Application) Close() error {
	return application.credentials.Close()
}

var (
	_ handlers.Controller     = (*Application)(nil)
	_ server.SnapshotProvider = (*Application)(nil)
)
