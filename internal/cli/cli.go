// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/temirov/cmdsrv/internal/app"
	"github.com/temirov/cmdsrv/internal/client"
	"github.com/temirov/cmdsrv/internal/config"
	"github.com/temirov/cmdsrv/internal/services/clipboard"
	"github.com/temirov/cmdsrv/internal/types"
	"github.com/temirov/cmdsrv/internal/utils"
)

const (
	addressFlagName       = "address"
	configFlagName        = "config"
	logLevelFlagName      = "log-level"
	formatFlagName        = "format"
	versionFlagName       = "version"
	globalFlagName        = "global"
	forceFlagName         = "force"
	versionTemplate       = "cmdsrv version: %s\n"
	listeningTemplate     = "cmdsrv listening on %s\n"
	configWrittenTemplate = "configuration written to %s\n"
	optionsMarker         = "--"

	rootUse              = "cmdsrv"
	rootShortDescription = "cmdsrv command server"
	rootLongDescription  = `cmdsrv runs a local HTTP server whose commands are addressed by path.
Use serve to start it, next-commands to complete a partial command, and call to invoke any endpoint.
Use --address to reach a server on another port and --version to print the application version.`

	serveUse              = "serve"
	serveShortDescription = "start the command server"
	serveLongDescription  = `Start the HTTP command server and block until interrupted or stopped.
The bound address is printed once the listener is ready.`

	nextCommandsUse              = "next-commands [words...]"
	nextCommandsAlias            = "nc"
	nextCommandsShortDescription = "list the words that may follow a partial command (" + nextCommandsAlias + ")"
	nextCommandsLongDescription  = `Ask the server which words may follow the given partial command.
Words after -- are treated as options of the matched command.`
	nextCommandsUsageExample = `  # Top level commands
  cmdsrv next-commands

  # Credential types known to the server
  cmdsrv next-commands credentials

  # Options of the import command
  cmdsrv next-commands credentials GITHUB_SSH import -- rep`

	apiUse              = "api"
	apiShortDescription = "list the registered endpoints"

	callUse              = "call METHOD PATH [name=value...]"
	callShortDescription = "invoke an endpoint"
	callLongDescription  = `Send a request to any registered endpoint.
Fields are given as name=value pairs and may repeat.`
	callUsageExample = `  # Import a credential
  cmdsrv call PUT /credentials/GITHUB_SSH/import path=$HOME/.ssh/id_ed25519 replace=yes`

	reloadUse              = "reload"
	reloadShortDescription = "rebuild the server's command set"
	stopUse                = "stop"
	stopShortDescription   = "stop the running server"

	configUse                  = "config"
	configShortDescription     = "manage configuration files"
	configInitUse              = "init"
	configInitShortDescription = "write the default configuration"

	addressFlagDescription  = "server address, overriding configuration"
	configFlagDescription   = "configuration file to load instead of ./.cmdsrv.yaml"
	logLevelFlagDescription = "log level (debug, info, warn, error)"
	formatFlagDescription   = "output format (json or text)"
	versionFlagDescription  = "display application version"
	globalFlagDescription   = "write ~/.cmdsrv/config.yaml instead of ./.cmdsrv.yaml"
	forceFlagDescription    = "overwrite an existing configuration file"

	invalidFormatMessage  = "Invalid format value '%s'"
	invalidFieldMessage   = "invalid field '%s', expected name=value"
	workingDirectoryError = "unable to determine working directory: %w"
)

type dependencies struct {
	copier clipboard.Copier
}

type globalOptions struct {
	address    string
	configPath string
	logLevel   string
}

// Execute runs the cmdsrv application.
func Execute() error {
	rootCommand := createRootCommand(dependencies{copier: clipboard.NewService()})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(deps dependencies) *cobra.Command {
	var showVersion bool
	options := &globalOptions{}

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				_, err := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return err
			}
			return command.Help()
		},
	}
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&options.address, addressFlagName, "", addressFlagDescription)
	rootCommand.PersistentFlags().StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	rootCommand.PersistentFlags().StringVar(&options.logLevel, logLevelFlagName, "", logLevelFlagDescription)

	rootCommand.AddCommand(
		createServeCommand(options),
		createNextCommandsCommand(options, deps),
		createAPICommand(options),
		createCallCommand(options),
		createReloadCommand(options),
		createStopCommand(options),
		createConfigCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// loadConfiguration merges configuration files with the persistent flag overrides.
func (options *globalOptions) loadConfiguration() (config.ApplicationConfiguration, error) {
	workingDirectory, err := os.Getwd()
	if err != nil {
		return config.ApplicationConfiguration{}, fmt.Errorf(workingDirectoryError, err)
	}
	configuration, err := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if err != nil {
		return config.ApplicationConfiguration{}, err
	}
	if address := strings.TrimSpace(options.address); address != "" {
		configuration.Server.Address = address
	}
	if level := strings.TrimSpace(options.logLevel); level != "" {
		configuration.Log.Level = level
	}
	return configuration, nil
}

func (options *globalOptions) newClient() (*client.Client, error) {
	configuration, err := options.loadConfiguration()
	if err != nil {
		return nil, err
	}
	return client.New(configuration.Server.Address), nil
}

// createServeCommand returns the serve subcommand.
func createServeCommand(options *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Long:  serveLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			configuration, err := options.loadConfiguration()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, configuration, command.OutOrStdout())
		},
	}
}

// runServer serves commands until ctx ends or the stop command arrives.
func runServer(ctx context.Context, configuration config.ApplicationConfiguration, output io.Writer) error {
	logger, err := utils.NewApplicationLogger(configuration.Log.Level)
	if err != nil {
		return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, err)
	}
	defer func() { _ = logger.Sync() }()

	application, err := app.New(app.Options{Server: configuration.Server, Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	return application.Serve(ctx, func(address string) {
		_, _ = fmt.Fprintf(output, listeningTemplate, address)
	})
}

// createNextCommandsCommand returns the next-commands subcommand.
func createNextCommandsCommand(options *globalOptions, deps dependencies) *cobra.Command {
	var outputFormat string = types.FormatText
	var copyEnabled bool

	nextCommandsCommand := &cobra.Command{
		Use:     nextCommandsUse,
		Aliases: []string{nextCommandsAlias},
		Short:   nextCommandsShortDescription,
		Long:    nextCommandsLongDescription,
		Example: nextCommandsUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			format, err := normalizeFormat(outputFormat)
			if err != nil {
				return err
			}
			commandClient, err := options.newClient()
			if err != nil {
				return err
			}
			partial := joinPartialCommand(arguments, command.ArgsLenAtDash())
			payload, err := commandClient.NextCommands(command.Context(), partial, format)
			if err != nil {
				return err
			}
			rendered := string(payload)
			if err := writeOutput(command.OutOrStdout(), rendered); err != nil {
				return err
			}
			if copyEnabled {
				return copyOutput(deps.copier, rendered)
			}
			return nil
		},
	}
	nextCommandsCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatText, formatFlagDescription)
	registerCopyFlag(nextCommandsCommand.Flags(), &copyEnabled)
	return nextCommandsCommand
}

// joinPartialCommand restores the options marker cobra strips from the arguments.
func joinPartialCommand(arguments []string, dashIndex int) string {
	if dashIndex < 0 || dashIndex > len(arguments) {
		return strings.Join(arguments, " ")
	}
	words := make([]string, 0, len(arguments)+1)
	words = append(words, arguments[:dashIndex]...)
	words = append(words, optionsMarker)
	words = append(words, arguments[dashIndex:]...)
	partial := strings.Join(words, " ")
	if dashIndex == len(arguments) {
		partial += " "
	}
	return partial
}

// createAPICommand returns the api subcommand.
func createAPICommand(options *globalOptions) *cobra.Command {
	var outputFormat string = types.FormatText
	apiCommand := &cobra.Command{
		Use:   apiUse,
		Short: apiShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, options, outputFormat, func(ctx context.Context, commandClient *client.Client, format string) ([]byte, error) {
				return commandClient.API(ctx, format)
			})
		},
	}
	apiCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatText, formatFlagDescription)
	return apiCommand
}

// createCallCommand returns the call subcommand.
func createCallCommand(options *globalOptions) *cobra.Command {
	var outputFormat string = types.FormatJSON
	callCommand := &cobra.Command{
		Use:     callUse,
		Short:   callShortDescription,
		Long:    callLongDescription,
		Example: callUsageExample,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			fields, err := parseFields(arguments[2:])
			if err != nil {
				return err
			}
			return runClientCommand(command, options, outputFormat, func(ctx context.Context, commandClient *client.Client, format string) ([]byte, error) {
				return commandClient.Call(ctx, arguments[0], arguments[1], fields, format)
			})
		},
	}
	callCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatJSON, formatFlagDescription)
	return callCommand
}

// parseFields turns name=value arguments into request fields.
func parseFields(arguments []string) (url.Values, error) {
	fields := url.Values{}
	for _, argument := range arguments {
		name, value, found := strings.Cut(argument, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf(invalidFieldMessage, argument)
		}
		fields.Add(name, value)
	}
	return fields, nil
}

// createReloadCommand returns the reload subcommand.
func createReloadCommand(options *globalOptions) *cobra.Command {
	var outputFormat string = types.FormatText
	reloadCommand := &cobra.Command{
		Use:   reloadUse,
		Short: reloadShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, options, outputFormat, func(ctx context.Context, commandClient *client.Client, format string) ([]byte, error) {
				return commandClient.Reload(ctx, format)
			})
		},
	}
	reloadCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatText, formatFlagDescription)
	return reloadCommand
}

// createStopCommand returns the stop subcommand.
func createStopCommand(options *globalOptions) *cobra.Command {
	var outputFormat string = types.FormatText
	stopCommand := &cobra.Command{
		Use:   stopUse,
		Short: stopShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runClientCommand(command, options, outputFormat, func(ctx context.Context, commandClient *client.Client, format string) ([]byte, error) {
				return commandClient.Stop(ctx, format)
			})
		},
	}
	stopCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatText, formatFlagDescription)
	return stopCommand
}

type clientCall func(ctx context.Context, commandClient *client.Client, format string) ([]byte, error)

func runClientCommand(command *cobra.Command, options *globalOptions, outputFormat string, call clientCall) error {
	format, err := normalizeFormat(outputFormat)
	if err != nil {
		return err
	}
	commandClient, err := options.newClient()
	if err != nil {
		return err
	}
	payload, err := call(command.Context(), commandClient, format)
	if err != nil {
		return err
	}
	return writeOutput(command.OutOrStdout(), string(payload))
}

// createConfigCommand returns the config command group.
func createConfigCommand() *cobra.Command {
	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
	}
	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   configInitUse,
		Short: configInitShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			destination, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(command.OutOrStdout(), configWrittenTemplate, destination)
			return err
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	configCommand.AddCommand(initCommand)
	return configCommand
}

// normalizeFormat validates the requested output format.
func normalizeFormat(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case types.FormatJSON, types.FormatText:
		return normalized, nil
	default:
		return "", fmt.Errorf(invalidFormatMessage, format)
	}
}

func writeOutput(output io.Writer, rendered string) error {
	if rendered == "" {
		return nil
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, err := io.WriteString(output, rendered)
	return err
}
