package utils

const (
	// GlobalConfigDirectoryName is the directory under the user's home holding global state.
	GlobalConfigDirectoryName = ".cmdsrv"
	// ConfigFileName is the configuration file name, both global and local.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName is looked up in the working directory.
	LocalConfigFileName = ".cmdsrv.yaml"
	// ServerSettingsFileName holds the persisted server settings inside the home directory.
	ServerSettingsFileName = "server-settings.yaml"
	// CredentialsDatabaseFileName is the sqlite database holding imported credential records.
	CredentialsDatabaseFileName = "credentials.db"
	// CredentialsDirectoryName is where credentials copied to storage are kept.
	CredentialsDirectoryName = "credentials"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal application errors.
	ApplicationExecutionFailedMessage = "cmdsrv failed"

	invalidLogLevelFormat = "invalid log level %q: %w"
)
