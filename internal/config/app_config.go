package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/temirov/cmdsrv/internal/types"
	"github.com/temirov/cmdsrv/internal/utils"
)

const (
	defaultShutdownTimeout = 5 * time.Second
	defaultLogLevel        = "info"
	homeShorthand          = "~"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds the server and logging settings.
type ApplicationConfiguration struct {
	Server ServerConfiguration `mapstructure:"server"`
	Log    LogConfiguration    `mapstructure:"log"`
}

// ServerConfiguration defines where the server listens and keeps its state.
type ServerConfiguration struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Home            string        `mapstructure:"home"`
	ProgramName     string        `mapstructure:"program_name"`
}

// LogConfiguration controls the application logger.
type LogConfiguration struct {
	Level string `mapstructure:"level"`
}

// DefaultConfiguration returns the values used when no file sets them.
func DefaultConfiguration() ApplicationConfiguration {
	home := filepath.Join(homeShorthand, utils.GlobalConfigDirectoryName)
	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		home = filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
	}
	return ApplicationConfiguration{
		Server: ServerConfiguration{
			Address:         types.DefaultAddress,
			ShutdownTimeout: defaultShutdownTimeout,
			Home:            home,
			ProgramName:     types.DefaultProgramName,
		},
		Log: LogConfiguration{Level: defaultLogLevel},
	}
}

// LoadApplicationConfiguration loads configuration from global and local files over the defaults.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	merged := DefaultConfiguration()

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	expandedHome, expandErr := expandHome(merged.Server.Home)
	if expandErr != nil {
		return ApplicationConfiguration{}, expandErr
	}
	merged.Server.Home = expandedHome
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays the non-zero values of override onto the receiver.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Server = result.Server.merge(override.Server)
	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	return result
}

func (config ServerConfiguration) merge(override ServerConfiguration) ServerConfiguration {
	result := config
	if override.Address != "" {
		result.Address = override.Address
	}
	if override.ShutdownTimeout > 0 {
		result.ShutdownTimeout = override.ShutdownTimeout
	}
	if override.Home != "" {
		result.Home = override.Home
	}
	if override.ProgramName != "" {
		result.ProgramName = override.ProgramName
	}
	return result
}

// SettingsPath is the server settings file inside the home directory.
func (config ServerConfiguration) SettingsPath() string {
	return filepath.Join(config.Home, utils.ServerSettingsFileName)
}

// CredentialsDatabasePath is the credential database inside the home directory.
func (config ServerConfiguration) CredentialsDatabasePath() string {
	return filepath.Join(config.Home, utils.CredentialsDatabaseFileName)
}

// CredentialsStorageDirectory receives credential files copied to storage.
func (config ServerConfiguration) CredentialsStorageDirectory() string {
	return filepath.Join(config.Home, utils.CredentialsDirectoryName)
}

func expandHome(path string) (string, error) {
	if path != homeShorthand && !strings.HasPrefix(path, homeShorthand+string(filepath.Separator)) {
		return path, nil
	}
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for %s: %w", path, err)
	}
	return filepath.Join(homeDirectory, strings.TrimPrefix(path, homeShorthand)), nil
}
