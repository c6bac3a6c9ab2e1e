package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/temirov/cmdsrv/internal/utils"
)

type configTestCase struct {
	name            string
	globalContent   string
	localContent    string
	explicitPath    string
	explicitContent string
	expectAddress   string
	expectTimeout   time.Duration
	expectHome      string
	expectProgram   string
	expectLevel     string
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []configTestCase{
		{
			name:          "defaults_without_files",
			expectAddress: "127.0.0.1:32600",
			expectTimeout: 5 * time.Second,
			expectHome:    "~HOME/.cmdsrv",
			expectProgram: "cmdsrv",
			expectLevel:   "info",
		},
		{
			name:          "local_overrides_global",
			globalContent: "server:\n  address: 127.0.0.1:4000\n  shutdown_timeout: 2s\nlog:\n  level: debug\n",
			localContent:  "server:\n  address: 127.0.0.1:5000\n  program_name: liq\n",
			expectAddress: "127.0.0.1:5000",
			expectTimeout: 2 * time.Second,
			expectHome:    "~HOME/.cmdsrv",
			expectProgram: "liq",
			expectLevel:   "debug",
		},
		{
			name:            "explicit_path_replaces_local",
			localContent:    "server:\n  address: 127.0.0.1:5000\n",
			explicitPath:    "custom.yaml",
			explicitContent: "server:\n  home: ~/state\n",
			expectAddress:   "127.0.0.1:32600",
			expectTimeout:   5 * time.Second,
			expectHome:      "~HOME/state",
			expectProgram:   "cmdsrv",
			expectLevel:     "info",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDir := t.TempDir()
			workingDir := t.TempDir()
			configDir := filepath.Join(homeDir, utils.GlobalConfigDirectoryName)
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				t.Fatalf("create config dir: %v", err)
			}
			if testCase.globalContent != "" {
				globalPath := filepath.Join(configDir, utils.ConfigFileName)
				if err := os.WriteFile(globalPath, []byte(testCase.globalContent), 0o600); err != nil {
					t.Fatalf("write global config: %v", err)
				}
			}
			if testCase.localContent != "" {
				localPath := filepath.Join(workingDir, utils.LocalConfigFileName)
				if err := os.WriteFile(localPath, []byte(testCase.localContent), 0o600); err != nil {
					t.Fatalf("write local config: %v", err)
				}
			}
			if testCase.explicitPath != "" {
				target := filepath.Join(workingDir, testCase.explicitPath)
				if err := os.WriteFile(target, []byte(testCase.explicitContent), 0o600); err != nil {
					t.Fatalf("write explicit config: %v", err)
				}
			}

			t.Setenv("HOME", homeDir)
			t.Setenv("USERPROFILE", homeDir)

			loadedConfig, err := LoadApplicationConfiguration(LoadOptions{
				WorkingDirectory: workingDir,
				ExplicitFilePath: testCase.explicitPath,
			})
			if err != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", err)
			}

			if loadedConfig.Server.Address != testCase.expectAddress {
				t.Fatalf("expected address %s, got %s", testCase.expectAddress, loadedConfig.Server.Address)
			}
			if loadedConfig.Server.ShutdownTimeout != testCase.expectTimeout {
				t.Fatalf("expected timeout %s, got %s", testCase.expectTimeout, loadedConfig.Server.ShutdownTimeout)
			}
			expectedHome := filepath.Join(homeDir, filepath.FromSlash(testCase.expectHome[len("~HOME/"):]))
			if loadedConfig.Server.Home != expectedHome {
				t.Fatalf("expected home %s, got %s", expectedHome, loadedConfig.Server.Home)
			}
			if loadedConfig.Server.ProgramName != testCase.expectProgram {
				t.Fatalf("expected program name %s, got %s", testCase.expectProgram, loadedConfig.Server.ProgramName)
			}
			if loadedConfig.Log.Level != testCase.expectLevel {
				t.Fatalf("expected log level %s, got %s", testCase.expectLevel, loadedConfig.Log.Level)
			}
		})
	}
}

func TestLoadApplicationConfigurationRejectsDirectory(t *testing.T) {
	homeDir := t.TempDir()
	workingDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	if err := os.MkdirAll(filepath.Join(workingDir, utils.LocalConfigFileName), 0o755); err != nil {
		t.Fatalf("create directory: %v", err)
	}
	if _, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir}); err == nil {
		t.Fatalf("expected error for directory configuration path")
	}
}

func TestServerConfigurationPaths(t *testing.T) {
	configuration := ServerConfiguration{Home: filepath.Join("base", ".cmdsrv")}
	if configuration.SettingsPath() != filepath.Join("base", ".cmdsrv", "server-settings.yaml") {
		t.Fatalf("unexpected settings path %s", configuration.SettingsPath())
	}
	if configuration.CredentialsDatabasePath() != filepath.Join("base", ".cmdsrv", "credentials.db") {
		t.Fatalf("unexpected database path %s", configuration.CredentialsDatabasePath())
	}
	if configuration.CredentialsStorageDirectory() != filepath.Join("base", ".cmdsrv", "credentials") {
		t.Fatalf("unexpected storage path %s", configuration.CredentialsStorageDirectory())
	}
}

func TestMergeKeepsBaseForZeroOverride(t *testing.T) {
	base := DefaultConfiguration()
	merged := base.Merge(ApplicationConfiguration{})
	if merged != base {
		t.Fatalf("expected zero override to keep base, got %+v", merged)
	}
}
