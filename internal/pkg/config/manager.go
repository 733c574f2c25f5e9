package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFileName is the default config file name, looked up in the project directory.
	DefaultConfigFileName = ".appversion.yaml"
	// DefaultConfigFileExt is the default config file extension.
	DefaultConfigFileExt = "yaml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "APPVERSION"
)

// DefaultHidden are the commit subjects dropped from changelogs by default.
// The first two are the messages this tool commits with.
var DefaultHidden = []string{
	"Update changelog and app version",
	"Update app version",
	"fix",
	"wip",
	"fix conflicts",
}

// ViperManager implements the Manager interface using Viper.
type ViperManager struct {
	v          *viper.Viper
	configPath string
}

// NewManager creates a new configuration manager.
// If configPath is empty, it uses ./.appversion.yaml.
func NewManager(configPath string) (*ViperManager, error) {
	v := viper.New()

	// Set config file type
	v.SetConfigType(DefaultConfigFileExt)

	if configPath == "" {
		configPath = DefaultConfigFileName
	}

	v.SetConfigFile(configPath)

	// Set up environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults first (required for env binding to work with nested keys)
	setDefaults(v)

	// Explicitly bind environment variables for nested keys
	bindEnvVars(v)

	return &ViperManager{
		v:          v,
		configPath: configPath,
	}, nil
}

// bindEnvVars explicitly binds environment variables for all config keys.
// This is needed because Viper's AutomaticEnv doesn't work well with nested keys.
func bindEnvVars(v *viper.Viper) {
	// APP_ENV is the conventional variable and wins over the prefixed one.
	_ = v.BindEnv("app.env", "APP_ENV", "APPVERSION_APP_ENV")

	// Changelog settings
	_ = v.BindEnv("changelog.enabled", "APPVERSION_CHANGELOG_ENABLED")
	_ = v.BindEnv("changelog.mode", "APPVERSION_CHANGELOG_MODE")
	_ = v.BindEnv("changelog.file", "APPVERSION_CHANGELOG_FILE")
	_ = v.BindEnv("changelog.template", "APPVERSION_CHANGELOG_TEMPLATE")

	// Platform settings
	_ = v.BindEnv("platform.enabled", "APPVERSION_PLATFORM_ENABLED")
	_ = v.BindEnv("platform.name", "APPVERSION_PLATFORM_NAME")

	// Version file settings
	_ = v.BindEnv("version.file", "APPVERSION_VERSION_FILE")
	_ = v.BindEnv("version.anchor", "APPVERSION_VERSION_ANCHOR")
	_ = v.BindEnv("version.line", "APPVERSION_VERSION_LINE")

	_ = v.BindEnv("manifest.file", "APPVERSION_MANIFEST_FILE")

	// Git settings
	_ = v.BindEnv("git.remote", "APPVERSION_GIT_REMOTE")
	_ = v.BindEnv("git.branch", "APPVERSION_GIT_BRANCH")

	// UI settings
	_ = v.BindEnv("ui.color_enabled", "APPVERSION_UI_COLOR_ENABLED")
	_ = v.BindEnv("ui.language", "APPVERSION_UI_LANGUAGE")

	// History settings
	_ = v.BindEnv("history.enabled", "APPVERSION_HISTORY_ENABLED")
	_ = v.BindEnv("history.max_entries", "APPVERSION_HISTORY_MAX_ENTRIES")
	_ = v.BindEnv("history.file_path", "APPVERSION_HISTORY_FILE_PATH")
}

// setDefaults sets the default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")

	setProjectDefaults(v)

	homeDir, _ := os.UserHomeDir()
	v.SetDefault("history.file_path", filepath.Join(homeDir, ".appversion", "history.json"))
}

// setProjectDefaults sets the defaults written by Init. app.env and
// history.file_path are machine settings and never reach the file.
func setProjectDefaults(v *viper.Viper) {
	// Changelog defaults
	v.SetDefault("changelog.enabled", true)
	v.SetDefault("changelog.mode", "group")
	v.SetDefault("changelog.file", "CHANGELOG.md")
	v.SetDefault("changelog.template", "")

	// Platform defaults
	v.SetDefault("platform.enabled", false)
	v.SetDefault("platform.name", "github")

	v.SetDefault("commits.hidden", DefaultHidden)

	// Version file defaults
	v.SetDefault("version.file", "config/app.php")
	v.SetDefault("version.anchor", "'name' => env('APP_NAME', 'Laravel'),")
	v.SetDefault("version.line", "'version' => '%s',")

	v.SetDefault("manifest.file", "composer.json")

	// Git defaults
	v.SetDefault("git.remote", "origin")
	v.SetDefault("git.branch", "main")

	// UI defaults
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.language", "en")

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.max_entries", 500)
}

// GetConfigPath returns the path to the configuration file.
func (m *ViperManager) GetConfigPath() string {
	return m.configPath
}

// Load loads the configuration from file, environment, and defaults.
// Priority: flags > env > file > defaults
func (m *ViperManager) Load() (*Config, error) {
	if err := m.readConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfig reads the config file, treating a missing file as empty.
func (m *ViperManager) readConfig() error {
	return readInConfig(m.v)
}

func readInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// fileViper returns a viper holding only what the settings file contains:
// no defaults, no environment and no overrides.
func (m *ViperManager) fileViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(DefaultConfigFileExt)
	v.SetConfigFile(m.configPath)
	if err := readInConfig(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Init creates a new configuration file with the project defaults.
func (m *ViperManager) Init() error {
	// Check if config file already exists
	if _, err := os.Stat(m.configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", m.configPath)
	}

	// Ensure parent directory exists
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(DefaultConfigFileExt)
	setProjectDefaults(v)

	if err := v.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Set sets a configuration value by key and writes it to the file. Only
// keys already in the file and key itself are written.
// Supports nested keys using dot notation (e.g., "changelog.mode").
func (m *ViperManager) Set(key string, value string) error {
	fileV, err := m.fileViper()
	if err != nil {
		return err
	}

	// Convert value to appropriate type based on the file value, or the
	// default when the file does not set the key.
	existingValue := fileV.Get(key)
	if existingValue == nil {
		defaults := viper.New()
		setDefaults(defaults)
		existingValue = defaults.Get(key)
	}
	convertedValue, err := convertValue(value, existingValue)
	if err != nil {
		return fmt.Errorf("failed to convert value for key %s: %w", key, err)
	}

	switch key {
	case "changelog.mode":
		if !ValidMode(value) {
			return fmt.Errorf("invalid changelog mode %q (expected one of %s)", value, strings.Join(Modes, ", "))
		}
	case "platform.name":
		if !ValidPlatform(value) {
			return fmt.Errorf("invalid platform %q (expected one of %s)", value, strings.Join(Platforms, ", "))
		}
	}

	fileV.Set(key, convertedValue)

	if err := fileV.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// convertValue converts a string value to the appropriate type based on the existing value type.
func convertValue(value string, existingValue interface{}) (interface{}, error) {
	if existingValue == nil {
		return value, nil
	}

	switch existingValue.(type) {
	case bool:
		return strconv.ParseBool(value)
	case int, int64:
		return strconv.ParseInt(value, 10, 64)
	case float32, float64:
		return strconv.ParseFloat(value, 64)
	case []interface{}, []string:
		// For arrays, split by comma
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return value, nil
	}
}

// Get retrieves a configuration value by key.
func (m *ViperManager) Get(key string) (string, error) {
	if err := m.readConfig(); err != nil {
		return "", err
	}

	value := m.v.Get(key)
	if value == nil {
		return "", fmt.Errorf("key not found: %s", key)
	}

	return fmt.Sprintf("%v", value), nil
}

// List returns all configuration values as a map.
func (m *ViperManager) List() map[string]interface{} {
	// Load config first (ignore errors, use defaults)
	_ = m.v.ReadInConfig()

	return m.v.AllSettings()
}

// SetOverride sets a temporary override for a configuration key.
// This is used for command-line flag overrides that shouldn't persist.
func (m *ViperManager) SetOverride(key string, value interface{}) {
	m.v.Set(key, value)
}

// ConfigExists checks if the configuration file exists.
func (m *ViperManager) ConfigExists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}
