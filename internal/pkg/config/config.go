// Package config provides configuration management for appversion.
package config

import (
	"fmt"
	"strings"
)

// Config represents the complete appversion configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Changelog ChangelogConfig `mapstructure:"changelog"`
	Platform  PlatformConfig  `mapstructure:"platform"`
	Commits   CommitsConfig   `mapstructure:"commits"`
	Version   VersionConfig   `mapstructure:"version"`
	Manifest  ManifestConfig  `mapstructure:"manifest"`
	Git       GitConfig       `mapstructure:"git"`
	UI        UIConfig        `mapstructure:"ui"`
	History   HistoryConfig   `mapstructure:"history"`
}

// AppConfig describes the environment the tool runs in.
type AppConfig struct {
	// Env is the application environment. APP_ENV takes precedence.
	Env string `mapstructure:"env"`
}

// ChangelogConfig contains changelog generation settings.
type ChangelogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Mode    string `mapstructure:"mode"`
	File    string `mapstructure:"file"`
	// Template is an optional stub used to seed a new changelog.
	Template string `mapstructure:"template"`
}

// PlatformConfig names the hosting platform. It is stored but not used yet.
type PlatformConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`
}

// CommitsConfig contains commit filtering settings.
type CommitsConfig struct {
	// Hidden subjects are dropped by exact match.
	Hidden []string `mapstructure:"hidden"`
}

// VersionConfig locates the version marker.
type VersionConfig struct {
	File   string `mapstructure:"file"`
	Anchor string `mapstructure:"anchor"`
	Line   string `mapstructure:"line"`
}

// ManifestConfig locates the package manifest.
type ManifestConfig struct {
	File string `mapstructure:"file"`
}

// GitConfig contains Git-related settings.
type GitConfig struct {
	Remote string `mapstructure:"remote"`
	Branch string `mapstructure:"branch"`
}

// UIConfig contains UI-related settings.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	Language     string `mapstructure:"language"`
}

// HistoryConfig contains history-related settings.
type HistoryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	MaxEntries int    `mapstructure:"max_entries"`
	FilePath   string `mapstructure:"file_path"`
}

// Changelog modes accepted in changelog.mode and --changelog.
var Modes = []string{"none", "simple", "group"}

// Platforms accepted in platform.name and --platform.
var Platforms = []string{"none", "github", "gitlab", "bitbucket"}

// ValidMode reports whether mode is a known changelog mode.
func ValidMode(mode string) bool {
	return contains(Modes, mode)
}

// ValidPlatform reports whether name is a known platform.
func ValidPlatform(name string) bool {
	return contains(Platforms, name)
}

// EffectiveMode is changelog.mode when the changelog is enabled, else "none".
func (c *Config) EffectiveMode() string {
	if !c.Changelog.Enabled {
		return "none"
	}
	return c.Changelog.Mode
}

// EffectivePlatform is platform.name when enabled, else "none".
func (c *Config) EffectivePlatform() string {
	if !c.Platform.Enabled || c.Platform.Name == "" {
		return "none"
	}
	return c.Platform.Name
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	if c.Changelog.Enabled && !ValidMode(c.Changelog.Mode) {
		return fmt.Errorf("invalid changelog.mode %q (expected one of %s)", c.Changelog.Mode, strings.Join(Modes, ", "))
	}
	if c.Platform.Enabled && !ValidPlatform(c.Platform.Name) {
		return fmt.Errorf("invalid platform.name %q (expected one of %s)", c.Platform.Name, strings.Join(Platforms, ", "))
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}
	if strings.Count(c.Version.Line, "%s") != 1 {
		return fmt.Errorf("version.line %q must contain exactly one %%s", c.Version.Line)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Manager defines the interface for configuration management.
type Manager interface {
	Load() (*Config, error)
	Set(key string, value string) error
	Get(key string) (string, error)
	Init() error
	List() map[string]interface{}
	GetConfigPath() string
}
