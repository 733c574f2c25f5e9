package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/appversion/appversion/internal/pkg/config"
	"github.com/appversion/appversion/internal/pkg/ui"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage appversion configuration",
		Long: `Manage appversion configuration settings.

Use subcommands to initialize, view, or modify configuration values.
Configuration is stored in .appversion.yaml in the project directory.
Every key can also be set with an APPVERSION_ environment variable,
for example APPVERSION_CHANGELOG_MODE=simple.`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigGetCmd())
	configCmd.AddCommand(newConfigListCmd())

	return configCmd
}

// newConfigManager creates the manager for the resolved settings file.
func newConfigManager(cmd *cobra.Command) (*config.ViperManager, error) {
	_, configPath, err := resolvePaths(cmd)
	if err != nil {
		return nil, err
	}
	mgr, err := config.NewManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	return mgr, nil
}

// newConfigInitCmd creates the 'config init' subcommand.
func newConfigInitCmd() *cobra.Command {
	var useDefaults bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long: `Create .appversion.yaml in the project directory.

By default a short interactive form asks for the changelog mode, the
hosting platform, the remote, the release branch and the message language.
Use --defaults to write the default values without prompting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newConfigManager(cmd)
			if err != nil {
				return err
			}

			if mgr.ConfigExists() {
				return fmt.Errorf("config file already exists at %s", mgr.GetConfigPath())
			}

			if useDefaults {
				if err := mgr.Init(); err != nil {
					return err
				}
			} else if err := ui.RunInteractiveSetup(mgr); err != nil {
				return fmt.Errorf("setup failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at %s\n", mgr.GetConfigPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Write default values without prompting")

	return cmd
}

// newConfigSetCmd creates the 'config set' subcommand.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value by key.

Supports nested keys using dot notation. List values are comma separated.

Examples:
  appversion config set changelog.mode simple
  appversion config set git.branch master
  appversion config set commits.hidden "wip,fix,Merge branch"
  appversion config set history.enabled false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			mgr, err := newConfigManager(cmd)
			if err != nil {
				return err
			}

			// Check if config file exists
			if !mgr.ConfigExists() {
				return fmt.Errorf("config file not found. Run 'appversion config init' first")
			}

			if err := mgr.Set(key, value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// newConfigGetCmd creates the 'config get' subcommand.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newConfigManager(cmd)
			if err != nil {
				return err
			}

			value, err := mgr.Get(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

// newConfigListCmd creates the 'config list' subcommand.
func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `Display all current configuration values, merged from defaults,
the settings file and APPVERSION_ environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newConfigManager(cmd)
			if err != nil {
				return err
			}

			printSettings(cmd.OutOrStdout(), "", mgr.List())
			return nil
		},
	}
}

// printSettings recursively prints configuration settings in key order.
func printSettings(w io.Writer, indent string, settings map[string]interface{}) {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := settings[key].(type) {
		case map[string]interface{}:
			fmt.Fprintf(w, "%s%s:\n", indent, key)
			printSettings(w, indent+"  ", v)
		default:
			fmt.Fprintf(w, "%s%s: %v\n", indent, key, v)
		}
	}
}
