// Package cmd contains the CLI command definitions for appversion.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/appversion/appversion/internal/pkg/errors"
)

// NewRootCmd creates the root command for the appversion CLI.
func NewRootCmd(version, commitHash, date string) *cobra.Command {
	flags := &ReleaseFlags{}

	rootCmd := &cobra.Command{
		Use:   "appversion <version>",
		Short: "Release a new application version",
		Long: `appversion cuts a release of the project in the current directory.

It stores the new version in the application config file, writes a
changelog section from the commits since the previous version, commits
both files, pushes the branch and pushes an annotated tag named after
the version.

Releases are only allowed from a local environment (APP_ENV=local).

Before anything is written the changelog section is shown for
confirmation. This needs an interactive terminal: in scripts and CI
pass --yes.

Examples:
  appversion 1.2.0                     # Release with the configured changelog mode
  appversion 1.2.0 --changelog simple  # Flat commit list
  appversion 1.2.0 --changelog none    # Only bump the version
  appversion 1.2.0 --yes               # No confirmation prompt`,
		Version:       version,
		Args:          versionArg,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			apperrors.SetVerbose(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, args[0], flags)
		},
	}

	// Set version template
	rootCmd.SetVersionTemplate(`appversion {{.Version}}
Commit: ` + commitHash + `
Built:  ` + date + "\n")

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: <dir>/.appversion.yaml)")
	rootCmd.PersistentFlags().StringP("dir", "C", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().String("changelog", "", "Changelog mode override (none, simple, group)")
	rootCmd.PersistentFlags().String("platform", "", "Hosting platform override (none, github, gitlab, bitbucket)")
	rootCmd.PersistentFlags().String("lang", "", "Message language (en, fr)")

	rootCmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "Skip interactive confirmation and release immediately")

	// Add subcommands
	rootCmd.AddCommand(NewPreviewCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewHistoryCmd())

	return rootCmd
}

// versionArg requires exactly one positional version argument.
func versionArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return apperrors.NewInvalidArgumentsError(fmt.Sprintf("expected exactly one version argument, got %d", len(args))).
			WithSuggestion(fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()))
	}
	return nil
}
