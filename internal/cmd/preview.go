package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appversion/appversion/internal/pkg/ui"
)

// NewPreviewCmd creates the preview command, a read-only dry run of a release.
func NewPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <version>",
		Short: "Show the changelog section a release would write",
		Long: `Gather the commits since the current version and print the changelog
section that 'appversion <version>' would write.

Nothing is modified: no file is written and no git command other than
'git log' is run. With --changelog none the commits are shown as a flat list.

Examples:
  appversion preview 1.2.0                     # Preview with the configured mode
  appversion preview 1.2.0 --changelog simple  # Preview a flat list`,
		Args: versionArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0])
		},
	}

	return cmd
}

// runPreview executes the preview command logic.
func runPreview(cmd *cobra.Command, version string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	uiMgr := ui.NewNonInteractiveManagerWithOutput(env.cfg.UI.ColorEnabled, cmd.OutOrStdout(), cmd.ErrOrStderr())

	service, err := env.newService(uiMgr)
	if err != nil {
		return err
	}

	preview, err := service.Preview(context.Background(), env.options(version, true))
	if err != nil {
		return err
	}

	from := preview.OldVersion
	if from == "" {
		from = "the first commit"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d commits since %s\n\n", preview.Commits.Count(), from)
	fmt.Fprint(cmd.OutOrStdout(), preview.Section)
	return nil
}
