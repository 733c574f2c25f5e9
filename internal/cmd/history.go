package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/appversion/appversion/internal/pkg/history"
)

const (
	// DefaultHistoryLimit is the default number of history entries to display.
	DefaultHistoryLimit = 20
)

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View release history",
		Long: `View the journal of completed releases of this project.

The journal is shared by every project on the machine. By default only the
releases of the project directory are shown, most recent 20 first. Use
--all to include every project and --limit to change the number shown.

Examples:
  appversion history               # Last 20 releases of this project
  appversion history --limit 5     # Last 5 releases of this project
  appversion history --all         # Releases of every project
  appversion history clear         # Forget this project's releases`,
		RunE: runHistoryList,
	}

	historyCmd.Flags().IntP("limit", "l", DefaultHistoryLimit, "Number of entries to display")
	historyCmd.PersistentFlags().Bool("all", false, "Include every project")

	historyCmd.AddCommand(newHistoryClearCmd())

	return historyCmd
}

// historyScope is the journal and the project a history command works on.
type historyScope struct {
	journal history.Manager
	// project is empty with --all.
	project string
}

// newHistoryScope loads settings and returns the journal scope, or nil when
// history is disabled.
func newHistoryScope(cmd *cobra.Command) (*historyScope, error) {
	env, err := loadRuntime(cmd)
	if err != nil {
		return nil, err
	}
	if !env.cfg.History.Enabled {
		return nil, nil
	}

	scope := &historyScope{
		journal: history.NewJournal(afero.NewOsFs(), env.cfg.History.FilePath, env.cfg.History.MaxEntries),
		project: env.dir,
	}
	if all, _ := cmd.Flags().GetBool("all"); all {
		scope.project = ""
	}
	return scope, nil
}

// runHistoryList displays the history entries.
func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	out := cmd.OutOrStdout()

	scope, err := newHistoryScope(cmd)
	if err != nil {
		return err
	}
	if scope == nil {
		fmt.Fprintln(out, "History is disabled. Enable it with: appversion config set history.enabled true")
		return nil
	}

	entries, err := scope.journal.List(history.Filter{Project: scope.project, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		return nil
	}

	fmt.Fprintf(out, "Showing %d most recent releases:\n\n", len(entries))

	for i := len(entries) - 1; i >= 0; i-- {
		printHistoryEntry(out, entries[i], len(entries)-i, scope.project == "")
	}

	return nil
}

// printHistoryEntry prints one release. The project line is only useful
// when several projects are listed.
func printHistoryEntry(w io.Writer, entry *history.Entry, index int, withProject bool) {
	from := entry.OldVersion
	if from == "" {
		from = "(first release)"
	}

	status := "not tagged"
	if entry.Tagged {
		status = "tagged"
	}

	fmt.Fprintf(w, "[%d] %s %s -> %s (%s)\n", index, entry.Timestamp.Format(time.RFC3339), from, entry.NewVersion, status)
	if withProject && entry.Project != "" {
		fmt.Fprintf(w, "    Project:   %s\n", entry.Project)
	}
	if entry.Mode == "none" {
		fmt.Fprintln(w, "    Changelog: none")
	} else {
		fmt.Fprintf(w, "    Changelog: %s, %d commits\n", entry.Mode, entry.CommitCount)
	}
	fmt.Fprintf(w, "    Pushed to: %s/%s\n", entry.Remote, entry.Branch)
	if entry.Platform != "" && entry.Platform != "none" {
		fmt.Fprintf(w, "    Platform:  %s\n", entry.Platform)
	}
	fmt.Fprintln(w)
}

// newHistoryClearCmd creates the 'history clear' subcommand.
func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the releases of this project",
		Long: `Delete the releases of the project directory from the journal, or
every release with --all.

This action cannot be undone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := newHistoryScope(cmd)
			if err != nil {
				return err
			}
			if scope == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "History is disabled.")
				return nil
			}

			if err := scope.journal.Clear(scope.project); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "History cleared successfully.")
			return nil
		},
	}
}
