package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/appversion/appversion/internal/app"
	"github.com/appversion/appversion/internal/pkg/changelog"
	"github.com/appversion/appversion/internal/pkg/commits"
	"github.com/appversion/appversion/internal/pkg/config"
	apperrors "github.com/appversion/appversion/internal/pkg/errors"
	"github.com/appversion/appversion/internal/pkg/git"
	"github.com/appversion/appversion/internal/pkg/history"
	"github.com/appversion/appversion/internal/pkg/i18n"
	"github.com/appversion/appversion/internal/pkg/manifest"
	"github.com/appversion/appversion/internal/pkg/security"
	"github.com/appversion/appversion/internal/pkg/ui"
	"github.com/appversion/appversion/internal/pkg/versionfile"
)

// ReleaseFlags holds the flags for the release command.
type ReleaseFlags struct {
	Yes bool
}

// Overrides are command-line values applied on top of the settings file.
// Empty fields leave the setting untouched.
type Overrides struct {
	Changelog string
	Platform  string
	Language  string
}

// runtimeEnv is everything a command needs once settings are loaded.
type runtimeEnv struct {
	cfg     *config.Config
	dir     string
	printer *i18n.Printer
}

// runRelease executes the release command logic.
func runRelease(cmd *cobra.Command, version string, flags *ReleaseFlags) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	if err := env.authorize(); err != nil {
		return err
	}

	if !flags.Yes && !isTerminal(cmd.InOrStdin()) {
		return apperrors.NewInvalidArgumentsError("release confirmation needs an interactive terminal").
			WithSuggestion("Pass --yes to release without confirmation")
	}

	// Create UI manager based on --yes flag
	var uiMgr ui.Manager
	if flags.Yes {
		uiMgr = ui.NewNonInteractiveManager(env.cfg.UI.ColorEnabled)
	} else {
		uiMgr = ui.NewDefaultManager(env.cfg.UI.ColorEnabled, "")
	}

	service, err := env.newService(uiMgr)
	if err != nil {
		return err
	}

	_, err = service.Release(context.Background(), env.options(version, flags.Yes))
	return err
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// loadRuntime resolves the project directory, applies flag overrides and
// loads the settings.
func loadRuntime(cmd *cobra.Command) (*runtimeEnv, error) {
	dir, configPath, err := resolvePaths(cmd)
	if err != nil {
		return nil, err
	}

	cfgMgr, err := config.NewManager(configPath)
	if err != nil {
		apperrors.Error("Failed to create config manager: %v", err)
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidConfig, "failed to create config manager")
	}
	apperrors.Debug("Using config path: %s", configPath)

	overrides := Overrides{}
	overrides.Changelog, _ = cmd.Flags().GetString("changelog")
	overrides.Platform, _ = cmd.Flags().GetString("platform")
	overrides.Language, _ = cmd.Flags().GetString("lang")

	// Flags take highest priority (flags > env > file > defaults) and are
	// never written back to the file.
	if err := ApplyOverrides(cfgMgr, overrides); err != nil {
		return nil, err
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		apperrors.Error("Failed to load config: %v", err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidConfig, "failed to load config")
	}

	apperrors.Debug("Project directory: %s", dir)
	apperrors.Debug("Changelog mode: %s, platform: %s", cfg.EffectiveMode(), cfg.EffectivePlatform())

	return &runtimeEnv{
		cfg:     cfg,
		dir:     dir,
		printer: i18n.NewPrinter(cfg.UI.Language),
	}, nil
}

// ApplyOverrides validates command-line overrides and sets them on mgr.
func ApplyOverrides(mgr *config.ViperManager, o Overrides) error {
	if o.Changelog != "" {
		if !config.ValidMode(o.Changelog) {
			return apperrors.NewInvalidArgumentsError("invalid --changelog value " + o.Changelog).
				WithSuggestion("Use one of: none, simple, group")
		}
		if o.Changelog == string(commits.ModeNone) {
			mgr.SetOverride("changelog.enabled", false)
		} else {
			mgr.SetOverride("changelog.enabled", true)
			mgr.SetOverride("changelog.mode", o.Changelog)
		}
		apperrors.Debug("Changelog mode overridden via flag: %s", o.Changelog)
	}

	if o.Platform != "" {
		if !config.ValidPlatform(o.Platform) {
			return apperrors.NewInvalidArgumentsError("invalid --platform value " + o.Platform).
				WithSuggestion("Use one of: none, github, gitlab, bitbucket")
		}
		if o.Platform == "none" {
			mgr.SetOverride("platform.enabled", false)
		} else {
			mgr.SetOverride("platform.enabled", true)
			mgr.SetOverride("platform.name", o.Platform)
		}
		apperrors.Debug("Platform overridden via flag: %s", o.Platform)
	}

	if o.Language != "" {
		mgr.SetOverride("ui.language", o.Language)
	}

	return nil
}

// authorize refuses to run outside a local environment. The refusal is
// reported in the configured language.
func (e *runtimeEnv) authorize() error {
	err := security.Authorize(e.cfg.App.Env)
	if err == nil {
		return nil
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		appErr.Message = e.printer.Sprintf(i18n.MsgUnauthorized)
	}
	return err
}

// newService wires the release service for the project directory.
func (e *runtimeEnv) newService(uiMgr ui.Manager) (*app.ReleaseService, error) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), e.dir)

	editor, err := versionfile.NewFileEditor(fs, e.cfg.Version.File, e.cfg.Version.Anchor, e.cfg.Version.Line)
	if err != nil {
		return nil, err
	}

	gitClient := git.NewClientWithWorkDir(e.dir)

	// Create history manager; it lives outside the project tree.
	var historyMgr history.Manager
	if e.cfg.History.Enabled {
		historyMgr = history.NewJournal(afero.NewOsFs(), e.cfg.History.FilePath, e.cfg.History.MaxEntries)
	}

	service := app.NewReleaseService(
		gitClient,
		commits.NewClassifier(gitClient),
		editor,
		changelog.NewFileStore(fs, e.cfg.Changelog.File, e.cfg.Changelog.Template),
		manifest.NewFileReader(fs, e.cfg.Manifest.File),
		uiMgr,
		historyMgr,
		e.printer,
	)
	service.SetProject(e.dir)

	return service, nil
}

// resolvePaths returns the absolute project directory and the settings
// file path, which defaults to .appversion.yaml inside it.
func resolvePaths(cmd *cobra.Command) (string, string, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dir, _ := cmd.Flags().GetString("dir")

	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", apperrors.NewFileSystemError(err, ".")
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", apperrors.NewFileSystemError(err, dir)
	}
	if configPath == "" {
		configPath = filepath.Join(abs, config.DefaultConfigFileName)
	}
	return abs, configPath, nil
}

// options builds the immutable options of one run.
func (e *runtimeEnv) options(version string, yes bool) app.ReleaseOptions {
	return app.ReleaseOptions{
		NewVersion:  version,
		Mode:        commits.Mode(e.cfg.EffectiveMode()),
		Platform:    e.cfg.EffectivePlatform(),
		Hidden:      e.cfg.Commits.Hidden,
		Remote:      e.cfg.Git.Remote,
		Branch:      e.cfg.Git.Branch,
		SkipConfirm: yes,
	}
}
