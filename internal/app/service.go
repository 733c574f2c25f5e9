// Package app contains the application layer with the release orchestration.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/appversion/appversion/internal/pkg/changelog"
	"github.com/appversion/appversion/internal/pkg/commits"
	apperrors "github.com/appversion/appversion/internal/pkg/errors"
	"github.com/appversion/appversion/internal/pkg/git"
	"github.com/appversion/appversion/internal/pkg/history"
	"github.com/appversion/appversion/internal/pkg/i18n"
	"github.com/appversion/appversion/internal/pkg/manifest"
	"github.com/appversion/appversion/internal/pkg/ui"
	"github.com/appversion/appversion/internal/pkg/versionfile"
)

// Commit messages used for the release commit.
const (
	CommitMessageWithChangelog = "Update changelog and app version"
	CommitMessageVersionOnly   = "Update app version"
)

// State is a step of the release state machine.
type State int

const (
	StateStart State = iota
	StateVersionEnsured
	StateCommitsGathered
	StateAborted
	StateVersionUpdated
	StateChangelogUpdated
	StateCommitted
	StateTagged
	StateDone
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateVersionEnsured:
		return "version-ensured"
	case StateCommitsGathered:
		return "commits-gathered"
	case StateAborted:
		return "aborted"
	case StateVersionUpdated:
		return "version-updated"
	case StateChangelogUpdated:
		return "changelog-updated"
	case StateCommitted:
		return "committed"
	case StateTagged:
		return "tagged"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ReleaseOptions contains the options of one release. It is not modified
// by the service.
type ReleaseOptions struct {
	NewVersion string
	Mode       commits.Mode
	// Platform is validated and recorded but drives no behavior.
	Platform    string
	Hidden      []string
	Remote      string
	Branch      string
	SkipConfirm bool
}

// Validate checks the options before anything is touched.
func (o ReleaseOptions) Validate() error {
	if strings.TrimSpace(o.NewVersion) == "" {
		return apperrors.NewInvalidArgumentsError("a version is required")
	}
	if err := git.ValidateRefName(o.NewVersion); err != nil {
		return apperrors.NewInvalidArgumentsError(fmt.Sprintf("version %q cannot be used as a tag: %v", o.NewVersion, err))
	}
	if _, err := commits.ParseMode(string(o.Mode)); err != nil {
		return apperrors.NewInvalidArgumentsError(err.Error())
	}
	return nil
}

// remote returns the configured remote or the default.
func (o ReleaseOptions) remote() string {
	if o.Remote == "" {
		return git.DefaultRemote
	}
	return o.Remote
}

// branch returns the configured branch or the default.
func (o ReleaseOptions) branch() string {
	if o.Branch == "" {
		return git.DefaultBranch
	}
	return o.Branch
}

// ReleaseResult describes a completed release.
type ReleaseResult struct {
	OldVersion  string
	NewVersion  string
	Section     string
	CommitCount int
	Files       []string
}

// PreviewResult describes what a release would write.
type PreviewResult struct {
	OldVersion string
	NewVersion string
	Commits    *commits.Result
	Section    string
}

// CommitClassifier gathers and classifies the commits of a release.
type CommitClassifier interface {
	Classify(ctx context.Context, oldVersion string, hidden []string, mode commits.Mode) (*commits.Result, error)
}

// ReleaseService orchestrates a release: version bump, changelog, commit, push and tag.
type ReleaseService struct {
	gitClient  git.Client
	classifier CommitClassifier
	version    versionfile.Editor
	changelog  changelog.Store
	manifest   manifest.Reader
	uiManager  ui.Manager
	historyMgr history.Manager
	printer    *i18n.Printer
	now        func() time.Time
	project    string
	state      State
}

// NewReleaseService creates a new ReleaseService with the given dependencies.
// historyMgr may be nil to disable the release journal.
func NewReleaseService(
	gitClient git.Client,
	classifier CommitClassifier,
	version versionfile.Editor,
	store changelog.Store,
	reader manifest.Reader,
	uiManager ui.Manager,
	historyMgr history.Manager,
	printer *i18n.Printer,
) *ReleaseService {
	if printer == nil {
		printer = i18n.NewPrinter("")
	}
	return &ReleaseService{
		gitClient:  gitClient,
		classifier: classifier,
		version:    version,
		changelog:  store,
		manifest:   reader,
		uiManager:  uiManager,
		historyMgr: historyMgr,
		printer:    printer,
		now:        time.Now,
	}
}

// SetClock replaces the clock used for section dates.
func (s *ReleaseService) SetClock(now func() time.Time) {
	s.now = now
}

// SetProject records the project directory in history entries.
func (s *ReleaseService) SetProject(dir string) {
	s.project = dir
}

// State returns the last state reached by Release.
func (s *ReleaseService) State() State {
	return s.state
}

func (s *ReleaseService) transition(state State) {
	apperrors.Debug("release: %s -> %s", s.state, state)
	s.state = state
}

func (s *ReleaseService) info(key i18n.Key, args ...interface{}) {
	s.uiManager.ShowInfo(s.printer.Sprintf(key, args...))
}

// Release runs the release state machine. Any failure stops it where it is;
// completed steps are not rolled back.
func (s *ReleaseService) Release(ctx context.Context, opts ReleaseOptions) (*ReleaseResult, error) {
	s.state = StateStart

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Start -> VersionEnsured
	s.info(i18n.MsgEnsuringVersion)
	if _, err := s.version.EnsureVersionFieldExists(); err != nil {
		return nil, err
	}
	oldVersion, err := s.version.CurrentVersion()
	if err != nil {
		return nil, err
	}
	if oldVersion == opts.NewVersion {
		return nil, apperrors.NewInvalidArgumentsError(fmt.Sprintf("%s is already the current version", opts.NewVersion))
	}
	s.transition(StateVersionEnsured)

	// VersionEnsured -> CommitsGathered
	result, err := s.classifier.Classify(ctx, oldVersion, opts.Hidden, opts.Mode)
	if err != nil {
		return nil, err
	}
	s.transition(StateCommitsGathered)

	if result.Empty() {
		s.transition(StateAborted)
		s.uiManager.ShowWarning(s.printer.Sprintf(i18n.MsgNoCommits))
		return nil, apperrors.NewNoCommitsError(oldVersion)
	}

	var section string
	if opts.Mode != commits.ModeNone {
		section, err = s.renderSection(result, oldVersion, opts.NewVersion, opts.Mode)
		if err != nil {
			return nil, err
		}
	}

	if !opts.SkipConfirm {
		section, err = s.confirm(opts, result, section)
		if err != nil {
			s.transition(StateAborted)
			return nil, err
		}
	}

	// Seed the changelog before the version file changes: a missing
	// template must leave the version untouched.
	if opts.Mode != commits.ModeNone {
		if _, err := s.changelog.EnsureExists(); err != nil {
			return nil, err
		}
	}

	// CommitsGathered -> VersionUpdated
	s.info(i18n.MsgReplacingVersion)
	if err := s.version.SetVersion(oldVersion, opts.NewVersion); err != nil {
		return nil, err
	}
	s.info(i18n.MsgVersionReplaced)
	s.transition(StateVersionUpdated)

	var files []string
	message := CommitMessageVersionOnly

	// VersionUpdated -> ChangelogUpdated
	if opts.Mode != commits.ModeNone {
		s.info(i18n.MsgUpdatingChangelog)
		if err := s.changelog.Apply(section, oldVersion); err != nil {
			return nil, err
		}
		s.info(i18n.MsgChangelogUpdated)
		s.transition(StateChangelogUpdated)

		files = append(files, s.changelog.Path())
		message = CommitMessageWithChangelog
	}
	files = append(files, s.version.Path())

	// -> Committed
	if err := s.commitAndPush(ctx, opts, files, message); err != nil {
		return nil, err
	}
	s.transition(StateCommitted)

	// Committed -> Tagged
	if err := s.tagAndPush(ctx, opts); err != nil {
		return nil, err
	}
	s.transition(StateTagged)

	s.record(opts, oldVersion, result.Count())
	s.transition(StateDone)
	s.uiManager.ShowSuccess(s.printer.Sprintf(i18n.MsgReleaseDone, opts.NewVersion))

	return &ReleaseResult{
		OldVersion:  oldVersion,
		NewVersion:  opts.NewVersion,
		Section:     section,
		CommitCount: result.Count(),
		Files:       files,
	}, nil
}

// renderSection builds the changelog section of the release.
func (s *ReleaseService) renderSection(result *commits.Result, oldVersion, newVersion string, mode commits.Mode) (string, error) {
	origin, err := s.manifest.OriginURL()
	if err != nil {
		return "", err
	}

	return changelog.Render(result, changelog.Section{
		NewVersion: newVersion,
		OldVersion: oldVersion,
		OriginURL:  origin,
		Date:       s.now(),
	}, mode), nil
}

// confirm asks the user to go ahead. With a changelog the section is shown
// and may be edited; the returned section is the one to write.
func (s *ReleaseService) confirm(opts ReleaseOptions, result *commits.Result, section string) (string, error) {
	question := s.printer.Sprintf(i18n.MsgConfirmRelease, opts.NewVersion, result.Count())

	if opts.Mode == commits.ModeNone {
		confirmed, err := s.uiManager.PromptConfirm(question)
		if err != nil {
			return "", fmt.Errorf("failed to prompt user: %w", err)
		}
		if !confirmed {
			s.uiManager.ShowWarning(s.printer.Sprintf(i18n.MsgReleaseCancelled))
			return "", apperrors.NewCancelledError()
		}
		return section, nil
	}

	s.uiManager.DisplaySection(s.changelog.Path(), section)
	for {
		action, err := s.uiManager.PromptAction(question)
		if err != nil {
			return "", fmt.Errorf("failed to get user action: %w", err)
		}

		switch action {
		case ui.ActionRelease:
			return section, nil

		case ui.ActionEdit:
			edited, err := s.uiManager.EditSection(section)
			if err != nil {
				s.uiManager.ShowError(err)
				continue
			}
			section = edited
			s.uiManager.DisplaySection(s.changelog.Path(), section)

		default:
			s.uiManager.ShowWarning(s.printer.Sprintf(i18n.MsgReleaseCancelled))
			return "", apperrors.NewCancelledError()
		}
	}
}

// commitAndPush stages files, commits them and pushes the branch.
func (s *ReleaseService) commitAndPush(ctx context.Context, opts ReleaseOptions, files []string, message string) error {
	s.info(i18n.MsgPushingFiles)

	if err := s.gitClient.Add(ctx, files...); err != nil {
		return err
	}
	if err := s.gitClient.Commit(ctx, message); err != nil {
		return err
	}

	spinner := s.uiManager.ShowSpinner(s.printer.Sprintf(i18n.MsgPushingFiles))
	spinner.Start()
	err := s.gitClient.Push(ctx, opts.remote(), opts.branch())
	spinner.Stop()
	if err != nil {
		return err
	}

	s.info(i18n.MsgFilesPushed)
	return nil
}

// tagAndPush creates an annotated tag named after the version and pushes it.
func (s *ReleaseService) tagAndPush(ctx context.Context, opts ReleaseOptions) error {
	s.info(i18n.MsgCreatingTag)

	if err := s.gitClient.CreateTag(ctx, opts.NewVersion, opts.NewVersion); err != nil {
		return err
	}

	spinner := s.uiManager.ShowSpinner(s.printer.Sprintf(i18n.MsgCreatingTag))
	spinner.Start()
	err := s.gitClient.Push(ctx, opts.remote(), opts.NewVersion)
	spinner.Stop()
	if err != nil {
		return err
	}

	s.info(i18n.MsgTagCreated)
	return nil
}

// record appends the release to history. Failures only warn.
func (s *ReleaseService) record(opts ReleaseOptions, oldVersion string, count int) {
	if s.historyMgr == nil {
		return
	}

	entry := &history.Entry{
		Timestamp:   s.now(),
		Project:     s.project,
		OldVersion:  oldVersion,
		NewVersion:  opts.NewVersion,
		Mode:        string(opts.Mode),
		Platform:    opts.Platform,
		CommitCount: count,
		Remote:      opts.remote(),
		Branch:      opts.branch(),
		Tagged:      true,
	}
	if err := s.historyMgr.Save(entry); err != nil {
		apperrors.Warn("failed to record release: %v", err)
		s.uiManager.ShowWarning(s.printer.Sprintf(i18n.MsgHistoryRecordError, err))
	}
}

// Preview gathers commits and renders the section a release would write.
// Nothing is modified.
func (s *ReleaseService) Preview(ctx context.Context, opts ReleaseOptions) (*PreviewResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	oldVersion, err := s.version.CurrentVersion()
	if err != nil {
		return nil, err
	}

	result, err := s.classifier.Classify(ctx, oldVersion, opts.Hidden, opts.Mode)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		s.uiManager.ShowWarning(s.printer.Sprintf(i18n.MsgNoCommits))
		return nil, apperrors.NewNoCommitsError(oldVersion)
	}

	// Without a changelog the flat list is still worth showing.
	mode := opts.Mode
	if mode == commits.ModeNone {
		mode = commits.ModeSimple
	}
	section, err := s.renderSection(result, oldVersion, opts.NewVersion, mode)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		OldVersion: oldVersion,
		NewVersion: opts.NewVersion,
		Commits:    result,
		Section:    section,
	}, nil
}
