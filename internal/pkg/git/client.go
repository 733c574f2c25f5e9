// Package git provides the shell command runner and the git operations used by a release.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	apperrors "github.com/appversion/appversion/internal/pkg/errors"
	"github.com/appversion/appversion/internal/pkg/security"
)

const (
	// LogFormat is the pretty format passed to git log. The quotes are part of
	// the format, so every subject line comes back wrapped in them.
	LogFormat = `--pretty=format:"%s"`

	// DefaultRemote is the remote pushed to when none is configured.
	DefaultRemote = "origin"
	// DefaultBranch is the branch pushed when none is configured.
	DefaultBranch = "main"
)

// Runner executes external commands synchronously.
type Runner interface {
	// Run executes name with args and returns its standard output.
	// A non-zero exit yields an *errors.AppError with code ErrCommandFailed.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner implements Runner using exec.CommandContext.
type ExecRunner struct {
	// workDir is the working directory for commands.
	// If empty, uses the current directory.
	workDir string
}

// NewRunner creates an ExecRunner rooted at workDir.
func NewRunner(workDir string) *ExecRunner {
	return &ExecRunner{workDir: workDir}
}

// Run executes the command and waits for it. There is no timeout: the
// context is only used so that an interrupt can stop a hanging push.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	argv := append([]string{name}, args...)
	apperrors.LogCommand(r.workDir, argv)
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		apperrors.LogCommandResult(argv, exitCode, stdout.Len(), time.Since(start))
		return stdout.String(), apperrors.NewCommandError(err, argv, exitCode, stdout.String(),
			security.SanitizeForLogging(stderr.String()))
	}

	apperrors.LogCommandResult(argv, 0, stdout.Len(), time.Since(start))
	return stdout.String(), nil
}

// Client defines the git operations a release needs.
type Client interface {
	// LogSubjects returns the raw subject lines of non-merge commits in
	// since..HEAD, or of the whole history when since is empty.
	LogSubjects(ctx context.Context, since string) (string, error)
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, ref string) error
	CreateTag(ctx context.Context, name, message string) error
}

// DefaultClient implements Client by shelling out to the git binary.
type DefaultClient struct {
	runner Runner
}

// NewClient creates a DefaultClient running git in the current directory.
func NewClient() *DefaultClient {
	return &DefaultClient{runner: NewRunner("")}
}

// NewClientWithWorkDir creates a DefaultClient with a specific working directory.
func NewClientWithWorkDir(workDir string) *DefaultClient {
	return &DefaultClient{runner: NewRunner(workDir)}
}

// NewClientWithRunner creates a DefaultClient on top of an arbitrary Runner.
func NewClientWithRunner(runner Runner) *DefaultClient {
	return &DefaultClient{runner: runner}
}

// LogSubjects runs git log with the subject-only format.
func (c *DefaultClient) LogSubjects(ctx context.Context, since string) (string, error) {
	return c.runner.Run(ctx, "git", LogArgs(since)...)
}

// Add stages the given paths.
func (c *DefaultClient) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.runner.Run(ctx, "git", append([]string{"add"}, paths...)...)
	return err
}

// Commit executes a git commit with the given message.
func (c *DefaultClient) Commit(ctx context.Context, message string) error {
	_, err := c.runner.Run(ctx, "git", "commit", "-m", message)
	return err
}

// Push pushes ref (a branch or a tag name) to remote.
func (c *DefaultClient) Push(ctx context.Context, remote, ref string) error {
	if remote == "" {
		remote = DefaultRemote
	}
	_, err := c.runner.Run(ctx, "git", "push", remote, ref)
	return err
}

// CreateTag creates an annotated tag.
func (c *DefaultClient) CreateTag(ctx context.Context, name, message string) error {
	_, err := c.runner.Run(ctx, "git", "tag", "-a", name, "-m", message)
	return err
}

// LogArgs builds the git log arguments for the range since..HEAD.
func LogArgs(since string) []string {
	args := []string{"log", LogFormat, "--no-merges"}
	if since != "" {
		args = append(args, since+"..HEAD")
	}
	return args
}

// SplitLines splits git output into lines, tolerating CRLF endings.
func SplitLines(output string) []string {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	return strings.Split(output, "\n")
}

// ValidateRefName rejects names git would refuse for a remote, branch or tag.
func ValidateRefName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.ContainsAny(name, " ~^:?*[\\") || strings.Contains(name, "..") ||
		strings.HasPrefix(name, "-") || strings.HasSuffix(name, ".lock") {
		return fmt.Errorf("%q is not a valid git ref name", name)
	}
	return nil
}
