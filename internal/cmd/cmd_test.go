package cmd

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appversion/appversion/internal/pkg/config"
	apperrors "github.com/appversion/appversion/internal/pkg/errors"
	"github.com/appversion/appversion/internal/pkg/history"
)

const laravelAppConfig = `<?php

return [

    'name' => env('APP_NAME', 'Laravel'),

    'env' => env('APP_ENV', 'production'),

];
`

const composerJSON = `{
    "name": "acme/shop",
    "support": {
        "source": "https://github.com/acme/shop"
    }
}
`

// clearAppversionEnv unsets every variable the settings manager reads so the
// host environment cannot leak into tests.
func clearAppversionEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if name != "APP_ENV" && !strings.HasPrefix(name, config.EnvPrefix+"_") {
			continue
		}
		value := os.Getenv(name)
		os.Unsetenv(name)
		t.Cleanup(func() { os.Setenv(name, value) })
	}
}

// localEnv marks the test as running on a development machine and sends
// the release journal to a temporary file, which it returns.
func localEnv(t *testing.T) string {
	t.Helper()
	clearAppversionEnv(t)
	historyPath := filepath.Join(t.TempDir(), "history.json")
	t.Setenv("APP_ENV", "local")
	t.Setenv("APPVERSION_HISTORY_FILE_PATH", historyPath)
	return historyPath
}

// runGit runs a git command in the specified directory.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
	return string(output)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func commitFile(t *testing.T, dir, name, content, subject string) {
	t.Helper()
	writeFile(t, dir, name, content)
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", subject)
}

// setupProject creates a Laravel-like project on branch main with a bare
// origin remote. It returns the project and remote directories.
func setupProject(t *testing.T) (string, string) {
	t.Helper()

	remoteDir := t.TempDir()
	runGit(t, remoteDir, "init", "--bare")

	dir := t.TempDir()
	runGit(t, dir, "init")
	runGit(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
	runGit(t, dir, "config", "commit.gpgsign", "false")
	runGit(t, dir, "config", "tag.gpgsign", "false")
	runGit(t, dir, "remote", "add", "origin", remoteDir)

	writeFile(t, dir, "composer.json", composerJSON)
	runGit(t, dir, "add", "composer.json")
	commitFile(t, dir, "config/app.php", laravelAppConfig, "Add home page")
	commitFile(t, dir, "README.md", "# Shop\n", "wip")

	return dir, remoteDir
}

// execute runs the root command with args and returns its output. Standard
// input is never a terminal.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd("test", "none", "unknown")
	root.SetIn(&bytes.Buffer{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRelease_FirstThenSecond(t *testing.T) {
	historyPath := localEnv(t)
	dir, remoteDir := setupProject(t)
	today := time.Now().Format("2006-01-02")

	_, err := execute(t, "0.1.0", "--yes", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, readFile(t, dir, "config/app.php"), "'version' => '0.1.0',")

	changelog := readFile(t, dir, "CHANGELOG.md")
	assert.True(t, strings.HasPrefix(changelog, "# Changelog\n"))
	assert.Contains(t, changelog, "## [0.1.0 - "+today+"]()\n\n### Added\n\n- Add home page\n\n")
	assert.NotContains(t, changelog, "- wip")

	assert.Equal(t, "Update changelog and app version", runGit(t, remoteDir, "log", "-1", "--pretty=format:%s", "main"))
	assert.Equal(t, "tag", strings.TrimSpace(runGit(t, dir, "cat-file", "-t", "0.1.0")))
	assert.Contains(t, runGit(t, remoteDir, "tag", "--list"), "0.1.0")

	commitFile(t, dir, "routes/api.php", "<?php\n", "remove legacy endpoint")

	_, err = execute(t, "0.2.0", "--yes", "--dir", dir, "--changelog", "simple")
	require.NoError(t, err)

	changelog = readFile(t, dir, "CHANGELOG.md")
	second := "## [0.2.0 - " + today + "](https://github.com/acme/shop/compare/0.1.0...0.2.0)\n\n- remove legacy endpoint\n\n"
	assert.Contains(t, changelog, second+"## [0.1.0 - ")

	content := readFile(t, dir, "config/app.php")
	assert.Contains(t, content, "'version' => '0.2.0',")
	assert.NotContains(t, content, "'version' => '0.1.0',")
	assert.Contains(t, runGit(t, remoteDir, "tag", "--list"), "0.2.0")

	entries, err := history.NewJournal(afero.NewOsFs(), historyPath, 0).List(history.Filter{Project: dir})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "0.1.0", entries[1].OldVersion)
	assert.Equal(t, "0.2.0", entries[1].NewVersion)
	assert.Equal(t, "simple", entries[1].Mode)
}

func TestRelease_VersionOnly(t *testing.T) {
	localEnv(t)
	dir, remoteDir := setupProject(t)

	_, err := execute(t, "1.0.0", "--yes", "--dir", dir, "--changelog", "none")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "CHANGELOG.md"))
	assert.True(t, os.IsNotExist(statErr), "no changelog is written")
	assert.Equal(t, "Update app version", runGit(t, remoteDir, "log", "-1", "--pretty=format:%s", "main"))
}

func TestRelease_NoCommits(t *testing.T) {
	localEnv(t)
	dir, _ := setupProject(t)

	_, err := execute(t, "0.1.0", "--yes", "--dir", dir)
	require.NoError(t, err)
	before := readFile(t, dir, "config/app.php")

	_, err = execute(t, "0.1.1", "--yes", "--dir", dir)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNoCommits))
	assert.Equal(t, 1, apperrors.GetExitCode(err))
	assert.Equal(t, before, readFile(t, dir, "config/app.php"))
}

func TestRelease_Unauthorized(t *testing.T) {
	localEnv(t)
	dir, _ := setupProject(t)

	tests := []struct {
		name    string
		env     string
		args    []string
		message string
	}{
		{"production", "production", nil, "This command can only be used in local environment."},
		{"staging in french", "staging", []string{"--lang", "fr"}, "Cette commande ne peut être utilisée qu'en environnement local."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)

			args := append([]string{"1.0.0", "--yes", "--dir", dir}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrUnauthorized))
			assert.Equal(t, tt.message, apperrors.GetAppError(err).Message)
			assert.Equal(t, 1, apperrors.GetExitCode(err))

			assert.Equal(t, laravelAppConfig, readFile(t, dir, "config/app.php"))
		})
	}
}

func TestRelease_ConfirmationWithoutTerminal(t *testing.T) {
	localEnv(t)
	dir, remoteDir := setupProject(t)

	_, err := execute(t, "0.1.0", "--dir", dir)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArguments))
	assert.Equal(t, 1, apperrors.GetExitCode(err))
	assert.Contains(t, apperrors.FormatError(err), "--yes")

	assert.Equal(t, laravelAppConfig, readFile(t, dir, "config/app.php"))
	_, statErr := os.Stat(filepath.Join(dir, "CHANGELOG.md"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, runGit(t, remoteDir, "tag", "--list"))
}

func TestRelease_EnvFromSettingsFile(t *testing.T) {
	clearAppversionEnv(t)
	t.Setenv("APPVERSION_HISTORY_FILE_PATH", filepath.Join(t.TempDir(), "history.json"))
	dir, _ := setupProject(t)
	writeFile(t, dir, config.DefaultConfigFileName, "app:\n  env: local\n")

	_, err := execute(t, "0.1.0", "--yes", "--dir", dir, "--changelog", "none")
	require.NoError(t, err)
}

func TestRelease_InvalidArguments(t *testing.T) {
	localEnv(t)
	dir, _ := setupProject(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no version", []string{"--dir", dir}},
		{"two versions", []string{"1.0.0", "1.0.1", "--dir", dir}},
		{"bad changelog", []string{"1.0.0", "--dir", dir, "--changelog", "fancy"}},
		{"bad platform", []string{"1.0.0", "--dir", dir, "--platform", "sourcehut"}},
		{"bad tag name", []string{"1.0 beta", "--yes", "--dir", dir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArguments), "got %v", err)
		})
	}
}

func TestPreview_ReadOnly(t *testing.T) {
	localEnv(t)
	dir, _ := setupProject(t)

	out, err := execute(t, "preview", "0.1.0", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "1 commits since the first commit")
	assert.Contains(t, out, "### Added\n\n- Add home page\n")
	assert.Equal(t, laravelAppConfig, readFile(t, dir, "config/app.php"))
	_, statErr := os.Stat(filepath.Join(dir, "CHANGELOG.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestConfigCommands(t *testing.T) {
	clearAppversionEnv(t)
	dir := t.TempDir()

	out, err := execute(t, "config", "init", "--defaults", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created at")
	assert.FileExists(t, filepath.Join(dir, config.DefaultConfigFileName))

	_, err = execute(t, "config", "init", "--defaults", "--dir", dir)
	require.Error(t, err, "init refuses to overwrite")

	_, err = execute(t, "config", "set", "changelog.mode", "simple", "--dir", dir)
	require.NoError(t, err)

	_, err = execute(t, "config", "set", "changelog.mode", "fancy", "--dir", dir)
	require.Error(t, err)

	out, err = execute(t, "config", "get", "changelog.mode", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "simple\n", out)

	out, err = execute(t, "config", "list", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "changelog:\n")
	assert.Contains(t, out, "  mode: simple\n")
}

func TestConfigSet_RequiresFile(t *testing.T) {
	clearAppversionEnv(t)

	_, err := execute(t, "config", "set", "git.branch", "develop", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config init")
}

func TestConfigInit_KeepsShellEnvironmentOut(t *testing.T) {
	clearAppversionEnv(t)
	dir := t.TempDir()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APPVERSION_HISTORY_FILE_PATH", "/home/dev/.appversion/history.json")
	t.Setenv("APPVERSION_GIT_BRANCH", "develop")

	_, err := execute(t, "config", "init", "--defaults", "--dir", dir)
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "changelog.mode", "simple", "--dir", dir)
	require.NoError(t, err)

	content := readFile(t, dir, config.DefaultConfigFileName)
	assert.NotContains(t, content, "local")
	assert.NotContains(t, content, "file_path")
	assert.NotContains(t, content, "develop")
	assert.Contains(t, content, "mode: simple")

	// A deployed checkout has no APP_ENV in its process environment.
	clearAppversionEnv(t)
	out, err := execute(t, "config", "get", "app.env", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "production\n", out)

	_, err = execute(t, "1.0.0", "--yes", "--dir", dir)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrUnauthorized))
}

func TestHistoryCommands(t *testing.T) {
	historyPath := localEnv(t)
	dir := t.TempDir()
	other := t.TempDir()

	journal := history.NewJournal(afero.NewOsFs(), historyPath, 0)
	require.NoError(t, journal.Save(&history.Entry{Project: dir, NewVersion: "1.0.0", Mode: "group", CommitCount: 3, Remote: "origin", Branch: "main", Tagged: true}))
	require.NoError(t, journal.Save(&history.Entry{Project: other, NewVersion: "3.0.0", Mode: "none", Remote: "origin", Branch: "main", Tagged: true}))
	require.NoError(t, journal.Save(&history.Entry{Project: dir, OldVersion: "1.0.0", NewVersion: "1.1.0", Mode: "simple", CommitCount: 1, Remote: "origin", Branch: "main", Tagged: true}))

	out, err := execute(t, "history", "--limit", "1", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 1 most recent releases")
	assert.Contains(t, out, "1.0.0 -> 1.1.0 (tagged)")
	assert.NotContains(t, out, "(first release)")

	out, err = execute(t, "history", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "(first release) -> 1.0.0")
	assert.NotContains(t, out, "3.0.0", "other projects are hidden")

	out, err = execute(t, "history", "--all", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "(first release) -> 3.0.0")

	out, err = execute(t, "history", "clear", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared successfully.")

	out, err = execute(t, "history", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No history entries found.")

	out, err = execute(t, "history", "--dir", other)
	require.NoError(t, err)
	assert.Contains(t, out, "3.0.0", "clear only drops the current project")

	_, err = execute(t, "history", "clear", "--all", "--dir", dir)
	require.NoError(t, err)
	entries, err := journal.List(history.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistory_Disabled(t *testing.T) {
	localEnv(t)
	t.Setenv("APPVERSION_HISTORY_ENABLED", "false")

	out, err := execute(t, "history", "--dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "History is disabled.")
}
