package errors

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(verbose bool) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&buf, verbose)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC) }
	return l, &buf
}

func TestLogger_VerboseWritesEveryLevel(t *testing.T) {
	l, buf := newTestLogger(true)

	l.Error("push rejected")
	l.Warn("failed to save history: %s", "disk full")
	l.Info("release 1.1.0")
	l.Debug("release: %s -> %s", "start", "version-ensured")

	assert.Equal(t,
		"[09:30:05] ERROR: push rejected\n"+
			"[09:30:05] WARN: failed to save history: disk full\n"+
			"[09:30:05] INFO: release 1.1.0\n"+
			"[09:30:05] DEBUG: release: start -> version-ensured\n",
		buf.String())
}

func TestLogger_QuietWritesErrorsOnly(t *testing.T) {
	l, buf := newTestLogger(false)

	l.Warn("failed to save history")
	l.Info("release 1.1.0")
	l.Debug("release: start -> version-ensured")
	l.LogCommand("/srv/shop", []string{"git", "push", "origin", "main"})
	assert.Empty(t, buf.String())

	l.Error("push rejected")
	assert.Equal(t, "[09:30:05] ERROR: push rejected\n", buf.String())
}

func TestLogger_LogCommand(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		argv []string
		want string
	}{
		{
			name: "commit message is quoted",
			dir:  "/srv/shop",
			argv: []string{"git", "commit", "-m", "Update changelog and app version"},
			want: `$ git commit -m "Update changelog and app version" (in /srv/shop)`,
		},
		{
			name: "log format is quoted",
			dir:  "/srv/shop",
			argv: []string{"git", "log", `--pretty=format:"%s"`, "--no-merges", "1.0.0..HEAD"},
			want: `$ git log "--pretty=format:\"%s\"" --no-merges 1.0.0..HEAD (in /srv/shop)`,
		},
		{
			name: "tag push",
			argv: []string{"git", "push", "origin", "1.1.0"},
			want: "$ git push origin 1.1.0 (in .)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newTestLogger(true)
			l.LogCommand(tt.dir, tt.argv)
			assert.Equal(t, "[09:30:05] DEBUG: "+tt.want+"\n", buf.String())
		})
	}
}

func TestLogger_LogCommandResult(t *testing.T) {
	l, buf := newTestLogger(true)

	l.LogCommandResult([]string{"git", "push", "origin", "main"}, 1, 0, 1234567*time.Microsecond)
	l.LogCommandResult([]string{"git"}, 0, 12, 0)

	assert.Equal(t,
		"[09:30:05] DEBUG: git push: exit 1, 0 bytes, 1.235s\n"+
			"[09:30:05] DEBUG: git: exit 0, 12 bytes, 0s\n",
		buf.String())
}

func TestSetVerbose(t *testing.T) {
	original := IsVerbose()
	defer SetVerbose(original)

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Debug("hidden")
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	LogCommand("/srv/shop", []string{"git", "add", "CHANGELOG.md", "config/app.php"})
	assert.Contains(t, buf.String(), "DEBUG: $ git add CHANGELOG.md config/app.php (in /srv/shop)")
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}
