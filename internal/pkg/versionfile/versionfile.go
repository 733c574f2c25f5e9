// Package versionfile reads and rewrites the version marker stored in a
// project configuration file.
package versionfile

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	apperrors "github.com/appversion/appversion/internal/pkg/errors"
)

const (
	// Sentinel is the value written when the field is first created. A field
	// holding it means no release has been made yet.
	Sentinel = "alpha"

	// DefaultPath is the configuration file holding the version.
	DefaultPath = "config/app.php"
	// DefaultAnchor is the line the version field is inserted after.
	DefaultAnchor = "'name' => env('APP_NAME', 'Laravel'),"
	// DefaultLine is the layout of the version line; %s is the value.
	DefaultLine = "'version' => '%s',"

	// fieldIndent prefixes an inserted version line.
	fieldIndent = "    "
)

// Editor manipulates the version marker.
type Editor interface {
	// EnsureVersionFieldExists inserts the field with the sentinel value
	// after the anchor line when it is missing. It reports whether the file
	// was changed.
	EnsureVersionFieldExists() (bool, error)
	// CurrentVersion returns the stored version, or "" when none was released.
	CurrentVersion() (string, error)
	// SetVersion replaces old (the sentinel when empty) with new inside the
	// version line.
	SetVersion(old, new string) error
	Path() string
}

// FileEditor implements Editor on a text file.
type FileEditor struct {
	fs     afero.Fs
	path   string
	anchor string
	line   string
	field  *regexp.Regexp
	// key matches a line declaring the field, whatever its value looks like.
	key *regexp.Regexp
}

// NewFileEditor creates a FileEditor. line must contain exactly one %s.
func NewFileEditor(fs afero.Fs, path, anchor, line string) (*FileEditor, error) {
	if path == "" {
		path = DefaultPath
	}
	if anchor == "" {
		anchor = DefaultAnchor
	}
	if line == "" {
		line = DefaultLine
	}
	if strings.Count(line, "%s") != 1 {
		return nil, apperrors.NewInvalidConfigError(fmt.Sprintf("version line %q must contain exactly one %%s", line))
	}

	prefix, suffix, _ := strings.Cut(line, "%s")
	field, err := regexp.Compile(regexp.QuoteMeta(prefix) + `([^\n]*?)` + regexp.QuoteMeta(suffix))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidConfig, "invalid version line")
	}

	// 'version' => '%s', declares the field with 'version' =>
	keyPrefix := strings.TrimRight(prefix, "'\"` \t")
	if keyPrefix == "" {
		keyPrefix = prefix
	}
	key, err := regexp.Compile(`(?m)^[ \t]*` + regexp.QuoteMeta(keyPrefix))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidConfig, "invalid version line")
	}

	return &FileEditor{
		fs:     fs,
		path:   path,
		anchor: anchor,
		line:   line,
		field:  field,
		key:    key,
	}, nil
}

// Path returns the version file path.
func (e *FileEditor) Path() string {
	return e.path
}

// Line renders the version line for value.
func (e *FileEditor) Line(value string) string {
	return fmt.Sprintf(e.line, value)
}

// EnsureVersionFieldExists inserts the version line after the anchor. A
// field declared in any form counts as present.
func (e *FileEditor) EnsureVersionFieldExists() (bool, error) {
	text, err := e.read()
	if err != nil {
		return false, err
	}

	if e.field.MatchString(text) || e.key.MatchString(text) {
		return false, nil
	}

	idx := strings.Index(text, e.anchor)
	if idx < 0 {
		return false, apperrors.NewMissingMarkerError(e.path, e.anchor)
	}
	end := idx + len(e.anchor)

	updated := text[:end] + "\n\n" + fieldIndent + e.Line(Sentinel) + text[end:]
	if err := e.write(updated); err != nil {
		return false, err
	}
	return true, nil
}

// CurrentVersion returns the stored value, mapping the sentinel to "". A
// field that exists but does not follow the version line layout is a
// missing marker.
func (e *FileEditor) CurrentVersion() (string, error) {
	text, err := e.read()
	if err != nil {
		return "", err
	}

	m := e.field.FindStringSubmatch(text)
	if m == nil {
		if e.key.MatchString(text) {
			return "", e.layoutError()
		}
		return "", nil
	}
	if m[1] == Sentinel {
		return "", nil
	}
	return m[1], nil
}

func (e *FileEditor) layoutError() error {
	return apperrors.NewMissingMarkerError(e.path, e.Line("...")).
		WithSuggestion(fmt.Sprintf("Store the version as %s or set version.line to match %s", e.Line("x.y.z"), e.path))
}

// SetVersion rewrites the value of the version line holding old.
// Text outside that line is never touched.
func (e *FileEditor) SetVersion(old, new string) error {
	if old == "" {
		old = Sentinel
	}

	text, err := e.read()
	if err != nil {
		return err
	}

	for _, loc := range e.field.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if text[start:end] != old {
			continue
		}
		return e.write(text[:start] + new + text[end:])
	}

	if !e.field.MatchString(text) && e.key.MatchString(text) {
		return e.layoutError()
	}
	return apperrors.NewMissingMarkerError(e.path, e.Line(old))
}

func (e *FileEditor) read() (string, error) {
	data, err := afero.ReadFile(e.fs, e.path)
	if err != nil {
		return "", apperrors.NewFileSystemError(err, e.path)
	}
	return string(data), nil
}

func (e *FileEditor) write(text string) error {
	mode := os.FileMode(0644)
	if info, err := e.fs.Stat(e.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := afero.WriteFile(e.fs, e.path, []byte(text), mode); err != nil {
		return apperrors.NewFileSystemError(err, e.path)
	}
	return nil
}
