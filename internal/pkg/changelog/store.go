package changelog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	apperrors "github.com/appversion/appversion/internal/pkg/errors"
)

// DefaultFileName is the changelog file written at the project root.
const DefaultFileName = "CHANGELOG.md"

//go:embed changelog.stub
var defaultStub string

// Stub returns the built-in template a new changelog is seeded from.
func Stub() string {
	return defaultStub
}

// Store reads and writes the changelog document.
type Store interface {
	// EnsureExists seeds the document from the template if it is missing.
	// It reports whether the file was created.
	EnsureExists() (bool, error)
	Read() (string, error)
	// Apply inserts section into the document and writes it back.
	Apply(section string, oldVersion string) error
	Path() string
}

// FileStore implements Store on an afero filesystem.
type FileStore struct {
	fs           afero.Fs
	path         string
	templatePath string
}

// NewFileStore creates a FileStore for path. When templatePath is empty the
// embedded stub is used to seed a missing changelog.
func NewFileStore(fs afero.Fs, path, templatePath string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{
		fs:           fs,
		path:         path,
		templatePath: templatePath,
	}
}

// Path returns the changelog path.
func (s *FileStore) Path() string {
	return s.path
}

// EnsureExists creates the changelog from the template when absent.
func (s *FileStore) EnsureExists() (bool, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return false, apperrors.NewFileSystemError(err, s.path)
	}
	if exists {
		return false, nil
	}

	template, err := s.template()
	if err != nil {
		return false, err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return false, apperrors.NewFileSystemError(err, dir)
		}
	}

	if err := afero.WriteFile(s.fs, s.path, []byte(template), 0644); err != nil {
		return false, apperrors.NewFileSystemError(err, s.path)
	}
	return true, nil
}

// template returns the seed content of a new changelog.
func (s *FileStore) template() (string, error) {
	if s.templatePath == "" {
		return defaultStub, nil
	}
	data, err := afero.ReadFile(s.fs, s.templatePath)
	if err != nil {
		return "", apperrors.NewFileSystemError(err, s.templatePath).
			WithSuggestion("Fix changelog.template in your settings or leave it empty to use the built-in stub")
	}
	return string(data), nil
}

// Read returns the current document.
func (s *FileStore) Read() (string, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return "", apperrors.NewFileSystemError(err, s.path)
	}
	return string(data), nil
}

// Apply inserts section newest first and rewrites the file.
func (s *FileStore) Apply(section string, oldVersion string) error {
	document, err := s.Read()
	if err != nil {
		return err
	}

	updated := Insert(document, section, oldVersion)

	mode := os.FileMode(0644)
	if info, err := s.fs.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	if err := afero.WriteFile(s.fs, s.path, []byte(updated), mode); err != nil {
		return fmt.Errorf("failed to write changelog: %w", apperrors.NewFileSystemError(err, s.path))
	}
	return nil
}
