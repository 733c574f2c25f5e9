// Package manifest reads project metadata from the package manifest.
package manifest

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	apperrors "github.com/appversion/appversion/internal/pkg/errors"
)

const (
	// DefaultFileName is the manifest read when none is configured.
	DefaultFileName = "composer.json"
	// SourceKey is the manifest key holding the repository URL.
	SourceKey = "support.source"
)

// Reader looks up the repository origin URL.
type Reader interface {
	// OriginURL returns the source repository URL, or "" when the manifest
	// or the key is absent.
	OriginURL() (string, error)
}

// FileReader implements Reader on a JSON manifest.
type FileReader struct {
	fs   afero.Fs
	path string
}

// NewFileReader creates a FileReader for path on fs.
func NewFileReader(fs afero.Fs, path string) *FileReader {
	if path == "" {
		path = DefaultFileName
	}
	return &FileReader{fs: fs, path: path}
}

// OriginURL reads support.source. A trailing slash is trimmed so that
// compare links never contain "//compare".
func (r *FileReader) OriginURL() (string, error) {
	exists, err := afero.Exists(r.fs, r.path)
	if err != nil {
		return "", apperrors.NewFileSystemError(err, r.path)
	}
	if !exists {
		apperrors.Debug("manifest %s not found, compare links will have no origin", r.path)
		return "", nil
	}

	v := viper.New()
	v.SetFs(r.fs)
	v.SetConfigFile(r.path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrInvalidConfig, "failed to parse manifest").
			WithContext("path", r.path)
	}

	return strings.TrimRight(strings.TrimSpace(v.GetString(SourceKey)), "/"), nil
}
