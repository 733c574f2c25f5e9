// Package history keeps a journal of completed releases. One journal is
// shared by every project on the machine; entries carry their project
// directory so that each project can read back its own releases.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// DefaultMaxEntries bounds the journal when no limit is configured.
const DefaultMaxEntries = 500

// Entry records one release.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Project    string    `json:"project"`
	OldVersion string    `json:"old_version"`
	NewVersion string    `json:"new_version"`
	Mode       string    `json:"mode"`
	Platform   string    `json:"platform,omitempty"`
	// CommitCount is the number of changelog-visible commits in the release.
	CommitCount int    `json:"commit_count"`
	Remote      string `json:"remote"`
	Branch      string `json:"branch"`
	Tagged      bool   `json:"tagged"`
}

// Filter selects entries. The zero value selects everything.
type Filter struct {
	// Project keeps the entries of one project directory.
	Project string
	// Limit keeps the most recent entries when positive.
	Limit int
}

func (f Filter) match(e *Entry) bool {
	return f.Project == "" || e.Project == f.Project
}

// Manager reads and writes the release journal.
type Manager interface {
	Save(entry *Entry) error
	// List returns the selected entries, oldest first.
	List(filter Filter) ([]*Entry, error)
	// Clear drops the entries of project, or all entries when project is "".
	Clear(project string) error
}

// document is the on-disk layout of the journal.
type document struct {
	Releases []*Entry `json:"releases"`
}

// Journal implements Manager on a JSON file.
type Journal struct {
	fs         afero.Fs
	path       string
	maxEntries int
	now        func() time.Time

	mu sync.Mutex
}

// NewJournal creates a Journal stored at path. A non-positive maxEntries
// means DefaultMaxEntries.
func NewJournal(fs afero.Fs, path string, maxEntries int) *Journal {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Journal{
		fs:         fs,
		path:       path,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Save appends entry, filling in its ID and timestamp when unset. Once the
// journal is full the oldest releases of any project are dropped.
func (j *Journal) Save(entry *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.now()
	}

	releases, err := j.load()
	if err != nil {
		return err
	}

	releases = append(releases, entry)
	if over := len(releases) - j.maxEntries; over > 0 {
		releases = releases[over:]
	}

	return j.store(releases)
}

// List returns the entries selected by filter, oldest first.
func (j *Journal) List(filter Filter) ([]*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	releases, err := j.load()
	if err != nil {
		return nil, err
	}

	selected := make([]*Entry, 0, len(releases))
	for _, e := range releases {
		if filter.match(e) {
			selected = append(selected, e)
		}
	}

	if filter.Limit > 0 && len(selected) > filter.Limit {
		selected = selected[len(selected)-filter.Limit:]
	}
	return selected, nil
}

// Clear drops the entries of project, or every entry when project is "".
func (j *Journal) Clear(project string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if project == "" {
		return j.store(nil)
	}

	releases, err := j.load()
	if err != nil {
		return err
	}

	kept := releases[:0]
	for _, e := range releases {
		if e.Project != project {
			kept = append(kept, e)
		}
	}
	return j.store(kept)
}

// load reads the journal. A missing file is an empty journal.
func (j *Journal) load() ([]*Entry, error) {
	data, err := afero.ReadFile(j.fs, j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history %s: %w", j.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("history %s is corrupt: %w", j.path, err)
	}
	return doc.Releases, nil
}

// store replaces the journal through a temporary file. The file is
// readable by its owner only.
func (j *Journal) store(releases []*Entry) error {
	if releases == nil {
		releases = []*Entry{}
	}

	data, err := json.MarshalIndent(document{Releases: releases}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := j.fs.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp := j.path + ".tmp"
	if err := afero.WriteFile(j.fs, tmp, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := j.fs.Rename(tmp, j.path); err != nil {
		_ = j.fs.Remove(tmp)
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
