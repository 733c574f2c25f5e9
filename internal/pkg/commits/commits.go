// Package commits turns git history into the flat or grouped commit lists
// that feed a changelog section.
package commits

import (
	"context"
	"fmt"
	"strings"

	"github.com/appversion/appversion/internal/pkg/git"
)

// Mode selects how commits are rendered in the changelog.
type Mode string

const (
	// ModeNone disables changelog generation.
	ModeNone Mode = "none"
	// ModeSimple renders a flat list.
	ModeSimple Mode = "simple"
	// ModeGroup buckets commits into Added, Updated, Fixed and Removed.
	ModeGroup Mode = "group"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModeSimple, ModeGroup:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown changelog mode %q (expected none, simple or group)", s)
	}
}

// Category is one of the four fixed changelog groups.
type Category string

const (
	Added   Category = "Added"
	Updated Category = "Updated"
	Fixed   Category = "Fixed"
	Removed Category = "Removed"
)

// Categories lists the groups in output order.
var Categories = []Category{Added, Updated, Fixed, Removed}

// rule maps a set of keywords to a category.
type rule struct {
	category Category
	keywords []string
}

// rules are evaluated in priority order; the first match wins.
var rules = []rule{
	{Removed, []string{"remove", "removed", "delete", "deleted"}},
	{Fixed, []string{"fix", "fixed", "repare", "repared"}},
	{Updated, []string{"update", "updated", "change", "changed"}},
}

// Group is a category with its commits in source order.
type Group struct {
	Category Category
	Commits  []string
}

// Result is the outcome of classification. Exactly one of Commits (simple
// mode) or Groups (group mode) is populated.
type Result struct {
	Mode    Mode
	Commits []string
	Groups  []Group
}

// Empty reports whether no commit survived filtering.
func (r *Result) Empty() bool {
	return r == nil || r.Count() == 0
}

// Count returns the number of commits in the result.
func (r *Result) Count() int {
	if r == nil {
		return 0
	}
	n := len(r.Commits)
	for _, g := range r.Groups {
		n += len(g.Commits)
	}
	return n
}

// Parse splits raw git log output into trimmed subjects. Surrounding
// whitespace and the quotes added by the log format are removed.
func Parse(output string) []string {
	lines := git.SplitLines(output)
	subjects := make([]string, 0, len(lines))
	for _, line := range lines {
		subjects = append(subjects, strings.Trim(line, " \"\t\n\r\x00\x0B"))
	}
	return subjects
}

// Filter drops subjects equal to a hidden entry and empty subjects.
// Matching is exact, never substring.
func Filter(subjects []string, hidden []string) []string {
	skip := make(map[string]struct{}, len(hidden))
	for _, h := range hidden {
		skip[h] = struct{}{}
	}

	kept := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if s == "" {
			continue
		}
		if _, ok := skip[s]; ok {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// Categorize returns the category of a single subject. Matching is a
// case-sensitive substring test.
func Categorize(subject string) Category {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(subject, kw) {
				return r.category
			}
		}
	}
	return Added
}

// GroupCommits buckets subjects by category, keeping source order inside
// each bucket and omitting empty buckets.
func GroupCommits(subjects []string) []Group {
	buckets := make(map[Category][]string, len(Categories))
	for _, s := range subjects {
		c := Categorize(s)
		buckets[c] = append(buckets[c], s)
	}

	groups := make([]Group, 0, len(Categories))
	for _, c := range Categories {
		if len(buckets[c]) == 0 {
			continue
		}
		groups = append(groups, Group{Category: c, Commits: buckets[c]})
	}
	return groups
}

// Build applies filtering and the mode to parsed subjects.
func Build(subjects []string, hidden []string, mode Mode) *Result {
	kept := Filter(subjects, hidden)
	result := &Result{Mode: mode}
	if len(kept) == 0 {
		return result
	}

	if mode == ModeGroup {
		result.Groups = GroupCommits(kept)
	} else {
		result.Commits = kept
	}
	return result
}

// Classifier gathers commits from git history.
type Classifier struct {
	git git.Client
}

// NewClassifier creates a Classifier reading history through client.
func NewClassifier(client git.Client) *Classifier {
	return &Classifier{git: client}
}

// Classify reads the subjects of non-merge commits since oldVersion (or
// the whole history when oldVersion is empty) and classifies them.
// An empty result is not an error; callers check Result.Empty.
func (c *Classifier) Classify(ctx context.Context, oldVersion string, hidden []string, mode Mode) (*Result, error) {
	output, err := c.git.LogSubjects(ctx, oldVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit history: %w", err)
	}
	return Build(Parse(output), hidden, mode), nil
}
