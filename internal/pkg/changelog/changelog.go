// Package changelog renders release sections and inserts them into a
// newest-first markdown changelog.
package changelog

import (
	"fmt"
	"strings"
	"time"

	"github.com/appversion/appversion/internal/pkg/commits"
)

// DateLayout is the format of the release date in a section header.
const DateLayout = "2006-01-02"

// Section holds the metadata of one release section.
type Section struct {
	NewVersion string
	// OldVersion is empty for the first release.
	OldVersion string
	// OriginURL is the repository URL used for the compare link. May be empty.
	OriginURL string
	Date      time.Time
}

// IsFirst reports whether the section is the first one ever written.
func (s Section) IsFirst() bool {
	return s.OldVersion == ""
}

// CompareLink returns the header link: empty for the first release,
// otherwise {origin}/compare/{old}...{new}.
func (s Section) CompareLink() string {
	if s.IsFirst() {
		return ""
	}
	return fmt.Sprintf("%s/compare/%s...%s", s.OriginURL, s.OldVersion, s.NewVersion)
}

// Header returns the section header line without its newline.
func (s Section) Header() string {
	return fmt.Sprintf("## [%s - %s](%s)", s.NewVersion, s.Date.Format(DateLayout), s.CompareLink())
}

const sectionMarker = "## ["

// HeaderPrefix returns the prefix that identifies the section of version v.
func HeaderPrefix(v string) string {
	return sectionMarker + v
}

// Render returns the markdown of one section: header, body and a trailing
// blank line. The output depends only on its inputs.
func Render(result *commits.Result, s Section, mode commits.Mode) string {
	var sb strings.Builder

	sb.WriteString(s.Header())
	sb.WriteString("\n")
	sb.WriteString(RenderBody(result, mode))
	sb.WriteString("\n")

	return sb.String()
}

// RenderBody renders the commit list of a section.
func RenderBody(result *commits.Result, mode commits.Mode) string {
	if result == nil {
		return ""
	}

	var sb strings.Builder

	if mode != commits.ModeGroup {
		sb.WriteString("\n")
		for _, c := range result.Commits {
			writeItem(&sb, c)
		}
		return sb.String()
	}

	for _, g := range result.Groups {
		if len(g.Commits) == 0 {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString("### " + string(g.Category) + "\n")
		sb.WriteString("\n")
		for _, c := range g.Commits {
			writeItem(&sb, c)
		}
	}

	return sb.String()
}

func writeItem(sb *strings.Builder, commit string) {
	sb.WriteString("- ")
	sb.WriteString(commit)
	sb.WriteString("\n")
}

// Insert places a rendered section into document, newest first.
//
// For the first release the section is appended to the end of the document,
// separated by a blank line. Otherwise it is inserted right before the
// header of oldVersion, which stays intact as the start of the previous
// section. When that header is absent, as after a release made without a
// changelog or a recreated file, the section goes before the newest section
// present, or is appended when there is none.
func Insert(document, section, oldVersion string) string {
	if oldVersion == "" {
		return document + "\n" + section
	}

	idx := strings.Index(document, HeaderPrefix(oldVersion))
	if idx < 0 {
		idx = firstSection(document)
	}
	if idx < 0 {
		return document + "\n" + section
	}
	return document[:idx] + section + document[idx:]
}

// firstSection returns the offset of the first section header line, or -1.
func firstSection(document string) int {
	if strings.HasPrefix(document, sectionMarker) {
		return 0
	}
	idx := strings.Index(document, "\n"+sectionMarker)
	if idx < 0 {
		return -1
	}
	return idx + 1
}
