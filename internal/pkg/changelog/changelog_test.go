package changelog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appversion/appversion/internal/pkg/commits"
)

var releaseDate = time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)

func TestSection_Header(t *testing.T) {
	tests := []struct {
		name     string
		section  Section
		expected string
	}{
		{
			name:     "first release without origin",
			section:  Section{NewVersion: "0.1.0", Date: releaseDate},
			expected: "## [0.1.0 - 2024-03-05]()",
		},
		{
			name:     "first release ignores origin",
			section:  Section{NewVersion: "0.1.0", OriginURL: "https://github.com/acme/app", Date: releaseDate},
			expected: "## [0.1.0 - 2024-03-05]()",
		},
		{
			name:     "update with origin",
			section:  Section{NewVersion: "1.1.0", OldVersion: "1.0.0", OriginURL: "https://github.com/acme/app", Date: releaseDate},
			expected: "## [1.1.0 - 2024-03-05](https://github.com/acme/app/compare/1.0.0...1.1.0)",
		},
		{
			name:     "update without origin",
			section:  Section{NewVersion: "1.1.0", OldVersion: "1.0.0", Date: releaseDate},
			expected: "## [1.1.0 - 2024-03-05](/compare/1.0.0...1.1.0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.section.Header())
		})
	}
}

func TestRender_ScenarioA(t *testing.T) {
	result := commits.Build([]string{"fix bug", "add feature", "remove old code"}, nil, commits.ModeGroup)
	section := Section{NewVersion: "1.1.0", OldVersion: "1.0.0", OriginURL: "https://github.com/acme/app", Date: releaseDate}

	got := Render(result, section, commits.ModeGroup)

	expected := "## [1.1.0 - 2024-03-05](https://github.com/acme/app/compare/1.0.0...1.1.0)\n" +
		"\n### Added\n\n- add feature\n" +
		"\n### Fixed\n\n- fix bug\n" +
		"\n### Removed\n\n- remove old code\n" +
		"\n"
	assert.Equal(t, expected, got)
	assert.NotContains(t, got, "### Updated")
}

func TestRender_Simple(t *testing.T) {
	result := commits.Build([]string{"fix bug", "add feature"}, nil, commits.ModeSimple)
	section := Section{NewVersion: "1.1.0", OldVersion: "1.0.0", OriginURL: "https://example.com/r", Date: releaseDate}

	got := Render(result, section, commits.ModeSimple)

	expected := "## [1.1.0 - 2024-03-05](https://example.com/r/compare/1.0.0...1.1.0)\n" +
		"\n- fix bug\n- add feature\n" +
		"\n"
	assert.Equal(t, expected, got)
}

func TestRender_ScenarioC(t *testing.T) {
	today := time.Now()
	result := commits.Build([]string{"initial import"}, nil, commits.ModeSimple)

	got := Render(result, Section{NewVersion: "0.1.0", Date: today}, commits.ModeSimple)

	firstLine := strings.SplitN(got, "\n", 2)[0]
	assert.Equal(t, "## [0.1.0 - "+today.Format("2006-01-02")+"]()", firstLine)
}

func TestRender_Idempotent(t *testing.T) {
	result := commits.Build([]string{"update deps", "fix crash", "add api"}, nil, commits.ModeGroup)
	section := Section{NewVersion: "2.0.0", OldVersion: "1.9.0", OriginURL: "https://x.test", Date: releaseDate}

	first := Render(result, section, commits.ModeGroup)
	second := Render(result, section, commits.ModeGroup)

	assert.Equal(t, first, second)
}

func TestRenderBody_NilResult(t *testing.T) {
	assert.Equal(t, "", RenderBody(nil, commits.ModeGroup))
}

func TestInsert_FirstRelease(t *testing.T) {
	doc := Stub()
	section := "## [0.1.0 - 2024-03-05]()\n\n- initial import\n\n"

	got := Insert(doc, section, "")
	assert.Equal(t, doc+"\n"+section, got)
	assert.True(t, strings.HasPrefix(got, "# Changelog"))
}

func TestInsert_FirstReleaseAppendsAfterExistingSections(t *testing.T) {
	doc := "# Changelog\n\n## [legacy - 2020-01-01]()\n\n- imported\n"

	got := Insert(doc, "## [0.1.0 - 2024-03-05]()\n\n", "")
	assert.Equal(t, doc+"\n## [0.1.0 - 2024-03-05]()\n\n", got)
}

func TestInsert_RoundTrip(t *testing.T) {
	doc := "# Changelog\n\n## [1.0.0 - 2024-01-01]()\n\n- initial import\n\n"
	section := Render(
		commits.Build([]string{"fix bug"}, nil, commits.ModeSimple),
		Section{NewVersion: "1.1.0", OldVersion: "1.0.0", OriginURL: "https://x.test", Date: releaseDate},
		commits.ModeSimple,
	)

	got := Insert(doc, section, "1.0.0")

	newIdx := strings.Index(got, "## [1.1.0")
	oldIdx := strings.Index(got, "## [1.0.0")
	require.GreaterOrEqual(t, newIdx, 0)
	assert.Equal(t, newIdx+len(section), oldIdx, "old header must immediately follow the new section")
	assert.True(t, strings.HasSuffix(got, "## [1.0.0 - 2024-01-01]()\n\n- initial import\n\n"), "old section must be unchanged")
}

func TestInsert_NewestFirst(t *testing.T) {
	doc := "# Changelog\n\n## [1.0.0 - 2024-01-01]()\n\n- a\n\n"

	doc = Insert(doc, "## [1.1.0 - 2024-02-01](l)\n\n- b\n\n", "1.0.0")
	doc = Insert(doc, "## [1.2.0 - 2024-03-01](l)\n\n- c\n\n", "1.1.0")

	i12 := strings.Index(doc, "## [1.2.0")
	i11 := strings.Index(doc, "## [1.1.0")
	i10 := strings.Index(doc, "## [1.0.0")
	assert.True(t, i12 < i11 && i11 < i10, "sections must be newest first:\n%s", doc)
}

func TestInsert_MissingHeaderAppendsAfterStub(t *testing.T) {
	doc := Stub()
	section := "## [1.1.0 - 2024-03-05](https://x.test/compare/1.0.0...1.1.0)\n\n- b\n\n"

	got := Insert(doc, section, "1.0.0")
	assert.Equal(t, doc+"\n"+section, got)
}

func TestInsert_MissingHeaderGoesBeforeNewestSection(t *testing.T) {
	// 0.9.0 was released without a changelog; 0.8.0 is the newest section.
	doc := "# Changelog\n\n## [0.8.0 - 2024-01-01]()\n\n- a\n\n"

	got := Insert(doc, "## [1.0.0 - 2024-03-05](l)\n\n- b\n\n", "0.9.0")
	assert.Equal(t, "# Changelog\n\n## [1.0.0 - 2024-03-05](l)\n\n- b\n\n## [0.8.0 - 2024-01-01]()\n\n- a\n\n", got)
}

func TestInsert_SectionAtDocumentStart(t *testing.T) {
	doc := "## [0.8.0 - 2024-01-01]()\n\n- a\n"

	got := Insert(doc, "## [1.0.0 - 2024-03-05](l)\n\n", "0.9.0")
	assert.True(t, strings.HasPrefix(got, "## [1.0.0"))
	assert.True(t, strings.HasSuffix(got, doc))
}
