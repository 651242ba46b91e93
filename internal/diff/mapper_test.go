package diff

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshally/pr-agent/pkg/models"
)

var testRefs = models.DiffRefs{BaseSHA: "base", HeadSHA: "head", StartSHA: "start"}

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	patches, err := NewParser().Parse(sampleDiff)
	require.NoError(t, err)
	return BuildIndex(patches, testRefs)
}

func TestResolveAddedLine(t *testing.T) {
	ix := buildTestIndex(t)

	s := models.Suggestion{
		FilePath:  "app.py",
		StartLine: 42,
		EndLine:   42,
		Rationale: "teardown may raise before log_exit runs",
	}
	comment, err := ix.Resolve(s, ResolveOptions{})
	require.NoError(t, err)

	assert.Equal(t, "app.py", comment.Anchor.FilePath)
	assert.Equal(t, models.SideNew, comment.Anchor.Side)
	assert.Equal(t, 42, comment.Anchor.Line)
	assert.Equal(t, 0, comment.Anchor.OldLine, "added lines carry no old-side number")
	assert.Equal(t, testRefs, comment.Anchor.DiffRefs)
	assert.Contains(t, comment.Body, "teardown may raise before log_exit runs")
}

func TestResolveContextLineCarriesOldLine(t *testing.T) {
	ix := buildTestIndex(t)

	s := models.Suggestion{FilePath: "app.py", StartLine: 41, EndLine: 41, Rationale: "r"}
	comment, err := ix.Resolve(s, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 40, comment.Anchor.OldLine)
}

func TestResolveLineOutsideHunks(t *testing.T) {
	ix := buildTestIndex(t)

	s := models.Suggestion{FilePath: "app.py", StartLine: 20, EndLine: 20, Rationale: "r"}
	_, err := ix.Resolve(s, ResolveOptions{})

	var invalid *SuggestionInvalidError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Reason, "not visible in diff")
}

func TestResolveRemovedLineInvalid(t *testing.T) {
	ix := buildTestIndex(t)

	// lib/helpers.py new-line 6 is the added replacement; old line 6 was
	// removed and must not be addressable through new-file numbering.
	// new-line 7 does not exist at all.
	s := models.Suggestion{FilePath: "lib/helpers.py", StartLine: 7, EndLine: 7, Rationale: "r"}
	_, err := ix.Resolve(s, ResolveOptions{})

	var invalid *SuggestionInvalidError
	require.True(t, errors.As(err, &invalid))
}

func TestResolveDeletedFileInvalid(t *testing.T) {
	ix := buildTestIndex(t)

	s := models.Suggestion{FilePath: "old.py", StartLine: 1, EndLine: 1, Rationale: "r"}
	_, err := ix.Resolve(s, ResolveOptions{})

	var invalid *SuggestionInvalidError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Reason, "deleted")
}

func TestResolveUnknownFileInvalid(t *testing.T) {
	ix := buildTestIndex(t)

	s := models.Suggestion{FilePath: "missing.py", StartLine: 1, EndLine: 1, Rationale: "r"}
	_, err := ix.Resolve(s, ResolveOptions{})

	var invalid *SuggestionInvalidError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Reason, "file not in diff")
}

func TestResolveMalformedRange(t *testing.T) {
	ix := buildTestIndex(t)

	for _, s := range []models.Suggestion{
		{FilePath: "app.py", StartLine: 0, EndLine: 0},
		{FilePath: "app.py", StartLine: 5, EndLine: 3},
		{FilePath: "app.py", StartLine: -1, EndLine: 2},
	} {
		_, err := ix.Resolve(s, ResolveOptions{})
		var invalid *SuggestionInvalidError
		assert.True(t, errors.As(err, &invalid), "range %d-%d should be invalid", s.StartLine, s.EndLine)
	}
}

func TestResolveRangeWithProviderSupport(t *testing.T) {
	ix := buildTestIndex(t)

	s := models.Suggestion{FilePath: "app.py", StartLine: 42, EndLine: 43, Rationale: "r"}
	comment, err := ix.Resolve(s, ResolveOptions{RangeComments: true})
	require.NoError(t, err)
	assert.Equal(t, 42, comment.Anchor.StartLine)
	assert.Equal(t, 43, comment.Anchor.Line)
}

func TestResolveRangeCollapsesWithoutSupport(t *testing.T) {
	ix := buildTestIndex(t)

	s := models.Suggestion{FilePath: "app.py", StartLine: 42, EndLine: 43, Rationale: "r"}
	comment, err := ix.Resolve(s, ResolveOptions{RangeComments: false})
	require.NoError(t, err)
	assert.Equal(t, 0, comment.Anchor.StartLine)
	assert.Equal(t, 43, comment.Anchor.Line, "collapses to the last line of the range")
}

func TestResolveRangeSpanningHunksInvalid(t *testing.T) {
	ix := buildTestIndex(t)

	// app.py new-lines 4 (first hunk) through 41 (second hunk): every
	// endpoint exists but the middle does not, and even an artificial
	// adjacency across hunks must be rejected.
	s := models.Suggestion{FilePath: "app.py", StartLine: 4, EndLine: 41, Rationale: "r"}
	_, err := ix.Resolve(s, ResolveOptions{RangeComments: true})

	var invalid *SuggestionInvalidError
	require.True(t, errors.As(err, &invalid))
}

// Round-trip: any added line taken from the parsed diff itself must
// resolve. A false negative here means the index dropped visible lines.
func TestResolveRoundTripAllAddedLines(t *testing.T) {
	patches, err := NewParser().Parse(sampleDiff)
	require.NoError(t, err)
	ix := BuildIndex(patches, testRefs)

	for _, patch := range patches {
		if patch.Kind == models.ChangeDeleted {
			continue
		}
		for _, hunk := range patch.Hunks {
			for _, line := range hunk.Lines {
				if line.Kind != models.LineAdded {
					continue
				}
				s := models.Suggestion{
					FilePath:  patch.Path,
					StartLine: line.NewLine,
					EndLine:   line.NewLine,
					Rationale: "r",
				}
				_, err := ix.Resolve(s, ResolveOptions{})
				assert.NoError(t, err, "%s:%d should resolve", patch.Path, line.NewLine)
			}
		}
	}
}

func TestRenderBodyNoTrailingBlankLine(t *testing.T) {
	cases := []models.Suggestion{
		{Rationale: "plain rationale"},
		{Rationale: "rationale with newline\n"},
		{Rationale: "r", Replacement: "x := 1\n"},
		{Rationale: "r", Replacement: "x := 1\n\n\n"},
		{Rationale: "r", Replacement: "a\nb", Category: "bug"},
	}
	for _, s := range cases {
		body := RenderBody(s)
		assert.False(t, strings.HasSuffix(body, "\n"), "body must not end with a newline: %q", body)
	}
}

func TestRenderBodySuggestionFence(t *testing.T) {
	s := models.Suggestion{
		Rationale:   "prefer teardown",
		Replacement: "teardown()",
		Category:    "maintainability",
	}
	body := RenderBody(s)

	assert.Contains(t, body, "**Category: maintainability**")
	assert.Contains(t, body, "prefer teardown")
	assert.Contains(t, body, "```suggestion\nteardown()\n```")
}

func TestRenderBodyPreservesInteriorBlankLines(t *testing.T) {
	s := models.Suggestion{Rationale: "r", Replacement: "a\n\nb"}
	body := RenderBody(s)
	assert.Contains(t, body, "a\n\nb", "interior blank lines belong to the suggestion text")
}
