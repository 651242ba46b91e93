package changelog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/pkg/models"
)

func TestInsertUnderUnreleased(t *testing.T) {
	content := "# Changelog\n\n## Unreleased\n\n- Old entry\n\n## 1.2.0\n\n- Shipped\n"
	got := Insert(content, "- New entry")
	assert.Equal(t,
		"# Changelog\n\n## Unreleased\n\n- New entry\n\n- Old entry\n\n## 1.2.0\n\n- Shipped\n",
		got)
}

func TestInsertAfterTitle(t *testing.T) {
	content := "# Changelog\n\n## 1.2.0\n\n- Shipped\n"
	got := Insert(content, "- New entry")
	assert.Equal(t, "# Changelog\n\n- New entry\n\n## 1.2.0\n\n- Shipped\n", got)
}

func TestInsertAtTopWithoutHeading(t *testing.T) {
	got := Insert("- Old entry\n", "- New entry")
	assert.Equal(t, "- New entry\n\n- Old entry\n", got)
}

func TestInsertIntoEmptyUnreleased(t *testing.T) {
	content := "# Changelog\n\n## Unreleased\n"
	got := Insert(content, "- New entry")
	assert.Equal(t, "# Changelog\n\n## Unreleased\n\n- New entry\n", got)
}

// fakeProvider implements the file operations the updater touches.
type fakeProvider struct {
	providers.Provider

	content   string
	exists    bool
	sha       string
	conflicts int

	reads  int
	writes int
	wrote  string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Supports(c providers.Capability) bool { return c == providers.CapUpdateFile }

func (f *fakeProvider) GetFile(ctx context.Context, prCtx *models.PullRequestContext, path, branch string) (*providers.FileRef, error) {
	f.reads++
	return &providers.FileRef{Path: path, Branch: branch, SHA: f.sha, Content: f.content, Exists: f.exists}, nil
}

func (f *fakeProvider) UpdateFile(ctx context.Context, prCtx *models.PullRequestContext, ref *providers.FileRef, content, message string) error {
	f.writes++
	if f.conflicts > 0 {
		f.conflicts--
		return &providers.WriteError{Provider: "fake", Path: ref.Path, Conflict: true}
	}
	f.wrote = content
	return nil
}

func prCtx() *models.PullRequestContext {
	return &models.PullRequestContext{Title: "Add teardown hook", SourceBranch: "feature/teardown"}
}

func TestApplyInsertsEntry(t *testing.T) {
	p := &fakeProvider{content: "# Changelog\n\n## Unreleased\n\n- Old\n", exists: true, sha: "abc"}
	u := New("CHANGELOG.md")

	err := u.Apply(context.Background(), prCtx(), "- New", p)
	require.NoError(t, err)
	assert.Equal(t, 1, p.reads)
	assert.Equal(t, 1, p.writes)
	assert.Contains(t, p.wrote, "## Unreleased\n\n- New\n\n- Old\n")
}

func TestApplyCreatesMissingFile(t *testing.T) {
	p := &fakeProvider{exists: false}
	u := New("")

	err := u.Apply(context.Background(), prCtx(), "- New", p)
	require.NoError(t, err)
	assert.Equal(t, "CHANGELOG.md", u.Path)
	assert.Equal(t, "# Changelog\n\n## Unreleased\n\n- New\n", p.wrote)
}

func TestApplyRetriesConflictOnce(t *testing.T) {
	p := &fakeProvider{content: "# Changelog\n", exists: true, sha: "abc", conflicts: 1}
	u := New("CHANGELOG.md")

	err := u.Apply(context.Background(), prCtx(), "- New", p)
	require.NoError(t, err)
	assert.Equal(t, 2, p.reads)
	assert.Equal(t, 2, p.writes)
}

func TestApplyConflictTwiceFails(t *testing.T) {
	p := &fakeProvider{content: "# Changelog\n", exists: true, sha: "abc", conflicts: 2}
	u := New("CHANGELOG.md")

	err := u.Apply(context.Background(), prCtx(), "- New", p)
	require.Error(t, err)
	assert.True(t, providers.IsWriteConflict(err))
	assert.Equal(t, 2, p.writes)
}

func TestApplyRejectsEmptyEntry(t *testing.T) {
	p := &fakeProvider{}
	err := New("CHANGELOG.md").Apply(context.Background(), prCtx(), "  \n", p)
	assert.Error(t, err)
	assert.Zero(t, p.writes)
}
