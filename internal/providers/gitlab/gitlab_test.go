package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gogl "gitlab.com/gitlab-org/api/client-go"

	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/internal/retry"
	"github.com/marshally/pr-agent/pkg/models"
)

func TestParseMRURL(t *testing.T) {
	tests := []struct {
		url     string
		project string
		iid     int
		wantErr bool
	}{
		{url: "https://gitlab.com/acme/widgets/-/merge_requests/7", project: "acme/widgets", iid: 7},
		{url: "https://gitlab.com/acme/widgets/merge_requests/7", project: "acme/widgets", iid: 7},
		{url: "https://git.example.com/group/sub/app/-/merge_requests/123", project: "group/sub/app", iid: 123},
		{url: "https://gitlab.com/acme/widgets/-/issues/7", wantErr: true},
		{url: "https://gitlab.com/acme/widgets", wantErr: true},
	}
	for _, tc := range tests {
		project, iid, err := parseMRURL(tc.url)
		if tc.wantErr {
			assert.Error(t, err, tc.url)
			continue
		}
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.project, project)
		assert.Equal(t, tc.iid, iid)
	}
}

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := retry.DefaultConfig()
	cfg.BaseDelay = time.Millisecond
	p, err := New(Config{URL: srv.URL, Token: "glpat-test"}, cfg)
	require.NoError(t, err)
	p.projectID = "acme/widgets"
	return p
}

func TestPostDiscussionSingleLine(t *testing.T) {
	var got map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/merge_requests/7/discussions") {
			http.NotFound(w, r)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "d1"}`)
	})
	p := newTestProvider(t, handler)

	refs := models.DiffRefs{BaseSHA: "base", HeadSHA: "head", StartSHA: "start"}
	prCtx := &models.PullRequestContext{ID: "7", DiffRefs: refs}
	results := p.PostInlineComments(context.Background(), prCtx, []models.ProviderComment{{
		Anchor: models.Anchor{FilePath: "app.py", Side: models.SideNew, Line: 42, DiffRefs: refs},
		Body:   "tighten this",
	}})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	assert.Equal(t, "tighten this", got["body"])
	pos := got["position"].(map[string]any)
	assert.Equal(t, "text", pos["position_type"])
	assert.Equal(t, "base", pos["base_sha"])
	assert.Equal(t, "start", pos["start_sha"])
	assert.Equal(t, "head", pos["head_sha"])
	assert.Equal(t, "app.py", pos["new_path"])
	assert.Equal(t, float64(42), pos["new_line"])
	_, hasOld := pos["old_line"]
	assert.False(t, hasOld)
}

func TestPostDiscussionContextLineCarriesOldLine(t *testing.T) {
	var got map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "d1"}`)
	})
	p := newTestProvider(t, handler)

	refs := models.DiffRefs{BaseSHA: "base", HeadSHA: "head", StartSHA: "start"}
	prCtx := &models.PullRequestContext{ID: "7", DiffRefs: refs}
	results := p.PostInlineComments(context.Background(), prCtx, []models.ProviderComment{{
		Anchor: models.Anchor{FilePath: "app.py", Side: models.SideNew, Line: 40, OldLine: 40, DiffRefs: refs},
		Body:   "context comment",
	}})
	require.NoError(t, results[0].Err)

	pos := got["position"].(map[string]any)
	assert.Equal(t, float64(40), pos["new_line"])
	assert.Equal(t, float64(40), pos["old_line"])
}

func TestPostDiscussionRangeRewritesFence(t *testing.T) {
	var got map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "d1"}`)
	})
	p := newTestProvider(t, handler)

	refs := models.DiffRefs{BaseSHA: "base", HeadSHA: "head", StartSHA: "start"}
	prCtx := &models.PullRequestContext{ID: "7", DiffRefs: refs}
	body := "rationale\n\n```suggestion\nnew code\n```"
	results := p.PostInlineComments(context.Background(), prCtx, []models.ProviderComment{{
		Anchor: models.Anchor{FilePath: "app.py", Side: models.SideNew, StartLine: 40, Line: 43, DiffRefs: refs},
		Body:   body,
	}})
	require.NoError(t, results[0].Err)

	// Range comments anchor at the first line; the fence span covers
	// the remaining three lines.
	assert.Contains(t, got["body"], "```suggestion:-0+3\n")
	pos := got["position"].(map[string]any)
	assert.Equal(t, float64(40), pos["new_line"])
}

func TestFetchContext(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/merge_requests/7/diffs"):
			fmt.Fprint(w, `[
				{
					"old_path": "app.py",
					"new_path": "app.py",
					"diff": "@@ -40,3 +40,4 @@ def shutdown():\n     log.info(\"bye\")\n     flush()\n+    teardown()\n     exit(0)\n"
				}
			]`)
		case strings.HasSuffix(r.URL.Path, "/merge_requests/7"):
			fmt.Fprint(w, `{
				"iid": 7,
				"title": "Add teardown hook",
				"description": "Closes #7",
				"source_branch": "feature/teardown",
				"target_branch": "main",
				"author": {"username": "casey"},
				"diff_refs": {"base_sha": "base", "head_sha": "head", "start_sha": "start"}
			}`)
		default:
			http.NotFound(w, r)
		}
	})
	p := newTestProvider(t, handler)

	prCtx, err := p.FetchContext(context.Background(), "https://gitlab.com/acme/widgets/-/merge_requests/7")
	require.NoError(t, err)
	assert.Equal(t, "7", prCtx.ID)
	assert.Equal(t, "Add teardown hook", prCtx.Title)
	assert.Equal(t, "casey", prCtx.Author)
	assert.Equal(t, "head", prCtx.DiffRefs.HeadSHA)
	require.Len(t, prCtx.Files, 1)
	require.Len(t, prCtx.Files[0].Hunks, 1)
	assert.Equal(t, 40, prCtx.Files[0].Hunks[0].NewStart)
}

func TestFetchContextBadURL(t *testing.T) {
	p := newTestProvider(t, http.NotFoundHandler())
	_, err := p.FetchContext(context.Background(), "https://gitlab.com/acme/widgets")
	var ferr *providers.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "gitlab", ferr.Provider)
}

func TestUpdateFileConflict(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message": "You are attempting to update a file that has changed since you started editing it."}`)
			return
		}
		http.NotFound(w, r)
	})
	p := newTestProvider(t, handler)

	ref := &providers.FileRef{Path: "CHANGELOG.md", Branch: "feature/teardown", SHA: "oldsha", Exists: true}
	err := p.UpdateFile(context.Background(), &models.PullRequestContext{ID: "7"}, ref, "new", "Update changelog")
	require.Error(t, err)
	assert.True(t, providers.IsWriteConflict(err))
}

func TestGetFileMissing(t *testing.T) {
	p := newTestProvider(t, http.NotFoundHandler())
	ref, err := p.GetFile(context.Background(), &models.PullRequestContext{ID: "7"}, "CHANGELOG.md", "main")
	require.NoError(t, err)
	assert.False(t, ref.Exists)
}

func TestChangeKindMapping(t *testing.T) {
	assert.Equal(t, models.ChangeAdded, changeKind(&gogl.MergeRequestDiff{NewFile: true}))
	assert.Equal(t, models.ChangeDeleted, changeKind(&gogl.MergeRequestDiff{DeletedFile: true}))
	assert.Equal(t, models.ChangeRenamed, changeKind(&gogl.MergeRequestDiff{RenamedFile: true}))
	assert.Equal(t, models.ChangeModified, changeKind(&gogl.MergeRequestDiff{}))
}
