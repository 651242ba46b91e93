package providers

import (
	"context"

	"github.com/marshally/pr-agent/pkg/models"
)

// Capability names an optional provider feature. Callers probe with
// Supports instead of type-switching on concrete adapters.
type Capability string

const (
	// CapRangeComments: the provider can anchor one comment to a span of
	// lines rather than a single line.
	CapRangeComments Capability = "range_comments"
	// CapBatchInline: several inline comments can be published in one API
	// call.
	CapBatchInline Capability = "batch_inline"
	// CapUpdateDescription: PR/MR title and body can be rewritten.
	CapUpdateDescription Capability = "update_description"
	// CapUpdateFile: repository files can be read and committed through
	// the provider API.
	CapUpdateFile Capability = "update_file"
)

// PublishResult reports the outcome for a single inline comment. Partial
// failure is expected and surfaced per comment, never as one aggregate
// pipeline failure.
type PublishResult struct {
	Comment models.ProviderComment
	Err     error
}

// FileRef is a snapshot of one repository file as read through a provider.
// SHA identifies the version read; adapters use it to detect write
// conflicts on the way back.
type FileRef struct {
	Path    string
	Branch  string
	SHA     string
	Content string
	Exists  bool
}

// Provider is the capability contract every git-hosting adapter
// implements. Each concrete adapter owns the translation from the generic
// Anchor to its own line/side addressing scheme.
type Provider interface {
	Name() string
	Supports(c Capability) bool

	// FetchContext fetches PR metadata and parsed file patches in one
	// shot. Transient failures are retried internally with bounded
	// backoff; authorization failures are not.
	FetchContext(ctx context.Context, prURL string) (*models.PullRequestContext, error)

	// PostGeneralComment posts a PR-level comment thread. Idempotency is
	// the caller's responsibility.
	PostGeneralComment(ctx context.Context, prCtx *models.PullRequestContext, text string) error

	// PostInlineComments publishes anchored comments, batching where the
	// provider supports it, and reports one result per comment.
	PostInlineComments(ctx context.Context, prCtx *models.PullRequestContext, comments []models.ProviderComment) []PublishResult

	// UpdateDescription rewrites the PR title and body.
	UpdateDescription(ctx context.Context, prCtx *models.PullRequestContext, title, body string) error

	// GetFile reads one file from a branch. A missing file is not an
	// error: Exists is false and Content empty.
	GetFile(ctx context.Context, prCtx *models.PullRequestContext, path, branch string) (*FileRef, error)

	// UpdateFile commits new content for the file identified by ref,
	// creating it when ref.Exists is false. A concurrent modification
	// since the read surfaces as a conflict WriteError, never a silent
	// overwrite.
	UpdateFile(ctx context.Context, prCtx *models.PullRequestContext, ref *FileRef, newContent, commitMessage string) error
}
