package github

import (
	"context"

	gogh "github.com/google/go-github/v68/github"

	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/pkg/models"
)

// PostGeneralComment posts a top-level conversation comment on the
// pull request.
func (p *Provider) PostGeneralComment(ctx context.Context, prCtx *models.PullRequestContext, body string) error {
	_, _, number, err := parsePRURL(prCtx.URL)
	if err != nil {
		return &providers.PublishError{Provider: "github", Err: err}
	}
	if err := p.wait(ctx); err != nil {
		return &providers.PublishError{Provider: "github", Err: err}
	}
	_, _, err = p.client.Issues.CreateComment(ctx, p.owner, p.repo, number,
		&gogh.IssueComment{Body: gogh.Ptr(body)})
	if err != nil {
		return &providers.PublishError{Provider: "github", Err: err}
	}
	return nil
}

// PostInlineComments publishes review comments one per request so
// that each result carries its own error.
func (p *Provider) PostInlineComments(ctx context.Context, prCtx *models.PullRequestContext, comments []models.ProviderComment) []providers.PublishResult {
	_, _, number, err := parsePRURL(prCtx.URL)
	if err != nil {
		results := make([]providers.PublishResult, len(comments))
		for i, c := range comments {
			results[i] = providers.PublishResult{
				Comment: c,
				Err:     &providers.PublishError{Provider: "github", Err: err},
			}
		}
		return results
	}
	return providers.PublishEach(ctx, comments, func(ctx context.Context, c models.ProviderComment) error {
		return p.postReviewComment(ctx, number, c)
	})
}

func (p *Provider) postReviewComment(ctx context.Context, number int, c models.ProviderComment) error {
	rc := &gogh.PullRequestComment{
		Body:     gogh.Ptr(c.Body),
		CommitID: gogh.Ptr(c.Anchor.DiffRefs.HeadSHA),
		Path:     gogh.Ptr(c.Anchor.FilePath),
		Line:     gogh.Ptr(c.Anchor.Line),
		Side:     gogh.Ptr(side(c.Anchor.Side)),
	}
	if c.Anchor.StartLine > 0 && c.Anchor.StartLine < c.Anchor.Line {
		rc.StartLine = gogh.Ptr(c.Anchor.StartLine)
		rc.StartSide = rc.Side
	}
	if err := p.wait(ctx); err != nil {
		return &providers.PublishError{Provider: "github", Err: err}
	}
	if _, _, err := p.client.PullRequests.CreateComment(ctx, p.owner, p.repo, number, rc); err != nil {
		return &providers.PublishError{Provider: "github", Err: err}
	}
	return nil
}

func side(s models.CommentSide) string {
	if s == models.SideOld {
		return "LEFT"
	}
	return "RIGHT"
}
