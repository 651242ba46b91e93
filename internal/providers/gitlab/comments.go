package gitlab

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/pkg/models"
)

// PostGeneralComment posts an MR-level note.
func (p *Provider) PostGeneralComment(ctx context.Context, prCtx *models.PullRequestContext, text string) error {
	iid, err := p.mrIID(prCtx.ID)
	if err != nil {
		return &providers.PublishError{Provider: "gitlab", Err: err}
	}

	_, _, err = p.client.Notes.CreateMergeRequestNote(p.projectID, iid, &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(text),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return &providers.PublishError{Provider: "gitlab", Err: err}
	}
	return nil
}

// PostInlineComments publishes anchored discussions. GitLab has no batch
// endpoint, so comments go out one call each across the shared worker
// pool, with one result per comment.
func (p *Provider) PostInlineComments(ctx context.Context, prCtx *models.PullRequestContext, comments []models.ProviderComment) []providers.PublishResult {
	iid, err := p.mrIID(prCtx.ID)
	if err != nil {
		results := make([]providers.PublishResult, len(comments))
		for i, c := range comments {
			results[i] = providers.PublishResult{Comment: c, Err: &providers.PublishError{Provider: "gitlab", Err: err}}
		}
		return results
	}

	return providers.PublishEach(ctx, comments, func(ctx context.Context, c models.ProviderComment) error {
		if err := p.postDiscussion(ctx, iid, c); err != nil {
			return &providers.PublishError{Provider: "gitlab", Err: err}
		}
		return nil
	})
}

// postDiscussion translates the generic anchor into a GitLab position
// object. Context lines need both old_line and new_line, added lines only
// new_line; getting this wrong makes the API reject the discussion.
func (p *Provider) postDiscussion(ctx context.Context, iid int, c models.ProviderComment) error {
	anchor := c.Anchor
	body := c.Body
	line := anchor.Line

	if anchor.StartLine > 0 && anchor.Line > anchor.StartLine {
		// Multi-line ranges anchor at the first line and extend the
		// suggestion fence downwards over the span.
		span := anchor.Line - anchor.StartLine
		body = strings.Replace(body, "```suggestion\n", fmt.Sprintf("```suggestion:-0+%d\n", span), 1)
		line = anchor.StartLine
	}

	oldPath := anchor.OldPath
	if oldPath == "" {
		oldPath = anchor.FilePath
	}

	position := &gitlab.PositionOptions{
		PositionType: gitlab.Ptr("text"),
		BaseSHA:      gitlab.Ptr(anchor.DiffRefs.BaseSHA),
		StartSHA:     gitlab.Ptr(anchor.DiffRefs.StartSHA),
		HeadSHA:      gitlab.Ptr(anchor.DiffRefs.HeadSHA),
		NewPath:      gitlab.Ptr(anchor.FilePath),
		OldPath:      gitlab.Ptr(oldPath),
		NewLine:      gitlab.Ptr(line),
	}
	if anchor.OldLine > 0 && anchor.StartLine == 0 {
		position.OldLine = gitlab.Ptr(anchor.OldLine)
	}

	log.Debug().
		Str("file", anchor.FilePath).
		Int("line", line).
		Msg("gitlab: creating merge request discussion")

	_, _, err := p.client.Discussions.CreateMergeRequestDiscussion(p.projectID, iid, &gitlab.CreateMergeRequestDiscussionOptions{
		Body:     gitlab.Ptr(body),
		Position: position,
	}, gitlab.WithContext(ctx))
	return err
}

// UpdateDescription rewrites the MR title and description.
func (p *Provider) UpdateDescription(ctx context.Context, prCtx *models.PullRequestContext, title, body string) error {
	iid, err := p.mrIID(prCtx.ID)
	if err != nil {
		return &providers.PublishError{Provider: "gitlab", Err: err}
	}

	opts := &gitlab.UpdateMergeRequestOptions{}
	if title != "" {
		opts.Title = gitlab.Ptr(title)
	}
	if body != "" {
		opts.Description = gitlab.Ptr(body)
	}

	_, _, err = p.client.MergeRequests.UpdateMergeRequest(p.projectID, iid, opts, gitlab.WithContext(ctx))
	if err != nil {
		return &providers.PublishError{Provider: "gitlab", Err: err}
	}
	return nil
}
