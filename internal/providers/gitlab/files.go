package gitlab

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/pkg/models"
)

// GetFile reads one file from a branch. A 404 is reported as a
// non-existent file, not an error, so callers can create it.
func (p *Provider) GetFile(ctx context.Context, prCtx *models.PullRequestContext, path, branch string) (*providers.FileRef, error) {
	file, resp, err := p.client.RepositoryFiles.GetFile(p.projectID, path, &gitlab.GetFileOptions{
		Ref: gitlab.Ptr(branch),
	}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return &providers.FileRef{Path: path, Branch: branch}, nil
		}
		return nil, &providers.WriteError{Provider: "gitlab", Path: path, Err: err}
	}

	content := file.Content
	if file.Encoding == "base64" {
		decoded, decErr := base64.StdEncoding.DecodeString(file.Content)
		if decErr != nil {
			return nil, &providers.WriteError{Provider: "gitlab", Path: path, Err: fmt.Errorf("decoding content: %w", decErr)}
		}
		content = string(decoded)
	}

	return &providers.FileRef{
		Path:    path,
		Branch:  branch,
		SHA:     file.LastCommitID,
		Content: content,
		Exists:  true,
	}, nil
}

// UpdateFile commits new content. The LastCommitID from the read guards
// the write: GitLab rejects the commit when the file moved on, and that
// rejection surfaces as a conflict instead of a silent overwrite.
func (p *Provider) UpdateFile(ctx context.Context, prCtx *models.PullRequestContext, ref *providers.FileRef, newContent, commitMessage string) error {
	if !ref.Exists {
		_, _, err := p.client.RepositoryFiles.CreateFile(p.projectID, ref.Path, &gitlab.CreateFileOptions{
			Branch:        gitlab.Ptr(ref.Branch),
			Content:       gitlab.Ptr(newContent),
			CommitMessage: gitlab.Ptr(commitMessage),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return &providers.WriteError{Provider: "gitlab", Path: ref.Path, Err: err}
		}
		return nil
	}

	opts := &gitlab.UpdateFileOptions{
		Branch:        gitlab.Ptr(ref.Branch),
		Content:       gitlab.Ptr(newContent),
		CommitMessage: gitlab.Ptr(commitMessage),
	}
	if ref.SHA != "" {
		opts.LastCommitID = gitlab.Ptr(ref.SHA)
	}

	_, resp, err := p.client.RepositoryFiles.UpdateFile(p.projectID, ref.Path, opts, gitlab.WithContext(ctx))
	if err != nil {
		return &providers.WriteError{
			Provider: "gitlab",
			Path:     ref.Path,
			Conflict: isConflict(resp, err),
			Err:      err,
		}
	}
	return nil
}

func isConflict(resp *gitlab.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusConflict {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "has changed") || strings.Contains(msg, "does not match")
}
