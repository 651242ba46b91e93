package github

import (
	"context"
	"errors"
	"net/http"

	gogh "github.com/google/go-github/v68/github"

	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/pkg/models"
)

// GetFile reads a file from the given branch. A missing file is not
// an error; Exists reports it.
func (p *Provider) GetFile(ctx context.Context, prCtx *models.PullRequestContext, path, branch string) (*providers.FileRef, error) {
	fc, _, resp, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, path,
		&gogh.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return &providers.FileRef{Path: path, Branch: branch, Exists: false}, nil
		}
		return nil, &providers.FetchError{Provider: "github", URL: prCtx.URL, Err: err}
	}
	if fc == nil {
		return nil, &providers.FetchError{Provider: "github", URL: prCtx.URL,
			Err: errors.New(path + " is not a file")}
	}
	content, err := fc.GetContent()
	if err != nil {
		return nil, &providers.FetchError{Provider: "github", URL: prCtx.URL, Err: err}
	}
	return &providers.FileRef{
		Path:    path,
		Branch:  branch,
		SHA:     fc.GetSHA(),
		Content: content,
		Exists:  true,
	}, nil
}

// UpdateFile writes new content to a file on the branch. The blob SHA
// from GetFile guards the write: a stale SHA surfaces as a conflict.
func (p *Provider) UpdateFile(ctx context.Context, prCtx *models.PullRequestContext, ref *providers.FileRef, content, message string) error {
	opts := &gogh.RepositoryContentFileOptions{
		Message: gogh.Ptr(message),
		Content: []byte(content),
		Branch:  gogh.Ptr(ref.Branch),
	}
	if err := p.wait(ctx); err != nil {
		return &providers.WriteError{Provider: "github", Path: ref.Path, Err: err}
	}
	var err error
	if ref.Exists {
		opts.SHA = gogh.Ptr(ref.SHA)
		_, _, err = p.client.Repositories.UpdateFile(ctx, p.owner, p.repo, ref.Path, opts)
	} else {
		_, _, err = p.client.Repositories.CreateFile(ctx, p.owner, p.repo, ref.Path, opts)
	}
	if err != nil {
		return &providers.WriteError{
			Provider: "github",
			Path:     ref.Path,
			Conflict: isConflict(err),
			Err:      err,
		}
	}
	return nil
}

func isConflict(err error) bool {
	var ghErr *gogh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		return code == http.StatusConflict || code == http.StatusUnprocessableEntity
	}
	return false
}
