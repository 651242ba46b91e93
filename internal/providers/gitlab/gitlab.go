package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/marshally/pr-agent/internal/diff"
	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/internal/retry"
	"github.com/marshally/pr-agent/pkg/models"
)

// mrURLRE matches both "group/project/-/merge_requests/123" and the older
// form without the /- delimiter.
var mrURLRE = regexp.MustCompile(`^(.+?)(?:/-)?/merge_requests/(\d+)$`)

var _ providers.Provider = (*Provider)(nil)

// Provider implements the capability contract against the GitLab API.
type Provider struct {
	client *gitlab.Client
	config Config
	parser *diff.Parser
	retry  retry.Config

	// Set by FetchContext so later calls can address the same MR by its
	// IID alone.
	projectID string
}

// Config contains the GitLab connection settings.
type Config struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
}

// New creates a GitLab provider for a self-hosted or gitlab.com instance.
func New(cfg Config, retryCfg retry.Config) (*Provider, error) {
	var opts []gitlab.ClientOptionFunc
	if cfg.URL != "" {
		opts = append(opts, gitlab.WithBaseURL(fmt.Sprintf("%s/api/v4", strings.TrimSuffix(cfg.URL, "/"))))
	}
	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	return &Provider{
		client: client,
		config: cfg,
		parser: diff.NewParser(),
		retry:  retryCfg,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return "gitlab" }

// Supports reports the GitLab capability set. Range suggestions ride on the
// suggestion-fence span syntax, so range comments are supported even though
// the discussion anchor itself is a single line.
func (p *Provider) Supports(c providers.Capability) bool {
	switch c {
	case providers.CapRangeComments, providers.CapUpdateDescription, providers.CapUpdateFile:
		return true
	}
	return false
}

// FetchContext fetches MR metadata and file diffs, retrying transient
// failures with bounded backoff.
func (p *Provider) FetchContext(ctx context.Context, mrURL string) (*models.PullRequestContext, error) {
	projectID, mrIID, err := parseMRURL(mrURL)
	if err != nil {
		return nil, &providers.FetchError{Provider: "gitlab", Err: err}
	}
	p.projectID = projectID

	var mr *gitlab.MergeRequest
	err = retry.Do(ctx, p.retry, "gitlab.get_merge_request", func() error {
		var apiErr error
		mr, _, apiErr = p.client.MergeRequests.GetMergeRequest(projectID, mrIID, nil, gitlab.WithContext(ctx))
		return apiErr
	})
	if err != nil {
		return nil, &providers.FetchError{Provider: "gitlab", Err: err}
	}

	var diffs []*gitlab.MergeRequestDiff
	err = retry.Do(ctx, p.retry, "gitlab.list_merge_request_diffs", func() error {
		diffs = diffs[:0]
		opt := &gitlab.ListMergeRequestDiffsOptions{
			ListOptions: gitlab.ListOptions{PerPage: 100},
		}
		for {
			page, resp, apiErr := p.client.MergeRequests.ListMergeRequestDiffs(projectID, mrIID, opt, gitlab.WithContext(ctx))
			if apiErr != nil {
				return apiErr
			}
			diffs = append(diffs, page...)
			if resp.NextPage == 0 {
				break
			}
			opt.Page = resp.NextPage
		}
		return nil
	})
	if err != nil {
		return nil, &providers.FetchError{Provider: "gitlab", Err: err}
	}

	prCtx := &models.PullRequestContext{
		ID:           strconv.Itoa(mrIID),
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		URL:          mrURL,
	}
	if mr.Author != nil {
		prCtx.Author = mr.Author.Username
	}
	prCtx.DiffRefs = models.DiffRefs{
		BaseSHA:  mr.DiffRefs.BaseSha,
		HeadSHA:  mr.DiffRefs.HeadSha,
		StartSHA: mr.DiffRefs.StartSha,
	}

	for _, d := range diffs {
		patch, err := p.parser.ParseFilePatch(d.NewPath, d.OldPath, changeKind(d), d.Diff)
		if err != nil {
			log.Warn().Str("file", d.NewPath).Err(err).Msg("gitlab: skipping unparseable file diff")
			continue
		}
		prCtx.Files = append(prCtx.Files, patch)
	}

	log.Debug().
		Str("project", projectID).
		Int("mr_iid", mrIID).
		Int("files", len(prCtx.Files)).
		Msg("gitlab: fetched merge request context")

	return prCtx, nil
}

func changeKind(d *gitlab.MergeRequestDiff) models.ChangeKind {
	switch {
	case d.NewFile:
		return models.ChangeAdded
	case d.DeletedFile:
		return models.ChangeDeleted
	case d.RenamedFile:
		return models.ChangeRenamed
	}
	return models.ChangeModified
}

// parseMRURL extracts the project path and MR IID from a merge request URL.
func parseMRURL(mrURL string) (string, int, error) {
	parsed, err := url.Parse(mrURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid merge request URL: %w", err)
	}

	path := strings.Trim(parsed.Path, "/")
	matches := mrURLRE.FindStringSubmatch(path)
	if matches == nil {
		return "", 0, fmt.Errorf("could not extract project and MR IID from URL %s", mrURL)
	}

	mrIID, err := strconv.Atoi(matches[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid MR IID in URL %s", mrURL)
	}
	return matches[1], mrIID, nil
}

func (p *Provider) mrIID(prID string) (int, error) {
	iid, err := strconv.Atoi(prID)
	if err != nil {
		return 0, fmt.Errorf("invalid MR ID %q: %w", prID, err)
	}
	return iid, nil
}
