package github

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	gogh "github.com/google/go-github/v68/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/marshally/pr-agent/internal/diff"
	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/internal/retry"
	"github.com/marshally/pr-agent/pkg/models"
)

// prURLRE matches https://github.com/<owner>/<repo>/pull/<number>.
var prURLRE = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)/pull/(\d+)`)

// Config holds the GitHub connection settings resolved from the
// providers.github config table.
type Config struct {
	Token string `koanf:"token"`
}

var _ providers.Provider = (*Provider)(nil)

// Provider talks to the GitHub REST API for a single pull request.
type Provider struct {
	client  *gogh.Client
	config  Config
	parser  *diff.Parser
	retry   retry.Config
	limiter *rate.Limiter

	owner string
	repo  string
}

// New builds a GitHub provider from resolved configuration.
func New(cfg Config, retryCfg retry.Config) (*Provider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github: missing token")
	}
	return &Provider{
		client: gogh.NewClient(nil).WithAuthToken(cfg.Token),
		config: cfg,
		parser: diff.NewParser(),
		retry:  retryCfg,
		// Secondary rate limit on content writes is roughly one
		// mutation per second sustained.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}, nil
}

func (p *Provider) Name() string { return "github" }

// Supports reports the GitHub capability set. Inline comments are
// published one request at a time so each failure maps back to its
// own comment.
func (p *Provider) Supports(c providers.Capability) bool {
	switch c {
	case providers.CapRangeComments,
		providers.CapUpdateDescription,
		providers.CapUpdateFile:
		return true
	default:
		return false
	}
}

// FetchContext loads the pull request metadata and its changed files.
func (p *Provider) FetchContext(ctx context.Context, prURL string) (*models.PullRequestContext, error) {
	owner, repo, number, err := parsePRURL(prURL)
	if err != nil {
		return nil, &providers.FetchError{Provider: "github", URL: prURL, Err: err}
	}
	p.owner, p.repo = owner, repo

	var pr *gogh.PullRequest
	err = retry.Do(ctx, p.retry, "github.get_pr", func() error {
		var rerr error
		pr, _, rerr = p.client.PullRequests.Get(ctx, owner, repo, number)
		return rerr
	})
	if err != nil {
		return nil, &providers.FetchError{Provider: "github", URL: prURL, Err: err}
	}

	var files []*gogh.CommitFile
	err = retry.Do(ctx, p.retry, "github.list_files", func() error {
		files = files[:0]
		opt := &gogh.ListOptions{PerPage: 100}
		for {
			page, resp, rerr := p.client.PullRequests.ListFiles(ctx, owner, repo, number, opt)
			if rerr != nil {
				return rerr
			}
			files = append(files, page...)
			if resp.NextPage == 0 {
				return nil
			}
			opt.Page = resp.NextPage
		}
	})
	if err != nil {
		return nil, &providers.FetchError{Provider: "github", URL: prURL, Err: err}
	}

	prCtx := &models.PullRequestContext{
		ID:           fmt.Sprintf("%s/%s/%d", owner, repo, number),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		Author:       pr.GetUser().GetLogin(),
		URL:          prURL,
		DiffRefs: models.DiffRefs{
			BaseSHA:  pr.GetBase().GetSHA(),
			HeadSHA:  pr.GetHead().GetSHA(),
			StartSHA: pr.GetBase().GetSHA(),
		},
	}

	for _, f := range files {
		kind := changeKind(f.GetStatus())
		oldPath := f.GetPreviousFilename()
		if oldPath == "" && kind != models.ChangeRenamed {
			oldPath = f.GetFilename()
		}
		patch, perr := p.parser.ParseFilePatch(f.GetFilename(), oldPath, kind, f.GetPatch())
		if perr != nil {
			log.Warn().Err(perr).Str("path", f.GetFilename()).Msg("skipping unparseable file patch")
			continue
		}
		prCtx.Files = append(prCtx.Files, patch)
	}
	return prCtx, nil
}

// UpdateDescription edits the pull request title and body.
func (p *Provider) UpdateDescription(ctx context.Context, prCtx *models.PullRequestContext, title, body string) error {
	_, _, number, err := parsePRURL(prCtx.URL)
	if err != nil {
		return &providers.PublishError{Provider: "github", Err: err}
	}
	edit := &gogh.PullRequest{Body: gogh.Ptr(body)}
	if title != "" {
		edit.Title = gogh.Ptr(title)
	}
	if err := p.wait(ctx); err != nil {
		return &providers.PublishError{Provider: "github", Err: err}
	}
	if _, _, err := p.client.PullRequests.Edit(ctx, p.owner, p.repo, number, edit); err != nil {
		return &providers.PublishError{Provider: "github", Err: err}
	}
	return nil
}

// wait blocks until the write pacing limiter admits another request.
func (p *Provider) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

func parsePRURL(prURL string) (owner, repo string, number int, err error) {
	m := prURLRE.FindStringSubmatch(strings.TrimSuffix(prURL, "/"))
	if m == nil {
		return "", "", 0, fmt.Errorf("not a GitHub pull request URL: %s", prURL)
	}
	number, err = strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid pull request number in %s", prURL)
	}
	return m[1], m[2], number, nil
}

func changeKind(status string) models.ChangeKind {
	switch status {
	case "added", "copied":
		return models.ChangeAdded
	case "removed":
		return models.ChangeDeleted
	case "renamed":
		return models.ChangeRenamed
	default:
		return models.ChangeModified
	}
}
