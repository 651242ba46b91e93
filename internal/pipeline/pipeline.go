// Package pipeline orchestrates one invocation: fetch the pull
// request, generate feedback, map it onto the diff, and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marshally/pr-agent/internal/ai"
	"github.com/marshally/pr-agent/internal/changelog"
	"github.com/marshally/pr-agent/internal/config"
	"github.com/marshally/pr-agent/internal/diff"
	"github.com/marshally/pr-agent/internal/logging"
	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/pkg/models"
)

// ActionKind selects which sub-steps of the pipeline run.
type ActionKind string

const (
	ActionReview    ActionKind = "review"
	ActionImprove   ActionKind = "improve"
	ActionDescribe  ActionKind = "describe"
	ActionChangelog ActionKind = "changelog-update"
)

// State names the pipeline's position in its run.
type State string

const (
	StateInit             State = "init"
	StateFetchContext     State = "fetch_context"
	StateGenerateFeedback State = "generate_feedback"
	StateMapAndFormat     State = "map_and_format"
	StatePublish          State = "publish"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Dropped records a suggestion that could not be anchored.
type Dropped struct {
	Suggestion models.Suggestion
	Reason     string
}

// Result is the terminal report of one run. A run ends Done as long
// as its primary artifact landed; per-comment failures and dropped
// suggestions ride along without flipping the outcome.
type Result struct {
	RunID     string
	Action    ActionKind
	State     State
	PR        *models.PullRequestContext
	Summary   string
	Comments  []models.ProviderComment
	Published int
	Failures  []error
	Dropped   []Dropped
	Err       error
}

// Options tune a pipeline beyond the resolved config.
type Options struct {
	// DryRun resolves and renders everything but publishes nothing.
	DryRun bool
}

// Pipeline runs actions against one provider with one generator.
type Pipeline struct {
	cfg       *config.EffectiveConfig
	provider  providers.Provider
	generator ai.Generator
	opts      Options
}

func New(cfg *config.EffectiveConfig, provider providers.Provider, generator ai.Generator, opts Options) *Pipeline {
	return &Pipeline{cfg: cfg, provider: provider, generator: generator, opts: opts}
}

// Run drives the state machine for one invocation.
func (p *Pipeline) Run(ctx context.Context, action ActionKind, prURL string) *Result {
	res := &Result{
		RunID:  uuid.NewString(),
		Action: action,
		State:  StateInit,
	}
	logger := logging.ForRun(res.RunID)
	logger.Info().Str("action", string(action)).Str("url", prURL).Msg("run started")

	prCtx, err := p.fetch(ctx, &logger, res, prURL)
	if err != nil {
		return p.fail(&logger, res, err)
	}
	res.PR = prCtx

	fb, entry, err := p.generate(ctx, &logger, res, prCtx)
	if err != nil {
		return p.fail(&logger, res, err)
	}

	if action == ActionChangelog {
		return p.publishChangelog(ctx, &logger, res, prCtx, entry)
	}

	comments := p.mapAndFormat(&logger, res, prCtx, fb)
	return p.publish(ctx, &logger, res, prCtx, fb, comments)
}

func (p *Pipeline) fetch(ctx context.Context, logger *zerolog.Logger, res *Result, prURL string) (*models.PullRequestContext, error) {
	res.State = StateFetchContext
	prCtx, err := p.provider.FetchContext(ctx, prURL)
	if err != nil {
		return nil, err
	}
	prCtx.Files = p.filterIgnored(logger, prCtx.Files)
	logger.Info().Int("files", len(prCtx.Files)).Str("pr", prCtx.ID).Msg("context fetched")
	return prCtx, nil
}

// filterIgnored drops files matching any ignore.glob pattern.
func (p *Pipeline) filterIgnored(logger *zerolog.Logger, files []models.FilePatch) []models.FilePatch {
	patterns := p.cfg.Strings("ignore.glob")
	if len(patterns) == 0 {
		return files
	}
	kept := files[:0]
	for _, f := range files {
		if matchAny(patterns, f.Path) {
			logger.Debug().Str("path", f.Path).Msg("ignoring file by glob")
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func matchAny(patterns []string, p string) bool {
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, p); ok {
			return true
		}
		if ok, _ := path.Match(pat, path.Base(p)); ok {
			return true
		}
	}
	return false
}

func (p *Pipeline) generate(ctx context.Context, logger *zerolog.Logger, res *Result, prCtx *models.PullRequestContext) (*models.Feedback, string, error) {
	res.State = StateGenerateFeedback

	switch res.Action {
	case ActionReview:
		fb, err := p.generator.Review(ctx, prCtx, p.reviewOptions("review"))
		return fb, "", err
	case ActionImprove:
		fb, err := p.generator.Improve(ctx, prCtx, p.reviewOptions("improve"))
		return fb, "", err
	case ActionDescribe:
		fb, err := p.generator.Describe(ctx, prCtx)
		return fb, "", err
	case ActionChangelog:
		entry, err := p.generator.ChangelogEntry(ctx, prCtx)
		return nil, entry, err
	default:
		return nil, "", fmt.Errorf("unknown action %q", res.Action)
	}
}

func (p *Pipeline) reviewOptions(section string) ai.ReviewOptions {
	return ai.ReviewOptions{
		NumSuggestions:    p.cfg.Int(section + ".num_suggestions"),
		RequireTests:      p.cfg.Bool(section + ".require_tests"),
		RequireSecurity:   p.cfg.Bool(section + ".require_security"),
		ExtraInstructions: p.cfg.String(section + ".extra_instructions"),
	}
}

// mapAndFormat resolves every suggestion against the diff index,
// splitting the batch into publishable comments and recorded drops.
func (p *Pipeline) mapAndFormat(logger *zerolog.Logger, res *Result, prCtx *models.PullRequestContext, fb *models.Feedback) []models.ProviderComment {
	res.State = StateMapAndFormat
	if fb == nil || len(fb.Suggestions) == 0 {
		return nil
	}

	ix := diff.BuildIndex(prCtx.Files, prCtx.DiffRefs)
	opts := diff.ResolveOptions{RangeComments: p.provider.Supports(providers.CapRangeComments)}

	var comments []models.ProviderComment
	for _, s := range fb.Suggestions {
		c, err := ix.Resolve(s, opts)
		if err != nil {
			logger.Warn().Err(err).Str("file", s.FilePath).
				Int("start", s.StartLine).Int("end", s.EndLine).
				Msg("dropping unanchorable suggestion")
			res.Dropped = append(res.Dropped, Dropped{Suggestion: s, Reason: err.Error()})
			continue
		}
		comments = append(comments, c)
	}
	logger.Info().Int("comments", len(comments)).Int("dropped", len(res.Dropped)).Msg("suggestions mapped")
	return comments
}

func (p *Pipeline) publish(ctx context.Context, logger *zerolog.Logger, res *Result, prCtx *models.PullRequestContext, fb *models.Feedback, comments []models.ProviderComment) *Result {
	res.State = StatePublish
	res.Comments = comments
	if fb != nil {
		res.Summary = fb.Summary
	}

	if p.opts.DryRun || !p.cfg.Bool("general.publish_output") {
		logger.Info().Int("comments", len(comments)).Msg("dry run, nothing published")
		return p.done(logger, res)
	}

	// The primary artifact goes out first so readers see context
	// before inline annotations.
	switch res.Action {
	case ActionReview:
		if fb.Summary != "" {
			if err := p.provider.PostGeneralComment(ctx, prCtx, fb.Summary); err != nil {
				return p.fail(logger, res, err)
			}
		}
	case ActionDescribe:
		if err := p.publishDescription(ctx, prCtx, fb); err != nil {
			return p.fail(logger, res, err)
		}
		return p.done(logger, res)
	}

	if res.Action == ActionReview && !p.cfg.Bool("review.inline_comments") {
		return p.done(logger, res)
	}

	for _, r := range p.provider.PostInlineComments(ctx, prCtx, comments) {
		if r.Err != nil {
			logger.Warn().Err(r.Err).Str("file", r.Comment.Anchor.FilePath).
				Int("line", r.Comment.Anchor.Line).Msg("inline comment rejected")
			res.Failures = append(res.Failures, r.Err)
			continue
		}
		res.Published++
	}
	return p.done(logger, res)
}

func (p *Pipeline) publishDescription(ctx context.Context, prCtx *models.PullRequestContext, fb *models.Feedback) error {
	title := fb.Title
	if p.cfg.Bool("describe.keep_original_title") {
		title = ""
	}
	if p.cfg.Bool("describe.publish_as_comment") || !p.provider.Supports(providers.CapUpdateDescription) {
		body := fb.Description
		if fb.Title != "" {
			body = fmt.Sprintf("## %s\n\n%s", fb.Title, fb.Description)
		}
		return p.provider.PostGeneralComment(ctx, prCtx, body)
	}
	return p.provider.UpdateDescription(ctx, prCtx, title, fb.Description)
}

func (p *Pipeline) publishChangelog(ctx context.Context, logger *zerolog.Logger, res *Result, prCtx *models.PullRequestContext, entry string) *Result {
	res.State = StatePublish
	res.Summary = entry

	if p.opts.DryRun || !p.cfg.Bool("general.publish_output") {
		logger.Info().Str("entry", entry).Msg("dry run, changelog not written")
		return p.done(logger, res)
	}

	u := changelog.New(p.cfg.String("changelog.file"))
	if err := u.Apply(ctx, prCtx, entry, p.provider); err != nil {
		return p.fail(logger, res, err)
	}
	res.Published++
	return p.done(logger, res)
}

func (p *Pipeline) done(logger *zerolog.Logger, res *Result) *Result {
	res.State = StateDone
	logger.Info().Int("published", res.Published).
		Int("failures", len(res.Failures)).Int("dropped", len(res.Dropped)).
		Msg("run finished")
	return res
}

func (p *Pipeline) fail(logger *zerolog.Logger, res *Result, err error) *Result {
	res.State = StateFailed
	res.Err = err
	logger.Error().Err(err).Str("state", string(StateFailed)).Msg("run failed")
	return res
}

// RootCause unwraps the single user-visible failure of a run.
func RootCause(res *Result) error {
	if res.Err == nil {
		return nil
	}
	var fetchErr *providers.FetchError
	var pubErr *providers.PublishError
	var writeErr *providers.WriteError
	var cfgErr *config.ConfigError
	switch {
	case errors.As(res.Err, &fetchErr):
		return fetchErr
	case errors.As(res.Err, &pubErr):
		return pubErr
	case errors.As(res.Err, &writeErr):
		return writeErr
	case errors.As(res.Err, &cfgErr):
		return cfgErr
	}
	return res.Err
}
