// Package langchain implements the ai.Generator interface on top of
// the langchaingo model abstractions.
package langchain

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/marshally/pr-agent/internal/ai"
	"github.com/marshally/pr-agent/internal/retry"
	"github.com/marshally/pr-agent/pkg/models"
)

const (
	defaultBackend   = "googleai"
	defaultModel     = "gemini-1.5-flash"
	defaultMaxTokens = 8192
)

// Config holds the model backend settings from the ai config table.
type Config struct {
	Backend   string
	APIKey    string
	Model     string
	MaxTokens int
}

// ConfigFromTable reads Config out of a resolved config table.
func ConfigFromTable(table map[string]interface{}) Config {
	cfg := Config{Backend: defaultBackend, Model: defaultModel, MaxTokens: defaultMaxTokens}
	if v, ok := table["backend"].(string); ok && v != "" {
		cfg.Backend = v
	}
	if v, ok := table["api_key"].(string); ok {
		cfg.APIKey = v
	}
	if v, ok := table["model"].(string); ok && v != "" {
		cfg.Model = v
	}
	switch v := table["max_tokens"].(type) {
	case int:
		cfg.MaxTokens = v
	case int64:
		cfg.MaxTokens = int(v)
	case float64:
		cfg.MaxTokens = int(v)
	}
	return cfg
}

var _ ai.Generator = (*Generator)(nil)

// Generator drives a langchaingo model and parses its JSON output.
type Generator struct {
	llm   llms.Model
	cfg   Config
	retry retry.Config
}

// New initializes the configured backend.
func New(cfg Config, retryCfg retry.Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("langchain: missing api_key")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	var llm llms.Model
	var err error
	switch cfg.Backend {
	case "", defaultBackend:
		llm, err = googleai.New(context.Background(),
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
			googleai.WithDefaultMaxTokens(cfg.MaxTokens),
		)
	case "openai":
		llm, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("langchain: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("langchain: initialize %s: %w", cfg.Backend, err)
	}
	return &Generator{llm: llm, cfg: cfg, retry: retryCfg}, nil
}

func (g *Generator) Name() string { return "langchain" }

func (g *Generator) generate(ctx context.Context, name, prompt string) (*models.Feedback, error) {
	var response string
	err := retry.Do(ctx, g.retry, name, func() error {
		var rerr error
		response, rerr = llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
			llms.WithMaxTokens(g.cfg.MaxTokens))
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	log.Debug().Str("op", name).Int("response_bytes", len(response)).Msg("model response received")
	return ai.ParseFeedback(response)
}

func (g *Generator) Review(ctx context.Context, pr *models.PullRequestContext, opts ai.ReviewOptions) (*models.Feedback, error) {
	return g.generate(ctx, "ai.review", ai.ReviewPrompt(pr, opts))
}

func (g *Generator) Improve(ctx context.Context, pr *models.PullRequestContext, opts ai.ReviewOptions) (*models.Feedback, error) {
	fb, err := g.generate(ctx, "ai.improve", ai.ImprovePrompt(pr, opts))
	if err != nil {
		return nil, err
	}
	// Improve is suggestions only; a stray summary is dropped.
	fb.Summary = ""
	return fb, nil
}

func (g *Generator) Describe(ctx context.Context, pr *models.PullRequestContext) (*models.Feedback, error) {
	fb, err := g.generate(ctx, "ai.describe", ai.DescribePrompt(pr))
	if err != nil {
		return nil, err
	}
	if fb.Description == "" {
		return nil, fmt.Errorf("model returned no description")
	}
	return fb, nil
}

func (g *Generator) ChangelogEntry(ctx context.Context, pr *models.PullRequestContext) (string, error) {
	fb, err := g.generate(ctx, "ai.changelog", ai.ChangelogPrompt(pr))
	if err != nil {
		return "", err
	}
	if fb.Entry == "" {
		return "", fmt.Errorf("model returned no changelog entry")
	}
	return fb.Entry, nil
}
