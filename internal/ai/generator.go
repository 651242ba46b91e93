package ai

import (
	"context"
	"fmt"

	"github.com/marshally/pr-agent/pkg/models"
)

// ReviewOptions tunes what the generator is asked for.
type ReviewOptions struct {
	NumSuggestions    int
	RequireTests      bool
	RequireSecurity   bool
	ExtraInstructions string
}

// Generator produces feedback for a pull request. Implementations
// wrap a model backend; the pipeline only sees structured results.
type Generator interface {
	// Review returns a summary plus inline suggestions.
	Review(ctx context.Context, pr *models.PullRequestContext, opts ReviewOptions) (*models.Feedback, error)

	// Describe returns a generated title and description.
	Describe(ctx context.Context, pr *models.PullRequestContext) (*models.Feedback, error)

	// Improve returns code suggestions without a summary.
	Improve(ctx context.Context, pr *models.PullRequestContext, opts ReviewOptions) (*models.Feedback, error)

	// ChangelogEntry returns one markdown bullet list describing the change.
	ChangelogEntry(ctx context.Context, pr *models.PullRequestContext) (string, error)

	// Name returns the generator's registered name.
	Name() string
}

// Factory creates generators by name from a config table.
type Factory struct {
	builders map[string]func(config map[string]interface{}) (Generator, error)
}

func NewFactory() *Factory {
	return &Factory{builders: make(map[string]func(map[string]interface{}) (Generator, error))}
}

func (f *Factory) Register(name string, build func(config map[string]interface{}) (Generator, error)) {
	f.builders[name] = build
}

func (f *Factory) Create(name string, config map[string]interface{}) (Generator, error) {
	build, ok := f.builders[name]
	if !ok {
		return nil, fmt.Errorf("ai generator not found: %s", name)
	}
	return build(config)
}
