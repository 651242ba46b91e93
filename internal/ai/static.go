package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshally/pr-agent/pkg/models"
)

// Static returns canned feedback derived from the diff itself without
// calling a model. It backs dry runs and tests.
type Static struct{}

var _ Generator = (*Static)(nil)

func NewStatic() *Static { return &Static{} }

func (s *Static) Name() string { return "static" }

func (s *Static) Review(ctx context.Context, pr *models.PullRequestContext, opts ReviewOptions) (*models.Feedback, error) {
	return &models.Feedback{
		Summary:     s.summary(pr),
		Suggestions: s.suggestions(pr, opts),
	}, nil
}

func (s *Static) Improve(ctx context.Context, pr *models.PullRequestContext, opts ReviewOptions) (*models.Feedback, error) {
	return &models.Feedback{Suggestions: s.suggestions(pr, opts)}, nil
}

func (s *Static) Describe(ctx context.Context, pr *models.PullRequestContext) (*models.Feedback, error) {
	var b strings.Builder
	b.WriteString("## What\n\nChanges in this pull request:\n\n")
	for _, f := range pr.Files {
		fmt.Fprintf(&b, "- %s (%s)\n", f.Path, f.Kind)
	}
	return &models.Feedback{Title: pr.Title, Description: b.String()}, nil
}

func (s *Static) ChangelogEntry(ctx context.Context, pr *models.PullRequestContext) (string, error) {
	title := pr.Title
	if title == "" {
		title = "Miscellaneous changes"
	}
	return fmt.Sprintf("- %s (%s)", title, pr.URL), nil
}

func (s *Static) summary(pr *models.PullRequestContext) string {
	added, removed := 0, 0
	for _, f := range pr.Files {
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				switch l.Kind {
				case models.LineAdded:
					added++
				case models.LineRemoved:
					removed++
				}
			}
		}
	}
	return fmt.Sprintf("Reviewed %d files: +%d/-%d lines.", len(pr.Files), added, removed)
}

// suggestions anchors one placeholder suggestion on the first added
// line of each file, capped by NumSuggestions.
func (s *Static) suggestions(pr *models.PullRequestContext, opts ReviewOptions) []models.Suggestion {
	limit := opts.NumSuggestions
	if limit <= 0 {
		limit = 4
	}
	var out []models.Suggestion
	for _, f := range pr.Files {
		if len(out) >= limit {
			break
		}
		for _, h := range f.Hunks {
			found := false
			for _, l := range h.Lines {
				if l.Kind == models.LineAdded {
					out = append(out, models.Suggestion{
						FilePath:  f.Path,
						StartLine: l.NewLine,
						EndLine:   l.NewLine,
						Rationale: "Consider adding a test covering this change.",
						Category:  "tests",
					})
					found = true
					break
				}
			}
			if found {
				break
			}
		}
	}
	return out
}
