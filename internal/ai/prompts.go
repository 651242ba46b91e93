package ai

import (
	"fmt"
	"strings"

	"github.com/marshally/pr-agent/pkg/models"
)

// FormatHunk renders a hunk as an OLD | NEW | CONTENT table so the
// model can cite exact new-file line numbers in its suggestions.
func FormatHunk(h models.Hunk) string {
	var b strings.Builder
	if h.Header != "" {
		b.WriteString(h.Header + "\n")
	}
	b.WriteString("OLD | NEW | CONTENT\n")
	b.WriteString("----|-----|--------\n")
	for _, line := range h.Lines {
		oldNum, newNum, prefix := "   ", "   ", " "
		switch line.Kind {
		case models.LineAdded:
			newNum = fmt.Sprintf("%3d", line.NewLine)
			prefix = "+"
		case models.LineRemoved:
			oldNum = fmt.Sprintf("%3d", line.OldLine)
			prefix = "-"
		default:
			oldNum = fmt.Sprintf("%3d", line.OldLine)
			newNum = fmt.Sprintf("%3d", line.NewLine)
		}
		fmt.Fprintf(&b, "%s | %s | %s%s\n", oldNum, newNum, prefix, line.Content)
	}
	return b.String()
}

// FormatFiles renders every changed file for inclusion in a prompt.
func FormatFiles(files []models.FilePatch) string {
	var b strings.Builder
	for _, f := range files {
		switch f.Kind {
		case models.ChangeRenamed:
			fmt.Fprintf(&b, "## File: %s (renamed from %s)\n\n", f.Path, f.OldPath)
		case models.ChangeDeleted:
			fmt.Fprintf(&b, "## File: %s (deleted)\n\n", f.Path)
		case models.ChangeAdded:
			fmt.Fprintf(&b, "## File: %s (new file)\n\n", f.Path)
		default:
			fmt.Fprintf(&b, "## File: %s\n\n", f.Path)
		}
		for _, h := range f.Hunks {
			b.WriteString(FormatHunk(h))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func prHeader(pr *models.PullRequestContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", pr.Title)
	fmt.Fprintf(&b, "Source branch: %s\nTarget branch: %s\n", pr.SourceBranch, pr.TargetBranch)
	if pr.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", pr.Description)
	}
	return b.String()
}

// ReviewPrompt asks for a summary and inline suggestions referencing
// NEW column line numbers only.
func ReviewPrompt(pr *models.PullRequestContext, opts ReviewOptions) string {
	var b strings.Builder
	b.WriteString("You are an experienced code reviewer. Review the following pull request diff.\n\n")
	b.WriteString(prHeader(pr))
	b.WriteString("\n")
	b.WriteString(FormatFiles(pr.Files))

	n := opts.NumSuggestions
	if n <= 0 {
		n = 4
	}
	fmt.Fprintf(&b, "\nProvide a short review summary and up to %d concrete suggestions.\n", n)
	b.WriteString("Suggestions must reference line numbers from the NEW column only, and each\n")
	b.WriteString("range must stay within a single hunk. Only comment on added or context lines.\n")
	if opts.RequireTests {
		b.WriteString("Flag changes that lack test coverage.\n")
	}
	if opts.RequireSecurity {
		b.WriteString("Flag any security concerns such as injection, secrets, or unsafe input handling.\n")
	}
	if opts.ExtraInstructions != "" {
		b.WriteString("\nAdditional instructions:\n" + opts.ExtraInstructions + "\n")
	}
	b.WriteString(`
Respond with JSON only, in this exact shape:
{
  "summary": "markdown summary of the change and overall assessment",
  "suggestions": [
    {
      "file_path": "path/to/file",
      "start_line": 10,
      "end_line": 12,
      "replacement": "replacement code for those lines, or empty if none",
      "rationale": "why this change helps",
      "category": "bug|performance|security|style|tests"
    }
  ]
}
`)
	return b.String()
}

// ImprovePrompt asks only for code suggestions with replacements.
func ImprovePrompt(pr *models.PullRequestContext, opts ReviewOptions) string {
	var b strings.Builder
	b.WriteString("You are an experienced engineer proposing concrete code improvements.\n\n")
	b.WriteString(prHeader(pr))
	b.WriteString("\n")
	b.WriteString(FormatFiles(pr.Files))

	n := opts.NumSuggestions
	if n <= 0 {
		n = 4
	}
	fmt.Fprintf(&b, "\nPropose up to %d improvements. Every suggestion must include a non-empty\n", n)
	b.WriteString("replacement that can be applied verbatim to the cited NEW line range.\n")
	if opts.ExtraInstructions != "" {
		b.WriteString("\nAdditional instructions:\n" + opts.ExtraInstructions + "\n")
	}
	b.WriteString(`
Respond with JSON only:
{
  "suggestions": [
    {
      "file_path": "path/to/file",
      "start_line": 10,
      "end_line": 12,
      "replacement": "replacement code",
      "rationale": "why this change helps",
      "category": "bug|performance|security|style|tests"
    }
  ]
}
`)
	return b.String()
}

// DescribePrompt asks for a generated title and description.
func DescribePrompt(pr *models.PullRequestContext) string {
	var b strings.Builder
	b.WriteString("Summarize the following pull request for its description.\n\n")
	b.WriteString(prHeader(pr))
	b.WriteString("\n")
	b.WriteString(FormatFiles(pr.Files))
	b.WriteString(`
Respond with JSON only:
{
  "title": "concise imperative title",
  "description": "markdown description with a What/Why section and a bullet list of changes"
}
`)
	return b.String()
}

// ChangelogPrompt asks for a changelog fragment for this change.
func ChangelogPrompt(pr *models.PullRequestContext) string {
	var b strings.Builder
	b.WriteString("Write a changelog entry for the following pull request.\n\n")
	b.WriteString(prHeader(pr))
	b.WriteString("\n")
	b.WriteString(FormatFiles(pr.Files))
	b.WriteString(`
Respond with JSON only:
{
  "entry": "one or more markdown bullet lines describing user-visible changes"
}
`)
	return b.String()
}
