package diff

import (
	"strings"

	"github.com/marshally/pr-agent/pkg/models"
)

// RenderBody renders the markdown body for a suggestion comment: the
// rationale, then the replacement inside a suggestion fence when present.
// The output never ends in a newline; earlier renditions of this kind of
// tool appended one after the fence and providers displayed a spurious
// blank line.
func RenderBody(s models.Suggestion) string {
	var sb strings.Builder

	if s.Category != "" {
		sb.WriteString("**Category: ")
		sb.WriteString(s.Category)
		sb.WriteString("**\n\n")
	}

	sb.WriteString(strings.TrimRight(s.Rationale, "\n"))

	if s.Replacement != "" {
		sb.WriteString("\n\n```suggestion\n")
		sb.WriteString(strings.TrimRight(s.Replacement, "\n"))
		sb.WriteString("\n```")
	}

	return sb.String()
}
