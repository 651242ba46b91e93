// Package changelog merges generated entries into a repository's
// changelog file through a provider's file-update capability.
package changelog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/pkg/models"
)

const unreleasedHeading = "## Unreleased"

// Updater inserts entries into a changelog file on the pull request's
// source branch.
type Updater struct {
	// Path of the changelog file in the repository.
	Path string
}

func New(path string) *Updater {
	if path == "" {
		path = "CHANGELOG.md"
	}
	return &Updater{Path: path}
}

// Apply reads the changelog, inserts the entry, and writes it back.
// A write conflict triggers exactly one re-read and re-insert before
// the error is surfaced.
func (u *Updater) Apply(ctx context.Context, prCtx *models.PullRequestContext, entry string, p providers.Provider) error {
	if !p.Supports(providers.CapUpdateFile) {
		return fmt.Errorf("provider %s cannot update files", p.Name())
	}
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return fmt.Errorf("empty changelog entry")
	}

	err := u.attempt(ctx, prCtx, entry, p)
	if providers.IsWriteConflict(err) {
		log.Warn().Str("path", u.Path).Msg("changelog write conflict, re-reading once")
		err = u.attempt(ctx, prCtx, entry, p)
	}
	return err
}

func (u *Updater) attempt(ctx context.Context, prCtx *models.PullRequestContext, entry string, p providers.Provider) error {
	ref, err := p.GetFile(ctx, prCtx, u.Path, prCtx.SourceBranch)
	if err != nil {
		return fmt.Errorf("read changelog: %w", err)
	}

	var content string
	if ref.Exists {
		content = Insert(ref.Content, entry)
	} else {
		content = newChangelog(entry)
	}

	message := fmt.Sprintf("Update %s", u.Path)
	if prCtx.Title != "" {
		message = fmt.Sprintf("Update %s for %q", u.Path, prCtx.Title)
	}
	return p.UpdateFile(ctx, prCtx, ref, content, message)
}

// Insert places the entry at the top of the "Unreleased" section if
// one exists, otherwise directly after any leading top-level heading,
// otherwise at the top of the file.
func Insert(content, entry string) string {
	lines := strings.Split(content, "\n")
	at := insertionPoint(lines)

	block := make([]string, 0, 3)
	if at > 0 && strings.TrimSpace(lines[at-1]) != "" {
		block = append(block, "")
	}
	block = append(block, entry)
	if at < len(lines) && strings.TrimSpace(lines[at]) != "" {
		block = append(block, "")
	}

	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:at]...)
	out = append(out, block...)
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n")
}

// insertionPoint returns the index of the first content line after
// the anchor heading, or the slot just past the anchor when nothing
// follows it.
func insertionPoint(lines []string) int {
	anchor := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), unreleasedHeading) {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		if len(lines) == 0 || !strings.HasPrefix(lines[0], "# ") {
			return 0
		}
		anchor = 0
	}
	for j := anchor + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) != "" {
			return j
		}
	}
	return anchor + 1
}

func newChangelog(entry string) string {
	return fmt.Sprintf("# Changelog\n\n%s\n\n%s\n", unreleasedHeading, entry)
}
