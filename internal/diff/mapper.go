package diff

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/marshally/pr-agent/pkg/models"
)

// SuggestionInvalidError marks a suggestion that cannot be anchored to the
// current diff. It is never fatal: the pipeline drops the suggestion and
// records the reason.
type SuggestionInvalidError struct {
	FilePath  string
	StartLine int
	EndLine   int
	Reason    string
}

func (e *SuggestionInvalidError) Error() string {
	return fmt.Sprintf("suggestion %s:%d-%d invalid: %s", e.FilePath, e.StartLine, e.EndLine, e.Reason)
}

type indexEntry struct {
	line    models.Line
	hunkIdx int
}

type fileIndex struct {
	patch models.FilePatch
	byNew map[int]indexEntry
}

// Index is the addressable coordinate space of one diff: a per-file lookup
// from new-file line number to the hunk and line entry holding it.
type Index struct {
	refs  models.DiffRefs
	files map[string]*fileIndex
}

// BuildIndex constructs the lookup in one pass over the diff, O(total
// lines). Removed lines carry no new-file number and are deliberately
// absent from the index.
func BuildIndex(patches []models.FilePatch, refs models.DiffRefs) *Index {
	ix := &Index{refs: refs, files: make(map[string]*fileIndex, len(patches))}
	for _, patch := range patches {
		fi := &fileIndex{patch: patch, byNew: make(map[int]indexEntry)}
		for h, hunk := range patch.Hunks {
			for _, line := range hunk.Lines {
				if line.Kind == models.LineRemoved {
					continue
				}
				fi.byNew[line.NewLine] = indexEntry{line: line, hunkIdx: h}
			}
		}
		ix.files[patch.Path] = fi
	}
	return ix
}

// ResolveOptions carries the active provider's relevant capabilities.
type ResolveOptions struct {
	// RangeComments is true when the provider can anchor one comment to a
	// span of lines. Without it a multi-line range collapses to its last
	// line, which is lossy but explicit.
	RangeComments bool
}

// Resolve translates a suggestion's logical (file, new-line range)
// reference into a provider-agnostic comment anchor. A suggestion
// referencing a deleted file, a line outside every hunk, or a range that
// straddles two hunks yields a SuggestionInvalidError.
func (ix *Index) Resolve(s models.Suggestion, opts ResolveOptions) (models.ProviderComment, error) {
	start, end := s.StartLine, s.EndLine
	if end == 0 {
		end = start
	}
	if start <= 0 || end < start {
		return models.ProviderComment{}, ix.invalid(s, "malformed line range")
	}

	fi, ok := ix.files[s.FilePath]
	if !ok {
		return models.ProviderComment{}, ix.invalid(s, "file not in diff")
	}
	if fi.patch.Kind == models.ChangeDeleted {
		return models.ProviderComment{}, ix.invalid(s, "file was deleted")
	}

	hunkIdx := -1
	var anchorEntry indexEntry
	for n := start; n <= end; n++ {
		entry, ok := fi.byNew[n]
		if !ok {
			return models.ProviderComment{}, ix.invalid(s, fmt.Sprintf("line %d not visible in diff", n))
		}
		if hunkIdx == -1 {
			hunkIdx = entry.hunkIdx
		} else if entry.hunkIdx != hunkIdx {
			// The range crosses a gap between hunks; there is no single
			// defensible anchor, so the suggestion is rejected.
			return models.ProviderComment{}, ix.invalid(s, "range spans multiple hunks")
		}
		anchorEntry = entry
	}

	anchor := models.Anchor{
		FilePath: s.FilePath,
		OldPath:  fi.patch.OldPath,
		Side:     models.SideNew,
		Line:     end,
		DiffRefs: ix.refs,
	}
	if anchorEntry.line.Kind == models.LineContext {
		anchor.OldLine = anchorEntry.line.OldLine
	}

	if start != end {
		if opts.RangeComments {
			anchor.StartLine = start
		} else {
			log.Debug().
				Str("file", s.FilePath).
				Int("start", start).
				Int("end", end).
				Msg("provider lacks range comments, collapsing anchor to last line")
		}
	}

	return models.ProviderComment{Anchor: anchor, Body: RenderBody(s)}, nil
}

func (ix *Index) invalid(s models.Suggestion, reason string) error {
	return &SuggestionInvalidError{
		FilePath:  s.FilePath,
		StartLine: s.StartLine,
		EndLine:   s.EndLine,
		Reason:    reason,
	}
}
