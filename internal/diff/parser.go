package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/marshally/pr-agent/pkg/models"
)

// hunkHeaderRE matches "@@ -1,3 +1,4 @@ optional section heading". Either
// count may be omitted for single-line hunks ("@@ -1 +1 @@").
var hunkHeaderRE = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@ ?(.*)`)

var fileHeaderRE = regexp.MustCompile(`(?m)^diff --git a/`)

// Parser turns unified diff text into the structured FilePatch model with
// per-line old/new numbering.
type Parser struct{}

// NewParser creates a new diff parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses a full multi-file unified diff.
func (p *Parser) Parse(diffText string) ([]models.FilePatch, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, nil
	}

	chunks := fileHeaderRE.Split(diffText, -1)
	var patches []models.FilePatch
	for _, chunk := range chunks[1:] {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		full := "diff --git a/" + chunk
		lines := strings.Split(full, "\n")

		oldPath, newPath := parseFileHeader(lines[0])
		kind := detectChangeKind(lines, oldPath, newPath)

		hunks, err := p.parseHunks(lines)
		if err != nil {
			return nil, fmt.Errorf("parsing hunks for %s: %w", newPath, err)
		}

		patch := models.FilePatch{Path: newPath, Kind: kind, Hunks: hunks}
		if kind == models.ChangeRenamed {
			patch.OldPath = oldPath
		}
		patches = append(patches, patch)
	}

	return patches, nil
}

// ParseFilePatch parses the patch text of a single file, as returned by
// per-file provider APIs (GitHub pull files, GitLab MR changes).
func (p *Parser) ParseFilePatch(path, oldPath string, kind models.ChangeKind, patch string) (models.FilePatch, error) {
	fp := models.FilePatch{Path: path, Kind: kind}
	if kind == models.ChangeRenamed && oldPath != path {
		fp.OldPath = oldPath
	}
	if strings.TrimSpace(patch) == "" {
		return fp, nil
	}

	hunks, err := p.parseHunks(strings.Split(patch, "\n"))
	if err != nil {
		return models.FilePatch{}, fmt.Errorf("parsing patch for %s: %w", path, err)
	}
	fp.Hunks = hunks
	return fp, nil
}

func parseFileHeader(header string) (string, string) {
	parts := strings.Fields(header)
	if len(parts) == 4 {
		return strings.TrimPrefix(parts[2], "a/"), strings.TrimPrefix(parts[3], "b/")
	}
	return "", ""
}

func detectChangeKind(lines []string, oldPath, newPath string) models.ChangeKind {
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "new file mode"):
			return models.ChangeAdded
		case strings.HasPrefix(line, "deleted file mode"):
			return models.ChangeDeleted
		case strings.HasPrefix(line, "rename from"):
			return models.ChangeRenamed
		case strings.HasPrefix(line, "@@"):
			// Past the header block.
			if oldPath != newPath && oldPath != "" {
				return models.ChangeRenamed
			}
			return models.ChangeModified
		}
	}
	if oldPath != newPath && oldPath != "" {
		return models.ChangeRenamed
	}
	return models.ChangeModified
}

func (p *Parser) parseHunks(lines []string) ([]models.Hunk, error) {
	var hunks []models.Hunk

	for i := 0; i < len(lines); i++ {
		matches := hunkHeaderRE.FindStringSubmatch(lines[i])
		if matches == nil {
			continue
		}

		oldStart, _ := strconv.Atoi(matches[1])
		oldCount := 1
		if matches[2] != "" {
			oldCount, _ = strconv.Atoi(matches[2])
		}
		newStart, _ := strconv.Atoi(matches[3])
		newCount := 1
		if matches[4] != "" {
			newCount, _ = strconv.Atoi(matches[4])
		}

		hunk := models.Hunk{
			OldStart: oldStart,
			OldLines: oldCount,
			NewStart: newStart,
			NewLines: newCount,
			Header:   strings.TrimSpace(matches[5]),
		}

		oldLineNo, newLineNo := oldStart, newStart

		i++
		for ; i < len(lines); i++ {
			line := lines[i]
			if strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "diff --git") {
				i--
				break
			}

			switch {
			case strings.HasPrefix(line, "+"):
				hunk.Lines = append(hunk.Lines, models.Line{
					Kind: models.LineAdded, Content: line[1:], NewLine: newLineNo,
				})
				newLineNo++
			case strings.HasPrefix(line, "-"):
				hunk.Lines = append(hunk.Lines, models.Line{
					Kind: models.LineRemoved, Content: line[1:], OldLine: oldLineNo,
				})
				oldLineNo++
			case strings.HasPrefix(line, " "):
				hunk.Lines = append(hunk.Lines, models.Line{
					Kind: models.LineContext, Content: line[1:], OldLine: oldLineNo, NewLine: newLineNo,
				})
				oldLineNo++
				newLineNo++
			case line == `\ No newline at end of file`:
				// Metadata marker, not a diff line.
			case line == "" && i == len(lines)-1:
				// Trailing newline from the final split.
			default:
				// Some generators emit empty context lines without the
				// leading space.
				hunk.Lines = append(hunk.Lines, models.Line{
					Kind: models.LineContext, Content: line, OldLine: oldLineNo, NewLine: newLineNo,
				})
				oldLineNo++
				newLineNo++
			}
		}
		hunks = append(hunks, hunk)
	}

	return hunks, nil
}
