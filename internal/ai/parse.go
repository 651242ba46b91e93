package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"

	"github.com/marshally/pr-agent/pkg/models"
)

type suggestionPayload struct {
	FilePath    string `json:"file_path"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Replacement string `json:"replacement"`
	Rationale   string `json:"rationale"`
	Category    string `json:"category"`
}

type feedbackPayload struct {
	Summary     string              `json:"summary"`
	Suggestions []suggestionPayload `json:"suggestions"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Entry       string              `json:"entry"`
}

// ParseFeedback decodes a model response into Feedback. Responses
// wrapped in markdown fences or with minor JSON damage are recovered
// with the jsonrepair fallback before giving up.
func ParseFeedback(response string) (*models.Feedback, error) {
	raw := extractJSON(response)

	var payload feedbackPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return nil, fmt.Errorf("parse model response: %w", err)
		}
		log.Debug().Msg("model response needed JSON repair")
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil, fmt.Errorf("parse repaired model response: %w", err)
		}
	}

	fb := &models.Feedback{
		Summary:     payload.Summary,
		Title:       strings.TrimSpace(payload.Title),
		Description: payload.Description,
		Entry:       strings.TrimSpace(payload.Entry),
	}
	for _, s := range payload.Suggestions {
		if s.FilePath == "" || s.StartLine <= 0 {
			log.Warn().Str("file", s.FilePath).Int("start", s.StartLine).
				Msg("dropping suggestion with missing location")
			continue
		}
		if s.EndLine < s.StartLine {
			s.EndLine = s.StartLine
		}
		fb.Suggestions = append(fb.Suggestions, models.Suggestion{
			FilePath:    s.FilePath,
			StartLine:   s.StartLine,
			EndLine:     s.EndLine,
			Replacement: s.Replacement,
			Rationale:   s.Rationale,
			Category:    s.Category,
		})
	}
	return fb, nil
}

// extractJSON strips a surrounding markdown code fence and any prose
// before the first brace.
func extractJSON(response string) string {
	s := strings.TrimSpace(response)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '{'); i > 0 {
		s = s[i:]
	}
	if j := strings.LastIndexByte(s, '}'); j >= 0 && j < len(s)-1 {
		s = s[:j+1]
	}
	return s
}
