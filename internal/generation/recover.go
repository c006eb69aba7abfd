package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

// DecodeJSON unmarshals model output into out. When the raw text is not valid
// JSON it retries once without markdown code fences and once more with only
// the outermost {...} span.
func DecodeJSON(raw string, out any) error {
	candidates := []string{strings.TrimSpace(raw)}
	if trimmed := trimFences(raw); trimmed != candidates[0] {
		candidates = append(candidates, trimmed)
	}
	if obj := outermostObject(raw); obj != "" {
		candidates = append(candidates, obj)
	}

	var firstErr error
	for _, c := range candidates {
		if c == "" {
			continue
		}
		err := json.Unmarshal([]byte(c), out)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		return fmt.Errorf("%w: empty model output", apperrors.ErrInvalidArgument)
	}
	return fmt.Errorf("%w: malformed model JSON: %v", apperrors.ErrInvalidArgument, firstErr)
}

func trimFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line (```json)
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func outermostObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// ParseSectionDraft decodes and validates a section generation payload.
func ParseSectionDraft(raw string) (*SectionDraft, error) {
	var d SectionDraft
	if err := DecodeJSON(raw, &d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.ContentMarkdown) == "" {
		return nil, fmt.Errorf("%w: content_markdown is empty", apperrors.ErrInvalidArgument)
	}
	return &d, nil
}

// ParseStructure decodes and validates a discovery payload.
func ParseStructure(raw string) (*Structure, error) {
	var s Structure
	if err := DecodeJSON(raw, &s); err != nil {
		return nil, err
	}
	if len(s.Chapters) == 0 {
		return nil, fmt.Errorf("%w: structure has no chapters", apperrors.ErrInvalidArgument)
	}
	return &s, nil
}
