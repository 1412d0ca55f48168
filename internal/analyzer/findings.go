package analyzer

import (
	"encoding/json"
	"strings"
)

type finding struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// parseFindings decodes a findings array from a completion response,
// tolerating markdown code fences and surrounding prose.
func parseFindings(resp string) ([]finding, error) {
	text := stripFences(resp)

	// Models sometimes wrap the array in prose. Take the outermost
	// bracketed region when direct decoding fails.
	var findings []finding
	if err := json.Unmarshal([]byte(text), &findings); err == nil {
		return findings, nil
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, errNoFindingsArray
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

var errNoFindingsArray = jsonError("response contained no findings array")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// stripFences removes a wrapping markdown code fence if present.
func stripFences(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
