package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// stripFences removes a surrounding markdown code fence, with or without a
// json language tag.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}
	return strings.TrimSpace(text)
}

// ParseJSONObject decodes a JSON object from a noisy model response. Code
// fences are stripped; when the remainder is not valid JSON the outermost
// brace-delimited span is tried. Unparseable input yields an empty map.
func ParseJSONObject(text string) map[string]any {
	text = stripFences(text)

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil && out != nil {
		return out
	}

	if m := objectPattern.FindString(text); m != "" {
		out = nil
		if err := json.Unmarshal([]byte(m), &out); err == nil && out != nil {
			return out
		}
	}
	return map[string]any{}
}
