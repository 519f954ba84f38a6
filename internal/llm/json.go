package llm

import (
	"encoding/json"
	"strings"
)

// DecodeJSONResponse strictly decodes an LLM response into dst, tolerating
// markdown code fences around the payload. Unknown fields are rejected so a
// drifting response shape surfaces as a parse failure, not silent zeros.
func DecodeJSONResponse(text string, dst any) error {
	dec := json.NewDecoder(strings.NewReader(StripCodeFences(text)))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// StripCodeFences removes a surrounding markdown code block, if present.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.Join(lines[1:endIdx], "\n")
}
