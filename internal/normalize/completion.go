package normalize

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseCompletion extracts the JSON object from a text completion. The
// object may be wrapped in a ```json or bare ``` markdown fence.
func ParseCompletion(content string) (map[string]any, error) {
	body := strings.TrimSpace(content)
	switch {
	case strings.Contains(body, "```json"):
		body = fenced(body, "```json")
	case strings.Contains(body, "```"):
		body = fenced(body, "```")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, eris.Wrap(err, "normalize: parse completion json")
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func fenced(body, open string) string {
	_, after, _ := strings.Cut(body, open)
	inner, _, _ := strings.Cut(after, "```")
	return strings.TrimSpace(inner)
}
