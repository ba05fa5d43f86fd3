package llm

import (
	"fmt"
	"strings"
)

// ExtractJSON strips markdown fences and surrounding prose from a model
// response, keeping the outermost JSON array or object. The inference
// service offers no schema guarantee, so every caller goes through this
// before unmarshalling.
func ExtractJSON(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	start := strings.IndexAny(raw, "[{")
	if start < 0 {
		return nil, fmt.Errorf("no json payload in response")
	}
	var end int
	if raw[start] == '[' {
		end = strings.LastIndex(raw, "]")
	} else {
		end = strings.LastIndex(raw, "}")
	}
	if end <= start {
		return nil, fmt.Errorf("unterminated json payload")
	}
	return []byte(raw[start : end+1]), nil
}
