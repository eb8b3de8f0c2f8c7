package pipeline

import (
	"encoding/json"
	"strings"
)

// CleanJSON strips markdown code fences the model sometimes wraps around its
// JSON output. ```json and bare ``` openers are removed along with the
// closing fence; anything else passes through untouched.
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")

	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}

// CleanMarkdown strips markdown fences from a compiled text report.
func CleanMarkdown(input string) string {
	clean := strings.ReplaceAll(input, "```markdown", "")
	clean = strings.ReplaceAll(clean, "```", "")
	return strings.TrimSpace(clean)
}

// parseObject attempts to decode raw as a JSON object. On failure it makes
// one repair pass (fence strip) and retries. The bool reports success; the
// executor maps failure to the malformed status, never an error.
func parseObject(raw string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj, true
	}

	repaired := CleanJSON(raw)
	if err := json.Unmarshal([]byte(repaired), &obj); err == nil {
		return obj, true
	}
	return nil, false
}

// emptySentinel is the recovery value substituted for unparseable or invalid
// task output, per the task contract "return {} on failure".
func emptySentinel() map[string]interface{} {
	return map[string]interface{}{}
}
