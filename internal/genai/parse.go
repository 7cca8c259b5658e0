package genai

import (
	"encoding/json"
	"strings"
)

// firstJSONObject extracts the JSON object from a raw model response: the
// span from the first '{' to the last '}'. Models routinely wrap the object
// in prose or a markdown fence, so anything outside that span is dropped.
func firstJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// decodeObject parses the first JSON object found in raw into out. A false
// return means the caller should use its fallback value.
func decodeObject(raw string, out any) bool {
	obj, found := firstJSONObject(raw)
	if !found {
		return false
	}
	return json.Unmarshal([]byte(obj), out) == nil
}
