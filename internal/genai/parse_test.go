package genai

import "testing"

func TestFirstJSONObject(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		want  string
		found bool
	}{
		{name: "bare object", raw: `{"a":1}`, want: `{"a":1}`, found: true},
		{name: "markdown fence", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`, found: true},
		{name: "prose around", raw: `Here you go: {"a":1} hope it helps`, want: `{"a":1}`, found: true},
		{name: "nested objects", raw: `x {"a":{"b":2}} y`, want: `{"a":{"b":2}}`, found: true},
		{name: "no object", raw: "plain text only"},
		{name: "only open brace", raw: "{ unterminated"},
		{name: "empty", raw: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := firstJSONObject(tc.raw)
			if found != tc.found {
				t.Fatalf("found = %v, want %v", found, tc.found)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeObject(t *testing.T) {
	var out SummaryResult
	raw := "Sure! ```json\n{\"summary\":\"s\",\"keyPoints\":[\"k\"],\"concepts\":[\"c\"],\"estimatedReadingTime\":3}\n```"
	if !decodeObject(raw, &out) {
		t.Fatal("decodeObject returned false for valid payload")
	}
	if out.Summary != "s" || len(out.KeyPoints) != 1 || out.EstimatedReadingTime != 3 {
		t.Fatalf("unexpected decode: %+v", out)
	}

	if decodeObject(`{"summary": broken`, &out) {
		t.Fatal("decodeObject accepted malformed JSON")
	}
	if decodeObject("no braces at all", &out) {
		t.Fatal("decodeObject accepted text without an object")
	}
}
