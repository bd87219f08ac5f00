package coursegen

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedJSON     = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	outermostBrace = regexp.MustCompile(`(?s)\{.*\}`)
	trailingComma  = regexp.MustCompile(`,(\s*[}\]])`)
)

// ExtractJSON returns the JSON object embedded in generator text, or "" if
// there is none. A fenced ```json block wins; otherwise the span from the
// first '{' to the last '}' is used. Trailing commas before a closing
// bracket are removed only when the span does not already parse, so string
// values are left alone.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var candidate string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else {
		candidate = outermostBrace.FindString(text)
	}
	if candidate == "" || json.Valid([]byte(candidate)) {
		return candidate
	}
	return trailingComma.ReplaceAllString(candidate, "$1")
}
