package record

import (
	"regexp"
	"strings"
)

var yearPattern = regexp.MustCompile(`(?:^|\D)(1\d{3}|20\d{2})(?:\D|$)`)

// ExtractYear returns the first plausible four digit year in s. When there is
// none the text is returned with surrounding punctuation removed, since
// sources also give ranges and circa dates.
func ExtractYear(s string) string {
	if m := yearPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.Trim(strings.TrimSpace(s), " /:;,=.[]")
}

// FindYear returns the first plausible four digit year in s, or "".
func FindYear(s string) string {
	if m := yearPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
