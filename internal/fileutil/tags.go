package fileutil

import (
	"regexp"
	"sort"
	"strings"
)

var (
	tagWhitespace = regexp.MustCompile(`\s+`)
	tagInvalid    = regexp.MustCompile(`[^\p{L}\p{N}_/-]+`)
	tagHyphens    = regexp.MustCompile(`-{2,}`)
)

// NormalizeTag turns free text into an Obsidian tag. Case is preserved,
// whitespace becomes hyphens and "/" is kept for hierarchy. Returns "" when
// nothing usable is left.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	if tag == "" {
		return ""
	}
	tag = strings.ReplaceAll(tag, "&", "and")
	tag = tagWhitespace.ReplaceAllString(tag, "-")
	tag = tagInvalid.ReplaceAllString(tag, "")
	tag = tagHyphens.ReplaceAllString(tag, "-")
	return strings.Trim(tag, "-/")
}

// TagSet collects normalized, deduplicated tags.
type TagSet struct {
	tags map[string]bool
}

func NewTagSet() *TagSet {
	return &TagSet{tags: make(map[string]bool)}
}

// Add normalizes tag and adds it. Empty results are dropped.
func (ts *TagSet) Add(tag string) *TagSet {
	if normalized := NormalizeTag(tag); normalized != "" {
		ts.tags[normalized] = true
	}
	return ts
}

// AddPrefixed adds every value under prefix, e.g. "subject/Dogmatik".
func (ts *TagSet) AddPrefixed(prefix string, values []string) *TagSet {
	for _, v := range values {
		if n := NormalizeTag(strings.ReplaceAll(v, "/", " ")); n != "" {
			ts.Add(prefix + "/" + n)
		}
	}
	return ts
}

// Sorted returns the tags in lexical order.
func (ts *TagSet) Sorted() []string {
	out := make([]string, 0, len(ts.tags))
	for tag := range ts.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
