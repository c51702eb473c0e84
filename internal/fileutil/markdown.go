package fileutil

import (
	"fmt"
	"strings"
)

// MarkdownBuilder helps construct markdown notes with frontmatter
type MarkdownBuilder struct {
	frontmatter strings.Builder
	content     strings.Builder
}

// NewMarkdownBuilder creates a new markdown builder
func NewMarkdownBuilder() *MarkdownBuilder {
	mb := &MarkdownBuilder{}
	mb.frontmatter.WriteString("---\n")
	return mb
}

// quote renders v as a double-quoted YAML scalar.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// AddTitle adds a title field to the frontmatter
func (mb *MarkdownBuilder) AddTitle(title string) *MarkdownBuilder {
	fmt.Fprintf(&mb.frontmatter, "title: %s\n", quote(title))
	return mb
}

// AddType adds a type field to the frontmatter
func (mb *MarkdownBuilder) AddType(itemType string) *MarkdownBuilder {
	fmt.Fprintf(&mb.frontmatter, "type: %s\n", itemType)
	return mb
}

// AddField adds a quoted key-value field, skipping empty values
func (mb *MarkdownBuilder) AddField(key, value string) *MarkdownBuilder {
	if value != "" {
		fmt.Fprintf(&mb.frontmatter, "%s: %s\n", key, quote(value))
	}
	return mb
}

// AddStringArray adds an array of strings to the frontmatter
func (mb *MarkdownBuilder) AddStringArray(key string, values []string) *MarkdownBuilder {
	if len(values) == 0 {
		return mb
	}

	mb.frontmatter.WriteString(key + ":\n")
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			fmt.Fprintf(&mb.frontmatter, "  - %s\n", quote(value))
		}
	}
	return mb
}

// AddTags adds a list of tags to the frontmatter
func (mb *MarkdownBuilder) AddTags(tags ...string) *MarkdownBuilder {
	var kept []string
	for _, tag := range tags {
		if tag != "" {
			kept = append(kept, tag)
		}
	}
	if len(kept) == 0 {
		return mb
	}

	mb.frontmatter.WriteString("tags:\n")
	for _, tag := range kept {
		fmt.Fprintf(&mb.frontmatter, "  - %s\n", tag)
	}
	return mb
}

// DecadeTag returns a decade tag such as "year/1930s", or "" when year is
// not a four digit year.
func DecadeTag(year string) string {
	if len(year) != 4 || strings.Trim(year, "0123456789") != "" {
		return ""
	}
	return "year/" + year[:3] + "0s"
}

// AddHeading adds a level one heading to the content
func (mb *MarkdownBuilder) AddHeading(text string) *MarkdownBuilder {
	fmt.Fprintf(&mb.content, "# %s\n\n", text)
	return mb
}

// AddParagraph adds a paragraph of text to the content
func (mb *MarkdownBuilder) AddParagraph(text string) *MarkdownBuilder {
	if text == "" {
		return mb
	}

	mb.content.WriteString(text)
	mb.content.WriteString("\n\n")
	return mb
}

// AddCallout adds a collapsed callout section to the content
func (mb *MarkdownBuilder) AddCallout(calloutType, title, content string) *MarkdownBuilder {
	if content == "" {
		return mb
	}

	if title != "" {
		fmt.Fprintf(&mb.content, ">[!%s]- %s\n", calloutType, title)
	} else {
		fmt.Fprintf(&mb.content, ">[!%s]\n", calloutType)
	}
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&mb.content, "> %s\n", line)
	}
	mb.content.WriteString("\n")
	return mb
}

// AddLinksCallout adds a callout listing links in the given order
func (mb *MarkdownBuilder) AddLinksCallout(title string, links []string) *MarkdownBuilder {
	if len(links) == 0 {
		return mb
	}

	mb.content.WriteString(">[!info]- " + title + "\n")
	for _, link := range links {
		fmt.Fprintf(&mb.content, "> <%s>\n", link)
	}
	mb.content.WriteString("\n")
	return mb
}

// Build returns the complete markdown document as a string
func (mb *MarkdownBuilder) Build() string {
	var doc strings.Builder
	doc.WriteString(mb.frontmatter.String())
	doc.WriteString("---\n\n")
	doc.WriteString(mb.content.String())
	return doc.String()
}
