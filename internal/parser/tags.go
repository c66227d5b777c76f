// Package parser extracts structured signals from note content: hashtag
// tags, due-date markers and AI prompt spans.
package parser

import (
	"regexp"
	"sort"
)

var tagPattern = regexp.MustCompile(`#(\w+)`)

// ExtractTags returns the distinct #word tokens in text, without the leading
// '#', sorted. The result is never nil.
func ExtractTags(text string) []string {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	sort.Strings(tags)
	return tags
}

// TagsFromContent extracts tags from the plain-text rendering of a note body.
func TagsFromContent(content, format string) []string {
	return ExtractTags(PlainText(content, format))
}
