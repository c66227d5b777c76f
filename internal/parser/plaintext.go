package parser

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	// Block boundaries become line breaks so words from adjacent paragraphs
	// never run together.
	blockBoundary = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6]|blockquote|pre|tr)>`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)

	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	// renderer produces display HTML for markdown notes.
	renderer = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.DefinitionList,
			extension.Footnote,
		),
		goldmark.WithParserOptions(
			gmparser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)
)

// PlainText renders a note body to the text a reader would see. Markdown is
// rendered to HTML first; anything else is treated as HTML markup.
func PlainText(content, format string) string {
	if content == "" {
		return ""
	}
	markup := content
	if format == "markdown" {
		var buf bytes.Buffer
		if err := md.Convert([]byte(content), &buf); err == nil {
			markup = buf.String()
		}
	}
	markup = blockBoundary.ReplaceAllString(markup, "$0\n")
	text := html.UnescapeString(stripPolicy.Sanitize(markup))
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// RenderMarkdown converts markdown source to HTML.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
