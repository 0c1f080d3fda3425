package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanText strips HTML markup from a description fragment, collapses
// whitespace runs to single spaces and trims the result.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	stripped := stripTags(text)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(stripped, " "))
}

// stripTags drops every tag and keeps text content, entities decoded. The
// tokenizer never fails on truncated markup, it just stops emitting tokens.
func stripTags(text string) string {
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
		}
	}
}
