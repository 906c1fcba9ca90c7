package htmlutil

import (
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

var (
	tagRE        = regexp.MustCompile(`<[^>]+>`)
	paragraphRE  = regexp.MustCompile(`(?i)</?p\s*>`)
	whitespaceRE = regexp.MustCompile(`[ \t\f\r\x{00A0}]+`)
)

// blockTags produce a line break when they open or close.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "tr": true,
}

// StripTags converts an HTML fragment into plain text. Block level elements
// become line breaks, entities are decoded, and runs of spaces are collapsed.
// Empty lines are dropped.
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				// Malformed markup: fall back to the blunt version.
				return Sanitize(s)
			}
			break
		}
		switch tt {
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte('\n')
			}
		}
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(whitespaceRE.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Sanitize flattens text that may carry markup into a single clean line:
// entities are decoded, tags removed, and all whitespace collapsed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = tagRE.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// CleanString removes paragraph tags some exporters wrap around values and
// trims the result.
func CleanString(s string) string {
	return strings.TrimSpace(paragraphRE.ReplaceAllString(s, ""))
}

// Unescape decodes HTML entities without touching markup.
func Unescape(s string) string {
	return html.UnescapeString(s)
}
