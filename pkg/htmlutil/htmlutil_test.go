package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"plain text", "Hello world", "Hello world"},
		{"paragraphs", "<p>First paragraph</p><p>Second paragraph</p>", "First paragraph\nSecond paragraph"},
		{"nested inline tags", "<p><strong>Bold</strong> and <em>italic</em></p>", "Bold and italic"},
		{"br variants", "Line one<br>Line two<br/>Line three<br />Line four", "Line one\nLine two\nLine three\nLine four"},
		{"goodreads blurb", `<div><p style="font-weight: 600">The Final Empire <em>falls</em>.</p><p>Kelsier has a plan.</p></div>`, "The Final Empire falls.\nKelsier has a plan."},
		{"entities", "Tom &amp; Jerry &mdash; the classic", "Tom & Jerry — the classic"},
		{"nbsp", "Hello&nbsp;world", "Hello world"},
		{"collapse spaces", "Too    many    spaces", "Too many spaces"},
		{"list items", "<ul><li>Item one</li><li>Item two</li></ul>", "Item one\nItem two"},
		{"self closing", "Text <img src='test.jpg'/> more text", "Text more text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, StripTags(tt.input))
		})
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"already clean", "Brandon Sanderson", "Brandon Sanderson"},
		{"escaped markup", "&lt;b&gt;Mistborn&lt;/b&gt;", "Mistborn"},
		{"raw markup", "<i>The</i>   Well of\n\nAscension ", "The Well of Ascension"},
		{"numeric entity", "Tor &#38; Forge", "Tor & Forge"},
		{"nbsp", "Michael&nbsp;Kramer", "Michael Kramer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestCleanString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "A heist story.", CleanString("<p>A heist story.</p>"))
	assert.Equal(t, "Two\nparagraphs", CleanString("<P>Two\n</P><p>paragraphs</p>"))
	assert.Equal(t, "<b>kept</b>", CleanString("  <b>kept</b> "))
	assert.Equal(t, "", CleanString(""))
}
