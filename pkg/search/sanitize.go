package search

import "strings"

const (
	minQueryLength = 2
	maxQueryLength = 200
)

// NormalizeQuery trims input, collapses runs of whitespace and caps its
// length. It returns "" for queries too short to search.
func NormalizeQuery(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	runes := []rune(input)
	if len(runes) < minQueryLength {
		return ""
	}
	if len(runes) > maxQueryLength {
		input = strings.TrimSpace(string(runes[:maxQueryLength]))
	}
	return input
}
