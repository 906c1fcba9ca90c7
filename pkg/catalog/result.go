package catalog

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ShortDescriptionLength is the length a Result's Description is cut to.
const ShortDescriptionLength = 500

// Result is a single normalized hit from an external catalog. Every field
// except Source and Title may be empty.
type Result struct {
	Source          string `json:"source"`
	ID              string `json:"id"`
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	Description     string `json:"description"`
	FullDescription string `json:"full_description,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url"`
	PageCount       *int   `json:"page_count,omitempty"`
	Categories      string `json:"categories"`
	Publisher       string `json:"publisher"`
	PublishedDate   string `json:"published_date"`
	Language        string `json:"language"`
	Narrator        string `json:"narrator"`
	ListeningLength string `json:"listening_length"`
	Rating          string `json:"rating"`
	URL             string `json:"url"`
}

var byRE = regexp.MustCompile(`(?i) by `)

// SplitQuery splits "<title> by <author>" into its parts. ok is false when
// the query doesn't have that shape, in which case title is the whole query.
func SplitQuery(query string) (title, author string, ok bool) {
	loc := byRE.FindStringIndex(query)
	if loc == nil || loc[0] == 0 {
		return strings.TrimSpace(query), "", false
	}
	title = strings.TrimSpace(query[:loc[0]])
	author = strings.TrimSpace(query[loc[1]:])
	if title == "" || author == "" {
		return strings.TrimSpace(query), "", false
	}
	return title, author, true
}

// Keywords turns a query into the plain keyword form scraped sites expect.
func Keywords(query string) string {
	if title, author, ok := SplitQuery(query); ok {
		return title + " " + author
	}
	return strings.TrimSpace(query)
}

// Truncate shortens s to ShortDescriptionLength runes followed by "...".
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= ShortDescriptionLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:ShortDescriptionLength]) + "..."
}

// TitlesMatch reports whether either title contains the other, ignoring case.
func TitlesMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// BestMatch returns the first result whose title matches the target title,
// falling back to the first result. It returns nil for no results.
func BestMatch(results []Result, title string) *Result {
	if len(results) == 0 {
		return nil
	}
	for i := range results {
		if TitlesMatch(results[i].Title, title) {
			return &results[i]
		}
	}
	return &results[0]
}

// FilterSources keeps only results produced by the named sources, in their
// original order.
func FilterSources(results []Result, names ...string) []Result {
	out := []Result{}
	for _, r := range results {
		for _, n := range names {
			if r.Source == n {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
