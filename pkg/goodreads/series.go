package goodreads

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/htmlutil"
)

var (
	seriesOrderRE  = regexp.MustCompile(`#(\d+(?:\.\d+)?)`)
	seriesSuffixRE = regexp.MustCompile(`\s*\([^)]*#[^)]*\)\s*$`)

	collectionMarkers = []string{"collection", "omnibus", "box set", "boxed set"}
	languages         = []string{"Spanish", "French", "German", "Italian", "Portuguese", "Japanese", "Chinese"}
)

const defaultLanguage = "English"

// SeriesBook is one entry of a Goodreads series page.
type SeriesBook struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	CoverURL string  `json:"cover_url"`
	Order    float64 `json:"order"`
}

// Sequence renders Order the way series positions are usually written:
// "3" for whole numbers, "2.5" for novellas slotted between books.
func (b SeriesBook) Sequence() string {
	return strconv.FormatFloat(b.Order, 'f', -1, 64)
}

// SeriesBooks finds the Goodreads series page for a series and lists its
// books in order. Collections are skipped and only books in the same
// language as the first book are kept. Any failure yields an empty list.
func (c *Client) SeriesBooks(ctx context.Context, seriesName, firstBookTitle string) []SeriesBook {
	log := logger.FromContext(ctx).Root(logger.Data{"series": seriesName})

	query := strings.TrimSpace(seriesName)
	if firstBookTitle != "" {
		query = strings.TrimSpace(firstBookTitle + " " + seriesName)
	}

	doc, err := c.fetch(ctx, c.searchURL(query))
	if err != nil {
		log.Err(err).Warn("goodreads series search failed")
		return []SeriesBook{}
	}
	first := firstSearchResult(doc)
	if first == nil {
		log.Warn("no results found for series")
		return []SeriesBook{}
	}
	href := strings.TrimSpace(bookLink(first).AttrOr("href", ""))
	if href == "" {
		return []SeriesBook{}
	}

	bookDoc, err := c.fetch(ctx, c.absolute(href))
	if err != nil {
		log.Err(err).Warn("goodreads book page fetch failed")
		return []SeriesBook{}
	}
	seriesHref := strings.TrimSpace(bookDoc.Find("a[href*='/series/']").First().AttrOr("href", ""))
	if seriesHref == "" {
		log.Warn("no series link found on book page")
		return []SeriesBook{}
	}

	seriesURL := c.absolute(seriesHref)
	log.Info("found series page", logger.Data{"url": seriesURL})
	seriesDoc, err := c.fetch(ctx, seriesURL)
	if err != nil {
		log.Err(err).Warn("goodreads series page fetch failed")
		return []SeriesBook{}
	}

	books := parseSeriesPage(seriesDoc)
	log.Info("found books in series", logger.Data{"count": len(books)})
	return books
}

func parseSeriesPage(doc *goquery.Document) []SeriesBook {
	nodes := doc.Find("div[itemtype*='Book']")
	if nodes.Length() == 0 {
		nodes = doc.Find("div.responsiveBook")
	}

	books := []SeriesBook{}
	targetLanguage := ""
	nodes.Each(func(_ int, node *goquery.Selection) {
		titleNode := node.Find("a.bookTitle").First()
		if titleNode.Length() == 0 {
			titleNode = node.Find("a.gr-h3").First()
		}
		if titleNode.Length() == 0 {
			return
		}

		title := htmlutil.Unescape(strings.TrimSpace(titleNode.Text()))
		if isCollection(title) {
			return
		}

		author := "Unknown"
		if a := node.Find("a.authorName").First(); a.Length() > 0 {
			author = htmlutil.Unescape(strings.TrimSpace(a.Text()))
		}

		lang := detectLanguage(node.Find(".bookDetails").First().Text())
		if targetLanguage == "" {
			targetLanguage = lang
		}
		if !strings.EqualFold(lang, targetLanguage) {
			return
		}

		order := float64(len(books) + 1)
		if m := seriesOrderRE.FindStringSubmatch(title); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				order = f
			}
		}

		cover := strings.TrimSpace(node.Find("img").First().AttrOr("src", ""))
		if cover != "" {
			cover = coverSizes.Replace(cover)
		}

		books = append(books, SeriesBook{
			Title:    strings.TrimSpace(seriesSuffixRE.ReplaceAllString(title, "")),
			Author:   author,
			CoverURL: cover,
			Order:    order,
		})
	})

	sort.SliceStable(books, func(i, j int) bool {
		return books[i].Order < books[j].Order
	})
	return books
}

func isCollection(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range collectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func detectLanguage(details string) string {
	lower := strings.ToLower(details)
	for _, lang := range languages {
		if strings.Contains(lower, strings.ToLower(lang)) {
			return lang
		}
	}
	return defaultLanguage
}
