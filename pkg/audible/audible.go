package audible

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/httpclient"
	"github.com/openshelf/openshelf/pkg/models"
)

const maxResults = 10

const (
	itemSelector         = "li.productListItem"
	fallbackItemSelector = "div.adbl-impression-container li.bc-list-item"
	coverSelector        = "img.bc-image-inset-border"
)

var coverSizes = strings.NewReplacer(
	"._SL300_", "._SL500_",
	"._SL175_", "._SL500_",
	"._SL100_", "._SL500_",
)

// Client scrapes the Audible search results page.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

func New(http *httpclient.Client, baseURL string) *Client {
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Name() string {
	return catalog.SourceAudible
}

func (c *Client) Enabled(settings *models.SiteSettings) bool {
	return settings.EnableAudible
}

func (c *Client) Search(ctx context.Context, query string) []catalog.Result {
	log := logger.FromContext(ctx)
	keywords := catalog.Keywords(query)
	if keywords == "" {
		return []catalog.Result{}
	}

	body, err := c.http.Get(ctx, c.baseURL+"/search?keywords="+url.QueryEscape(keywords))
	if err != nil {
		log.Err(err).Warn("audible search failed", logger.Data{"query": keywords})
		return []catalog.Result{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Err(err).Error("audible search page parse failed", logger.Data{"query": keywords})
		return []catalog.Result{}
	}

	results := c.parseResults(doc)
	log.Info("audible search", logger.Data{"query": keywords, "count": len(results)})
	return results
}

func (c *Client) parseResults(doc *goquery.Document) []catalog.Result {
	items := doc.Find(itemSelector)
	if items.Length() == 0 {
		// The fallback also matches the label rows nested inside each
		// product, so keep only entries that carry a cover or a heading.
		items = doc.Find(fallbackItemSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find("img, h3").Length() > 0
		})
	}

	results := []catalog.Result{}
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		results = append(results, c.parseItem(item))
		return len(results) < maxResults
	})
	return results
}

func (c *Client) parseItem(item *goquery.Selection) catalog.Result {
	r := catalog.Result{Source: catalog.SourceAudible}

	link := item.Find("h3 a").First()
	if link.Length() == 0 {
		link = item.Find("a.bc-link").First()
	}
	r.Title = squash(link.Text())
	if href, ok := link.Attr("href"); ok && href != "" {
		r.URL = c.absolute(href)
	}
	if asin, ok := item.Find("[data-asin]").First().Attr("data-asin"); ok {
		r.ID = asin
	}
	if r.ID == "" {
		r.ID = r.URL
	}

	r.Authors = trimLabel(item.Find("li.authorLabel").First().Text(), "By:")
	r.Narrator = trimLabel(item.Find("li.narratorLabel").First().Text(), "Narrated by:")
	r.ListeningLength = trimLabel(item.Find("li.runtimeLabel").First().Text(), "Length:")
	r.ThumbnailURL = coverURL(item)
	return r
}

func coverURL(item *goquery.Selection) string {
	img := item.Find(coverSelector).First()
	if img.Length() == 0 {
		img = item.Find("img").First()
	}
	if img.Length() == 0 {
		return ""
	}
	src := strings.TrimSpace(img.AttrOr("src", ""))
	if src == "" {
		src = strings.TrimSpace(img.AttrOr("data-lazy", ""))
	}
	return coverSizes.Replace(src)
}

func (c *Client) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return c.baseURL + "/" + strings.TrimLeft(href, "/")
}

func trimLabel(text, label string) string {
	return squash(strings.Replace(squash(text), label, "", 1))
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
