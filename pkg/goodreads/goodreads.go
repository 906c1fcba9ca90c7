package goodreads

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/htmlutil"
	"github.com/openshelf/openshelf/pkg/httpclient"
	"github.com/openshelf/openshelf/pkg/models"
)

var coverSizes = strings.NewReplacer(
	"._SY75_", "._SY475_",
	"._SX50_", "._SX318_",
	"._SY98_", "._SY475_",
)

// Client scrapes Goodreads search, book and series pages.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

func New(http *httpclient.Client, baseURL string) *Client {
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Name() string {
	return catalog.SourceGoodreads
}

func (c *Client) Enabled(settings *models.SiteSettings) bool {
	return settings.EnableGoodreads
}

// Search returns the top Goodreads hit for query, completed with the
// description and rating from its book page when that page can be read.
func (c *Client) Search(ctx context.Context, query string) []catalog.Result {
	log := logger.FromContext(ctx)
	keywords := catalog.Keywords(query)
	if keywords == "" {
		return []catalog.Result{}
	}

	doc, err := c.fetch(ctx, c.searchURL(keywords))
	if err != nil {
		log.Err(err).Warn("goodreads search failed", logger.Data{"query": keywords})
		return []catalog.Result{}
	}

	first := firstSearchResult(doc)
	if first == nil {
		log.Warn("no results found on goodreads", logger.Data{"query": keywords})
		return []catalog.Result{}
	}

	r := catalog.Result{Source: catalog.SourceGoodreads}
	link := bookLink(first)
	r.Title = squash(link.Text())
	r.Authors = squash(first.Find("a.authorName").First().Text())
	r.ThumbnailURL = coverURL(first, "img.bookCover")
	if href := strings.TrimSpace(link.AttrOr("href", "")); href != "" {
		r.URL = c.absolute(href)
		r.ID = r.URL
	}

	if r.URL != "" {
		if err := c.fillFromBookPage(ctx, &r); err != nil {
			log.Err(err).Warn("failed to fetch goodreads book page", logger.Data{"url": r.URL})
		}
	}

	return []catalog.Result{r}
}

func (c *Client) fillFromBookPage(ctx context.Context, r *catalog.Result) error {
	doc, err := c.fetch(ctx, r.URL)
	if err != nil {
		return err
	}

	desc := doc.Find("div#description span").Last()
	if desc.Length() == 0 {
		desc = doc.Find(".DetailsLayoutRightParagraph").First()
	}
	if desc.Length() > 0 {
		html, err := desc.Html()
		if err != nil {
			html = desc.Text()
		}
		r.FullDescription = htmlutil.StripTags(html)
		r.Description = catalog.Truncate(r.FullDescription)
	}

	rating := doc.Find("div.RatingStatistics__rating").First()
	if rating.Length() == 0 {
		rating = doc.Find("span[itemprop=ratingValue]").First()
	}
	r.Rating = squash(rating.Text())
	return nil
}

func (c *Client) fetch(ctx context.Context, u string) (*goquery.Document, error) {
	body, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return doc, nil
}

func (c *Client) searchURL(keywords string) string {
	return c.baseURL + "/search?q=" + url.QueryEscape(keywords)
}

func (c *Client) absolute(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return c.baseURL + "/" + strings.TrimLeft(href, "/")
}

func firstSearchResult(doc *goquery.Document) *goquery.Selection {
	row := doc.Find("table.tableList tr").First()
	if row.Length() == 0 {
		row = doc.Find("div.BookListItem").First()
	}
	if row.Length() == 0 {
		return nil
	}
	return row
}

func bookLink(s *goquery.Selection) *goquery.Selection {
	link := s.Find("a.bookTitle").First()
	if link.Length() == 0 {
		link = s.Find("a[href*='/book/show/']").First()
	}
	return link
}

func coverURL(s *goquery.Selection, preferred string) string {
	img := s.Find(preferred).First()
	if img.Length() == 0 {
		img = s.Find("img").First()
	}
	src := strings.TrimSpace(img.AttrOr("src", ""))
	if src == "" {
		return ""
	}
	return strings.ReplaceAll(coverSizes.Replace(src), "/nophoto/", "/photo/")
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
