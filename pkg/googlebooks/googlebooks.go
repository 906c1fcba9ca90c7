package googlebooks

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/httpclient"
	"github.com/openshelf/openshelf/pkg/models"
)

const maxResults = 40

type volumesResponse struct {
	Items []volume `json:"items"`
}

type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		Description   string   `json:"description"`
		PageCount     *int     `json:"pageCount"`
		Categories    []string `json:"categories"`
		Publisher     string   `json:"publisher"`
		PublishedDate string   `json:"publishedDate"`
		Language      string   `json:"language"`
		InfoLink      string   `json:"infoLink"`
		ImageLinks    struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

// Client searches the Google Books volumes API.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

func New(http *httpclient.Client, baseURL string) *Client {
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Name() string {
	return catalog.SourceGoogleBooks
}

func (c *Client) Enabled(settings *models.SiteSettings) bool {
	return settings.EnableGoogleBooks
}

func (c *Client) Search(ctx context.Context, query string) []catalog.Result {
	log := logger.FromContext(ctx)
	if strings.TrimSpace(query) == "" {
		return []catalog.Result{}
	}

	u := c.searchURL(query, catalog.SettingsFromContext(ctx).GoogleBooksAPIKey)

	var resp volumesResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		log.Err(err).Error("google books search failed", logger.Data{"query": query})
		return []catalog.Result{}
	}
	if len(resp.Items) == 0 {
		log.Warn("google books returned no items", logger.Data{"query": query})
		return []catalog.Result{}
	}

	results := make([]catalog.Result, 0, len(resp.Items))
	for _, v := range resp.Items {
		results = append(results, toResult(v))
	}
	log.Info("google books search", logger.Data{"query": query, "count": len(results)})
	return results
}

// FetchDescription returns the full description of the first volume whose
// title matches.
func (c *Client) FetchDescription(ctx context.Context, title, authors string) string {
	results := c.Search(ctx, strings.TrimSpace(title+" "+authors))
	for _, r := range results {
		if r.FullDescription != "" && catalog.TitlesMatch(r.Title, title) {
			logger.FromContext(ctx).Info("found description in google books", logger.Data{"title": title})
			return r.FullDescription
		}
	}
	return ""
}

func (c *Client) searchURL(query, apiKey string) string {
	var q string
	if title, author, ok := catalog.SplitQuery(query); ok {
		q = "intitle:" + url.QueryEscape(title) + "+inauthor:" + url.QueryEscape(author)
	} else {
		q = url.QueryEscape(query)
	}
	u := c.baseURL + "/books/v1/volumes?q=" + q + "&maxResults=" + strconv.Itoa(maxResults)
	if apiKey != "" {
		u += "&key=" + url.QueryEscape(apiKey)
	}
	return u
}

func toResult(v volume) catalog.Result {
	info := v.VolumeInfo

	title := info.Title
	if title == "" {
		title = "Unknown Title"
	}
	authors := "Unknown Author"
	if len(info.Authors) > 0 {
		authors = strings.Join(info.Authors, ", ")
	}
	thumb := info.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = info.ImageLinks.SmallThumbnail
	}

	return catalog.Result{
		Source:          catalog.SourceGoogleBooks,
		ID:              v.ID,
		Title:           title,
		Authors:         authors,
		Description:     catalog.Truncate(info.Description),
		FullDescription: info.Description,
		ThumbnailURL:    thumb,
		PageCount:       info.PageCount,
		Categories:      strings.Join(info.Categories, ", "),
		Publisher:       info.Publisher,
		PublishedDate:   info.PublishedDate,
		Language:        info.Language,
		URL:             info.InfoLink,
	}
}
