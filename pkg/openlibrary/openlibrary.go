package openlibrary

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/httpclient"
	"github.com/openshelf/openshelf/pkg/models"
)

const (
	searchLimit      = 40
	descriptionLimit = 5
	maxSubjects      = 3
)

type searchResponse struct {
	Docs []doc `json:"docs"`
}

type doc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstSentence       []string `json:"first_sentence"`
	CoverID             *int     `json:"cover_i"`
	NumberOfPagesMedian *int     `json:"number_of_pages_median"`
	Subject             []string `json:"subject"`
	Publisher           []string `json:"publisher"`
	FirstPublishYear    *int     `json:"first_publish_year"`
	Language            []string `json:"language"`
}

// work is the subset of /works/<id>.json we read. Description is either a
// plain string or an object with a value field.
type work struct {
	Description json.RawMessage `json:"description"`
}

// Client searches Open Library.
type Client struct {
	http      *httpclient.Client
	baseURL   string
	coversURL string
}

func New(http *httpclient.Client, baseURL, coversURL string) *Client {
	return &Client{
		http:      http,
		baseURL:   strings.TrimRight(baseURL, "/"),
		coversURL: strings.TrimRight(coversURL, "/"),
	}
}

func (c *Client) Name() string {
	return catalog.SourceOpenLibrary
}

func (c *Client) Enabled(settings *models.SiteSettings) bool {
	return settings.EnableOpenLibrary
}

func (c *Client) Search(ctx context.Context, query string) []catalog.Result {
	log := logger.FromContext(ctx)
	if strings.TrimSpace(query) == "" {
		return []catalog.Result{}
	}

	var u string
	if title, author, ok := catalog.SplitQuery(query); ok {
		u = c.searchByTitleURL(title, author, searchLimit)
	} else {
		u = fmt.Sprintf("%s/search.json?q=%s&limit=%d", c.baseURL, url.QueryEscape(query), searchLimit)
	}

	var resp searchResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		log.Err(err).Error("open library search failed", logger.Data{"query": query})
		return []catalog.Result{}
	}

	docs := resp.Docs
	if len(docs) > searchLimit {
		docs = docs[:searchLimit]
	}
	results := make([]catalog.Result, 0, len(docs))
	for _, d := range docs {
		results = append(results, c.toResult(d))
	}
	log.Info("open library search", logger.Data{"query": query, "count": len(results)})
	return results
}

// FetchDescription finds the work for title/authors and returns its
// description.
func (c *Client) FetchDescription(ctx context.Context, title, authors string) string {
	log := logger.FromContext(ctx)

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.searchByTitleURL(title, authors, descriptionLimit), &resp); err != nil {
		log.Err(err).Error("open library description search failed", logger.Data{"title": title})
		return ""
	}
	if len(resp.Docs) == 0 || resp.Docs[0].Key == "" {
		return ""
	}

	var w work
	if err := c.http.GetJSON(ctx, c.baseURL+resp.Docs[0].Key+".json", &w); err != nil {
		log.Err(err).Warn("open library work fetch failed", logger.Data{"key": resp.Docs[0].Key})
		return ""
	}
	desc := parseDescription(w.Description)
	if desc != "" {
		log.Info("found description in open library", logger.Data{"title": title})
	}
	return desc
}

func (c *Client) searchByTitleURL(title, author string, limit int) string {
	return fmt.Sprintf("%s/search.json?title=%s&author=%s&limit=%d",
		c.baseURL, url.QueryEscape(title), url.QueryEscape(author), limit)
}

func parseDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	return ""
}

func (c *Client) toResult(d doc) catalog.Result {
	id := d.Key
	if id == "" {
		id = uuid.NewString()
	}
	title := d.Title
	if title == "" {
		title = "Unknown Title"
	}
	authors := "Unknown Author"
	if len(d.AuthorName) > 0 {
		authors = strings.Join(d.AuthorName, ", ")
	}

	r := catalog.Result{
		Source:    catalog.SourceOpenLibrary,
		ID:        id,
		Title:     title,
		Authors:   authors,
		PageCount: d.NumberOfPagesMedian,
	}
	if len(d.FirstSentence) > 0 {
		r.Description = d.FirstSentence[0]
		r.FullDescription = d.FirstSentence[0]
	}
	if d.CoverID != nil {
		r.ThumbnailURL = fmt.Sprintf("%s/b/id/%d-M.jpg", c.coversURL, *d.CoverID)
	}
	subjects := d.Subject
	if len(subjects) > maxSubjects {
		subjects = subjects[:maxSubjects]
	}
	r.Categories = strings.Join(subjects, ", ")
	if len(d.Publisher) > 0 {
		r.Publisher = d.Publisher[0]
	}
	if d.FirstPublishYear != nil {
		r.PublishedDate = strconv.Itoa(*d.FirstPublishYear)
	}
	if len(d.Language) > 0 {
		r.Language = d.Language[0]
	}
	if d.Key != "" {
		r.URL = c.baseURL + d.Key
	}
	return r
}
