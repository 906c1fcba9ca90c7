package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/config"
	"github.com/openshelf/openshelf/pkg/httpclient"
	"github.com/openshelf/openshelf/pkg/models"
)

const volumesJSON = `{
  "items": [
    {
      "id": "vol-1",
      "volumeInfo": {
        "title": "Mistborn: The Final Empire",
        "authors": ["Brandon Sanderson"],
        "description": "For a thousand years the ash fell.",
        "pageCount": 541,
        "categories": ["Fiction", "Fantasy"],
        "publisher": "Tor Books",
        "publishedDate": "2006-07-17",
        "language": "en",
        "imageLinks": {"smallThumbnail": "http://books.google.com/small.jpg"}
      }
    },
    {
      "id": "vol-2",
      "volumeInfo": {}
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(httpclient.NewFromConfig("google", config.NewForTest()), srv.URL)
}

func TestSearch_MapsVolumes(t *testing.T) {
	t.Parallel()

	var rawQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		assert.Equal(t, "/books/v1/volumes", r.URL.Path)
		_, _ = w.Write([]byte(volumesJSON))
	})

	results := c.Search(context.Background(), "Mistborn by Brandon Sanderson")
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, catalog.SourceGoogleBooks, first.Source)
	assert.Equal(t, "vol-1", first.ID)
	assert.Equal(t, "Mistborn: The Final Empire", first.Title)
	assert.Equal(t, "Brandon Sanderson", first.Authors)
	assert.Equal(t, "http://books.google.com/small.jpg", first.ThumbnailURL)
	require.NotNil(t, first.PageCount)
	assert.Equal(t, 541, *first.PageCount)
	assert.Equal(t, "Fiction, Fantasy", first.Categories)
	assert.Equal(t, "Tor Books", first.Publisher)

	second := results[1]
	assert.Equal(t, "Unknown Title", second.Title)
	assert.Equal(t, "Unknown Author", second.Authors)
	assert.Nil(t, second.PageCount)

	assert.True(t, strings.HasPrefix(rawQuery, "q=intitle:Mistborn+inauthor:Brandon+Sanderson&maxResults=40"), rawQuery)
	assert.NotContains(t, rawQuery, "key=")
}

func TestSearch_AddsAPIKeyFromSettings(t *testing.T) {
	t.Parallel()

	var key string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{}`))
	})

	settings := models.DefaultSiteSettings()
	settings.GoogleBooksAPIKey = "abc123"
	results := c.Search(catalog.WithSettings(context.Background(), settings), "Elantris")

	assert.Empty(t, results)
	assert.Equal(t, "abc123", key)
}

func TestSearch_TruncatesDescription(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 600)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"id":"x","volumeInfo":{"title":"T","description":"` + long + `"}}]}`))
	})

	results := c.Search(context.Background(), "T")
	require.Len(t, results, 1)
	assert.Equal(t, long[:500]+"...", results[0].Description)
	assert.Equal(t, long, results[0].FullDescription)
}

func TestSearch_FailsSoft(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.Empty(t, c.Search(context.Background(), "Elantris"))

	bad := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	assert.Empty(t, bad.Search(context.Background(), "Elantris"))
}

func TestFetchDescription(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q, _ := url.QueryUnescape(r.URL.Query().Get("q"))
		assert.Equal(t, "Mistborn Brandon Sanderson", q)
		_, _ = w.Write([]byte(`{"items":[
			{"id":"1","volumeInfo":{"title":"Unrelated","description":"wrong"}},
			{"id":"2","volumeInfo":{"title":"Mistborn","description":""}},
			{"id":"3","volumeInfo":{"title":"Mistborn: The Final Empire","description":"right"}}
		]}`))
	})

	assert.Equal(t, "right", c.FetchDescription(context.Background(), "Mistborn", "Brandon Sanderson"))
}

func TestEnabled(t *testing.T) {
	t.Parallel()

	c := New(nil, "")
	settings := models.DefaultSiteSettings()
	assert.True(t, c.Enabled(settings))
	settings.EnableGoogleBooks = false
	assert.False(t, c.Enabled(settings))
}
