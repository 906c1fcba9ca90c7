package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/binder"
	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/errcodes"
)

type fakeSearcher struct {
	queries []string
}

func (f *fakeSearcher) SearchAll(_ context.Context, query string) []catalog.Result {
	f.queries = append(f.queries, query)
	return []catalog.Result{
		{Source: "Google Books", ID: "g1", Title: "Dune", Authors: "Frank Herbert"},
		{Source: "Open Library", ID: "/works/OL1W", Title: "Dune Messiah", Authors: "Frank Herbert"},
	}
}

func newSearchServer(t *testing.T) (*echo.Echo, *fakeSearcher) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	searcher := &fakeSearcher{}
	RegisterRoutes(e, searcher)
	return e, searcher
}

func TestHandlerSearch(t *testing.T) {
	t.Parallel()

	t.Run("returns aggregated results", func(t *testing.T) {
		t.Parallel()
		e, searcher := newSearchServer(t)

		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search?q="+url.QueryEscape("  dune   herbert "), nil))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var results []catalog.Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
		require.Len(t, results, 2)
		assert.Equal(t, "Dune", results[0].Title)
		assert.Equal(t, []string{"dune herbert"}, searcher.queries)
	})

	t.Run("short queries skip the sources", func(t *testing.T) {
		t.Parallel()
		e, searcher := newSearchServer(t)

		for _, q := range []string{"", "d", "  x  "} {
			rr := httptest.NewRecorder()
			e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search?q="+url.QueryEscape(q), nil))
			require.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, "[]", rr.Body.String())
		}
		assert.Empty(t, searcher.queries)
	})
}

func TestNormalizeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"single rune", "é", ""},
		{"two runes", "éa", "éa"},
		{"collapses whitespace", "  the \t name  of\nthe wind ", "the name of the wind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizeQuery(tt.input))
		})
	}

	long := NormalizeQuery(strings.Repeat("ab ", 200))
	assert.LessOrEqual(t, len([]rune(long)), maxQueryLength)
}
