package search

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the public catalog search route.
func RegisterRoutes(e *echo.Echo, searcher Searcher) {
	h := &handler{
		searcher: searcher,
	}

	e.GET("/search", h.search)
}
