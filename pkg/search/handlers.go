package search

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/catalog"
)

// Searcher fans a query out to the catalog sources.
type Searcher interface {
	SearchAll(ctx context.Context, query string) []catalog.Result
}

type handler struct {
	searcher Searcher
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	// Bind params
	params := Query{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	q := NormalizeQuery(params.Query)
	if q == "" {
		return errors.WithStack(c.JSON(http.StatusOK, []catalog.Result{}))
	}

	results := h.searcher.SearchAll(ctx, q)
	log.Debug("catalog search", logger.Data{"query": q, "results": len(results)})

	return errors.WithStack(c.JSON(http.StatusOK, results))
}
