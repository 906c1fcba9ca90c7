package enrich

import (
	"context"
	"strings"

	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/models"
)

// Searcher is the part of the catalog aggregator the enricher needs.
type Searcher interface {
	SearchAll(ctx context.Context, query string) []catalog.Result
	FetchDescription(ctx context.Context, title, authors string) string
}

// Pass merges the best match among one group of sources into an item.
type Pass struct {
	Name    string
	Sources []string
}

// DefaultPasses run in order, so general catalogs get the first say,
// then audiobook details, then covers.
var DefaultPasses = []Pass{
	{Name: "catalog", Sources: []string{catalog.SourceGoogleBooks, catalog.SourceOpenLibrary}},
	{Name: "audiobook", Sources: []string{catalog.SourceAudible}},
	{Name: "cover", Sources: []string{catalog.SourceGoodreads}},
}

type Enricher struct {
	search Searcher
	passes []Pass
}

func New(search Searcher, passes ...Pass) *Enricher {
	if len(passes) == 0 {
		passes = DefaultPasses
	}
	return &Enricher{search: search, passes: passes}
}

// EnrichItem searches every source once for the item and fills its empty
// fields, pass by pass. It reports whether the item changed.
func (e *Enricher) EnrichItem(ctx context.Context, item *models.RecommendationItem) bool {
	if item == nil || strings.TrimSpace(item.Title) == "" {
		return false
	}
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(item.Title + " " + item.Authors)
	results := e.search.SearchAll(ctx, query)

	changed := false
	for _, pass := range e.passes {
		best := catalog.BestMatch(catalog.FilterSources(results, pass.Sources...), item.Title)
		if best == nil {
			continue
		}
		if MergeMissing(item, best) {
			changed = true
			log.Debug("enriched item", logger.Data{"title": item.Title, "pass": pass.Name, "source": best.Source})
		}
	}

	if strings.TrimSpace(item.Description) == "" {
		if desc := e.search.FetchDescription(ctx, item.Title, item.Authors); desc != "" {
			item.Description = desc
			changed = true
		}
	}

	return changed
}

// EnrichRecommendation enriches every item in order and returns how many
// changed.
func (e *Enricher) EnrichRecommendation(ctx context.Context, rec *models.Recommendation) int {
	updated := 0
	for _, item := range rec.Items {
		if e.EnrichItem(ctx, item) {
			updated++
		}
	}
	return updated
}
