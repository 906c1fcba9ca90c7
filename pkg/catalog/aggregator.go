package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/models"
)

// Aggregator fans a query out to every enabled source and concatenates the
// results in source registration order.
type Aggregator struct {
	sources  []Source
	settings SettingsLoader
}

func NewAggregator(settings SettingsLoader, sources ...Source) *Aggregator {
	return &Aggregator{sources: sources, settings: settings}
}

// Resolve looks up the named sources in the registry, keeping the order of
// names.
func Resolve(registry map[string]Source, names []string) ([]Source, error) {
	sources := make([]Source, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		src, ok := registry[name]
		if !ok {
			return nil, errors.Errorf("unknown catalog source %q", name)
		}
		seen[name] = true
		sources = append(sources, src)
	}
	return sources, nil
}

func (a *Aggregator) Sources() []Source {
	return a.sources
}

// Settings loads the site settings, falling back to the defaults if they
// can't be read.
func (a *Aggregator) Settings(ctx context.Context) *models.SiteSettings {
	if a.settings == nil {
		return models.DefaultSiteSettings()
	}
	s, err := a.settings.Get(ctx)
	if err != nil {
		logger.FromContext(ctx).Err(err).Warn("failed to load site settings, using defaults")
		return models.DefaultSiteSettings()
	}
	return s
}

// SearchAll queries every enabled source concurrently. A source that panics
// contributes no results.
func (a *Aggregator) SearchAll(ctx context.Context, query string) []Result {
	settings := a.Settings(ctx)
	ctx = WithSettings(ctx, settings)
	log := logger.FromContext(ctx)

	buckets := make([][]Result, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		if !src.Enabled(settings) {
			continue
		}
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Err(errors.New(fmt.Sprint(r))).Error("catalog source panicked", logger.Data{"source": src.Name()})
					buckets[i] = nil
				}
			}()
			buckets[i] = src.Search(ctx, query)
		}(i, src)
	}
	wg.Wait()

	results := []Result{}
	for _, b := range buckets {
		results = append(results, b...)
	}
	return results
}

// FetchDescription asks each enabled source that supports description lookup,
// in registration order, and returns the first non-empty answer.
func (a *Aggregator) FetchDescription(ctx context.Context, title, authors string) string {
	settings := a.Settings(ctx)
	ctx = WithSettings(ctx, settings)
	for _, src := range a.sources {
		fetcher, ok := src.(DescriptionFetcher)
		if !ok || !src.Enabled(settings) {
			continue
		}
		if desc := safeFetch(ctx, src.Name(), fetcher, title, authors); desc != "" {
			return desc
		}
	}
	return ""
}

func safeFetch(ctx context.Context, name string, f DescriptionFetcher, title, authors string) (desc string) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Err(errors.New(fmt.Sprint(r))).Error("description fetch panicked", logger.Data{"source": name})
			desc = ""
		}
	}()
	return f.FetchDescription(ctx, title, authors)
}
