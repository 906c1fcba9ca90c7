package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/config"
	"github.com/openshelf/openshelf/pkg/models"
	"github.com/openshelf/openshelf/pkg/server"
)

func main() {
	log := logger.New()

	var opts struct {
		Sources     []string `short:"s" long:"source" description:"Source to query, may be repeated (defaults to every configured source)"`
		Description bool     `short:"d" long:"description" description:"Also look up a long description for the query"`
		GoogleKey   string   `long:"google-key" description:"Google Books API key"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) == 0 {
		fmt.Println("go run ./cmd/scripts/debug/search-sources [-s google] <query>")
		os.Exit(1)
	}
	query := strings.Join(args, " ")

	cfg := config.NewForTest()
	names := cfg.Sources
	if len(opts.Sources) > 0 {
		names = opts.Sources
	}

	registry, _ := server.Sources(cfg)
	sources, err := catalog.Resolve(registry, names)
	if err != nil {
		log.Err(err).Fatal("source error")
	}

	settings := models.DefaultSiteSettings()
	settings.EnableGoodreads = true
	settings.GoogleBooksAPIKey = opts.GoogleKey
	agg := catalog.NewAggregator(staticSettings{settings}, sources...)

	ctx := context.Background()
	for _, r := range agg.SearchAll(ctx, query) {
		fmt.Printf("[%s] %s by %s (%s)\n  cover: %s\n  url: %s\n", r.Source, r.Title, r.Authors, r.PublishedDate, r.ThumbnailURL, r.URL)
	}

	if opts.Description {
		fmt.Printf("\nDescription: %s\n", agg.FetchDescription(ctx, query, ""))
	}
}

type staticSettings struct {
	settings *models.SiteSettings
}

func (s staticSettings) Get(_ context.Context) (*models.SiteSettings, error) {
	return s.settings, nil
}
