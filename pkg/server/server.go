package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"

	"github.com/openshelf/openshelf/pkg/audible"
	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/backup"
	"github.com/openshelf/openshelf/pkg/binder"
	"github.com/openshelf/openshelf/pkg/catalog"
	"github.com/openshelf/openshelf/pkg/config"
	"github.com/openshelf/openshelf/pkg/enrich"
	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/goodreads"
	"github.com/openshelf/openshelf/pkg/googlebooks"
	"github.com/openshelf/openshelf/pkg/httpclient"
	"github.com/openshelf/openshelf/pkg/jobs"
	"github.com/openshelf/openshelf/pkg/libraryimport"
	"github.com/openshelf/openshelf/pkg/openlibrary"
	"github.com/openshelf/openshelf/pkg/recommendations"
	"github.com/openshelf/openshelf/pkg/search"
	"github.com/openshelf/openshelf/pkg/settings"
)

// Sources builds the catalog source registry, keyed by the names used in
// config.Sources.
func Sources(cfg *config.Config) (map[string]catalog.Source, *goodreads.Client) {
	gr := goodreads.New(httpclient.NewFromConfig(catalog.SourceGoodreads, cfg), cfg.GoodreadsBaseURL)
	return map[string]catalog.Source{
		catalog.SourceGoogleBooks: googlebooks.New(httpclient.NewFromConfig(catalog.SourceGoogleBooks, cfg), cfg.GoogleBooksBaseURL),
		catalog.SourceOpenLibrary: openlibrary.New(httpclient.NewFromConfig(catalog.SourceOpenLibrary, cfg), cfg.OpenLibraryBaseURL, cfg.OpenLibraryCoversURL),
		catalog.SourceAudible:     audible.New(httpclient.NewFromConfig(catalog.SourceAudible, cfg), cfg.AudibleBaseURL),
		catalog.SourceGoodreads:   gr,
	}, gr
}

func New(cfg *config.Config, db *bun.DB, tracker *jobs.Tracker) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	registry, gr := Sources(cfg)
	sources, err := catalog.Resolve(registry, cfg.Sources)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	settingsService := settings.NewService(db)
	aggregator := catalog.NewAggregator(settingsService, sources...)
	enricher := enrich.New(aggregator)
	authMiddleware := auth.NewMiddleware(cfg.AdminToken)

	recommendationService := recommendations.NewService(db)
	jobRunner := recommendations.NewJobRunner(recommendationService, enricher, gr, settingsService, tracker)
	importer := libraryimport.NewImporter(db, enricher, tracker)

	// Public routes
	recommendations.RegisterRoutes(e, recommendationService, jobRunner, enricher, authMiddleware, settingsService)
	libraryimport.RegisterRoutes(e, importer, authMiddleware, settingsService)
	search.RegisterRoutes(e, aggregator)
	jobs.RegisterRoutes(e, tracker)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(authMiddleware.RequireAdmin)
	recommendations.RegisterAdminRoutesWithGroup(adminGroup, recommendationService, jobRunner)
	backup.RegisterRoutesWithGroup(adminGroup, backup.NewService(db))
	settings.RegisterRoutesWithGroup(adminGroup, settingsService)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
