package settings

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/openshelf/openshelf/pkg/models"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Get retrieves the site settings, returning defaults if none have been saved.
func (svc *Service) Get(ctx context.Context) (*models.SiteSettings, error) {
	settings := &models.SiteSettings{}
	err := svc.db.NewSelect().
		Model(settings).
		Where("ss.id = ?", models.SiteSettingsID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultSiteSettings(), nil
		}
		return nil, errors.WithStack(err)
	}

	return settings, nil
}

// Update saves the site settings, creating the singleton row if needed.
func (svc *Service) Update(ctx context.Context, settings *models.SiteSettings) (*models.SiteSettings, error) {
	settings.ID = models.SiteSettingsID
	settings.UpdatedAt = time.Now()
	settings.GoogleBooksAPIKey = strings.TrimSpace(settings.GoogleBooksAPIKey)

	_, err := svc.db.NewInsert().
		Model(settings).
		On("CONFLICT (id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at").
		Set("google_books_api_key = EXCLUDED.google_books_api_key").
		Set("enable_google_books = EXCLUDED.enable_google_books").
		Set("enable_open_library = EXCLUDED.enable_open_library").
		Set("enable_audible = EXCLUDED.enable_audible").
		Set("enable_goodreads = EXCLUDED.enable_goodreads").
		Set("enable_public_import = EXCLUDED.enable_public_import").
		Set("enable_public_metadata_refresh = EXCLUDED.enable_public_metadata_refresh").
		Set("enable_get_this_book_links = EXCLUDED.enable_get_this_book_links").
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, errors.WithStack(err)
	}

	return settings, nil
}

// PublicImportEnabled reports whether anonymous callers may import CSVs.
func (svc *Service) PublicImportEnabled(ctx context.Context) (bool, error) {
	settings, err := svc.Get(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return settings.EnablePublicImport, nil
}

// PublicMetadataRefreshEnabled reports whether anonymous callers may start
// metadata refresh jobs.
func (svc *Service) PublicMetadataRefreshEnabled(ctx context.Context) (bool, error) {
	settings, err := svc.Get(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return settings.EnablePublicMetadataRefresh, nil
}
