package models

import (
	"time"

	"github.com/uptrace/bun"
)

const SiteSettingsID = 1

type SiteSettings struct {
	bun.BaseModel `bun:"table:site_settings,alias:ss"`

	ID                          int       `bun:",pk" json:"-"`
	UpdatedAt                   time.Time `json:"updated_at"`
	GoogleBooksAPIKey           string    `bun:"google_books_api_key" json:"google_books_api_key"`
	EnableGoogleBooks           bool      `json:"enable_google_books"`
	EnableOpenLibrary           bool      `json:"enable_open_library"`
	EnableAudible               bool      `json:"enable_audible"`
	EnableGoodreads             bool      `json:"enable_goodreads"`
	EnablePublicImport          bool      `json:"enable_public_import"`
	EnablePublicMetadataRefresh bool      `json:"enable_public_metadata_refresh"`
	EnableGetThisBookLinks      bool      `json:"enable_get_this_book_links"`
}

// DefaultSiteSettings returns the settings used before an admin saves any.
func DefaultSiteSettings() *SiteSettings {
	return &SiteSettings{
		ID:                     SiteSettingsID,
		EnableGoogleBooks:      true,
		EnableOpenLibrary:      true,
		EnableAudible:          true,
		EnableGoodreads:        true,
		EnableGetThisBookLinks: true,
	}
}
