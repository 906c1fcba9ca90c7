package catalog

import (
	"context"

	"github.com/openshelf/openshelf/pkg/models"
)

const (
	SourceGoogleBooks = "google"
	SourceOpenLibrary = "openlibrary"
	SourceAudible     = "audible"
	SourceGoodreads   = "goodreads"
)

// Source is an external catalog. Search never fails: anything that goes
// wrong is logged by the source and an empty slice is returned.
type Source interface {
	Name() string
	Enabled(settings *models.SiteSettings) bool
	Search(ctx context.Context, query string) []Result
}

// DescriptionFetcher is implemented by sources that can look up a long
// description for a known title. It returns "" when nothing is found.
type DescriptionFetcher interface {
	FetchDescription(ctx context.Context, title, authors string) string
}

// SettingsLoader provides the current site settings.
type SettingsLoader interface {
	Get(ctx context.Context) (*models.SiteSettings, error)
}

type settingsKey struct{}

// WithSettings attaches site settings to ctx so sources can read
// per-request options such as API keys.
func WithSettings(ctx context.Context, settings *models.SiteSettings) context.Context {
	return context.WithValue(ctx, settingsKey{}, settings)
}

// SettingsFromContext returns the settings attached by WithSettings, or the
// defaults.
func SettingsFromContext(ctx context.Context) *models.SiteSettings {
	if s, ok := ctx.Value(settingsKey{}).(*models.SiteSettings); ok && s != nil {
		return s
	}
	return models.DefaultSiteSettings()
}
