package libraryimport

import (
	"github.com/labstack/echo/v4"

	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/settings"
)

// RegisterRoutes registers the import route. Anonymous callers may use it
// only when the site settings allow public imports.
func RegisterRoutes(e *echo.Echo, importer *Importer, authMiddleware *auth.Middleware, settingsService *settings.Service) {
	h := &handler{importer}

	e.POST("/import", h.start, authMiddleware.RequireAdminUnless(settingsService.PublicImportEnabled))
}
