package backup

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the export and restore routes on a group
// that already requires an admin token.
func RegisterRoutesWithGroup(g *echo.Group, backupService *Service) {
	h := &handler{backupService}

	g.GET("/export", h.export)
	g.POST("/restore", h.restore)
}
