package settings

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the settings routes on an admin group.
func RegisterRoutesWithGroup(g *echo.Group, settingsService *Service) {
	h := &handler{
		settingsService: settingsService,
	}

	g.GET("/settings", h.retrieve)
	g.PUT("/settings", h.update)
}
