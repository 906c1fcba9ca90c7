package recommendations

import (
	"github.com/labstack/echo/v4"

	"github.com/openshelf/openshelf/pkg/auth"
	"github.com/openshelf/openshelf/pkg/settings"
)

// RegisterRoutes registers the public recommendation routes. Item edits and
// series discovery need an admin token; a metadata refresh needs one unless
// the site settings open it to everyone.
func RegisterRoutes(e *echo.Echo, recommendationService *Service, jobRunner *JobRunner, enricher ItemEnricher, authMiddleware *auth.Middleware, settingsService *settings.Service) {
	h := &handler{
		recommendationService: recommendationService,
		jobRunner:             jobRunner,
		enricher:              enricher,
	}

	g := e.Group("/recommendations")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/filters", h.filters)
	g.GET("/highlights", h.highlights)
	g.GET("/:id", h.retrieve)
	g.POST("/:id/like", h.like)
	g.GET("/:id/comments", h.listComments)
	g.POST("/:id/comments", h.addComment)
	g.POST("/:id/items", h.addItem, authMiddleware.RequireAdmin)
	g.PUT("/:id/items/order", h.reorderItems, authMiddleware.RequireAdmin)
	g.POST("/:id/items/bulk-edit", h.bulkEditItems, authMiddleware.RequireAdmin)
	g.POST("/:id/items/bulk-remove", h.bulkRemoveItems, authMiddleware.RequireAdmin)
	g.POST("/:id/refresh", h.startRefresh, authMiddleware.RequireAdminUnless(settingsService.PublicMetadataRefreshEnabled))
	g.POST("/:id/discover-series", h.startDiscoverSeries, authMiddleware.RequireAdmin)

	items := e.Group("/items")
	items.Use(authMiddleware.RequireAdmin)
	items.PUT("/:id", h.updateItem)
	items.DELETE("/:id", h.removeItem)
}

// RegisterAdminRoutesWithGroup registers the curation routes on a group that
// already requires an admin token.
func RegisterAdminRoutesWithGroup(g *echo.Group, recommendationService *Service, jobRunner *JobRunner) {
	h := &handler{
		recommendationService: recommendationService,
		jobRunner:             jobRunner,
	}

	g.POST("/recommendations/bulk-delete", h.bulkDelete)
	g.POST("/recommendations/bulk-update", h.bulkUpdate)
	g.POST("/recommendations/bulk-refresh", h.startBulkRefresh)
	g.PUT("/recommendations/:id", h.update)
	g.DELETE("/recommendations/:id", h.delete)
	g.POST("/recommendations/:id/staff-pick", h.toggleStaffPick)
	g.POST("/resanitize", h.resanitize)
}
