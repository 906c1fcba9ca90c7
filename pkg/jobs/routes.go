package jobs

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes exposes job progress polling. Both routes are public: job
// IDs are unguessable and statuses carry no private data.
func RegisterRoutes(e *echo.Echo, tracker *Tracker) {
	h := &handler{tracker: tracker}

	e.GET("/progress", h.progress)
	e.GET("/jobs/:id", h.retrieve)
}
