package jobs

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	tracker *Tracker
}

type ProgressQuery struct {
	JobID string `query:"jobId" json:"jobId" validate:"required"`
}

func (h *handler) progress(c echo.Context) error {
	params := ProgressQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, h.tracker.Poll(params.JobID)))
}

func (h *handler) retrieve(c echo.Context) error {
	return errors.WithStack(c.JSON(http.StatusOK, h.tracker.Poll(c.Param("id"))))
}
