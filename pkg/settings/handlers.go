package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openshelf/openshelf/pkg/models"
)

type handler struct {
	settingsService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	settings, err := h.settingsService.Get(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, settings))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateSettingsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	settings, err := h.settingsService.Get(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	applyString(&settings.GoogleBooksAPIKey, params.GoogleBooksAPIKey)
	applyBool(&settings.EnableGoogleBooks, params.EnableGoogleBooks)
	applyBool(&settings.EnableOpenLibrary, params.EnableOpenLibrary)
	applyBool(&settings.EnableAudible, params.EnableAudible)
	applyBool(&settings.EnableGoodreads, params.EnableGoodreads)
	applyBool(&settings.EnablePublicImport, params.EnablePublicImport)
	applyBool(&settings.EnablePublicMetadataRefresh, params.EnablePublicMetadataRefresh)
	applyBool(&settings.EnableGetThisBookLinks, params.EnableGetThisBookLinks)

	var updated *models.SiteSettings
	updated, err = h.settingsService.Update(ctx, settings)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, updated))
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func applyBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
