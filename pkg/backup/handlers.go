package backup

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openshelf/openshelf/pkg/errcodes"
)

// maxBackupSize caps how much of an uploaded backup is read into memory.
const maxBackupSize = 64 << 20

type handler struct {
	backupService *Service
}

func (h *handler) export(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.backupService.Export(c.Request().Context(), &buf); err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+Filename(time.Now())+`"`)
	return errors.WithStack(c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes()))
}

func (h *handler) restore(c echo.Context) error {
	params := RestorePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	fh, ok := params.FormFiles["file"]
	if !ok || fh.Size == 0 {
		return errcodes.ValidationError("Please select a backup file.")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBackupSize+1))
	if err != nil {
		return errors.WithStack(err)
	}
	if len(data) > maxBackupSize {
		return errcodes.ValidationError("The backup file is too large.")
	}

	summary, err := h.backupService.Restore(c.Request().Context(), fh.Filename, data, RestoreOptions{ClearExisting: params.ClearExisting})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, summary))
}
