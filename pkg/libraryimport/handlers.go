package libraryimport

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	echologger "github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/jobs"
)

// maxUploadSize caps how much of an uploaded library export is read.
const maxUploadSize = 32 << 20

type handler struct {
	importer *Importer
}

func (h *handler) start(c echo.Context) error {
	log := echologger.FromEchoContext(c)

	params := ImportPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	fh, ok := params.FormFiles["file"]
	if !ok || fh.Size == 0 {
		return errcodes.ValidationError("Please select a file.")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return errcodes.ValidationError("Please upload a CSV file.")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return errors.WithStack(err)
	}
	if len(data) > maxUploadSize {
		return errcodes.ValidationError("The file is too large.")
	}
	if !isText(data) {
		return errcodes.ValidationError("The uploaded file is not a CSV file.")
	}

	format, err := DetectFormat(data)
	if err != nil {
		return errcodes.ValidationError("The file could not be read as CSV.")
	}
	if format == FormatBackup {
		return errcodes.ValidationError("This is a full backup. Use the admin restore to load it.")
	}

	rows, err := ReadRows(c.Request().Context(), bytes.NewReader(data))
	if err != nil {
		return errcodes.ValidationError("The file could not be read as CSV.")
	}
	if len(rows) == 0 {
		return errcodes.ValidationError("No records found.")
	}

	jobID, err := h.importer.Start(rows, params.Recommender)
	if err != nil {
		return errors.WithStack(err)
	}
	log.Info("library import queued", logger.Data{"job_id": jobID, "rows": len(rows), "filename": fh.Filename})

	return errors.WithStack(c.JSON(http.StatusOK, jobs.StartedResponse{Success: true, ProcessID: jobID}))
}

// isText reports whether the content sniffs as CSV or another plain text
// type. Small CSV files often sniff as text/plain.
func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/csv") || m.Is("text/plain") {
			return true
		}
	}
	return false
}
