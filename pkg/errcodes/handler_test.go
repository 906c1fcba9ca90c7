package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handleRecorded(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHandler().Handle(err, c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body["error"].(map[string]interface{})
}

func handle(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	rec, body := handleRecorded(t, err)
	return rec.Code, body
}

func TestHandle_CustomError(t *testing.T) {
	t.Parallel()

	code, body := handle(t, errors.WithStack(NotFound("Recommendation")))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["code"])
	assert.Equal(t, "Recommendation not found.", body["message"])
	assert.InDelta(t, float64(http.StatusNotFound), body["status_code"], 0)
}

func TestHandle_EchoError(t *testing.T) {
	t.Parallel()

	code, body := handle(t, echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"))
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "method_not_allowed", body["code"])
}

func TestHandle_GenericErrorIsInternal(t *testing.T) {
	t.Parallel()

	code, body := handle(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal_server_error", body["code"])
	assert.Equal(t, "Internal Server Error", body["message"])
}

func TestHandle_BadRequestKeepsMessage(t *testing.T) {
	t.Parallel()

	code, body := handle(t, BadRequest("Please upload a CSV file."))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please upload a CSV file.", body["message"])
}

func TestHandle_EchoErrorWithErrorMessage(t *testing.T) {
	t.Parallel()

	he := echo.NewHTTPError(http.StatusBadRequest, errors.New("bad multipart boundary"))
	code, body := handle(t, he)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad multipart boundary", body["message"])
}

func TestHandle_QueueFullAsksClientsToRetry(t *testing.T) {
	t.Parallel()

	rec, body := handleRecorded(t, errors.WithStack(QueueFull()))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "queue_full", body["code"])
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestHandle_CommittedResponseIsLeftAlone(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/admin/export", nil), rec)
	require.NoError(t, c.Blob(http.StatusOK, "text/csv", []byte("Rec_Id\n")))

	NewHandler().Handle(errors.New("late failure"), c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rec_Id\n", rec.Body.String())
}

func TestErrorIs(t *testing.T) {
	t.Parallel()

	err := errors.Wrap(NotFound("Recommendation"), "loading")
	assert.ErrorIs(t, err, NotFound("Recommendation"))
	assert.NotErrorIs(t, err, NotFound("Item"))
}
