package errcodes

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

// RetryAfterSeconds is sent with 503 responses so clients polling for a free
// worker slot back off.
const RetryAfterSeconds = 5

// Payload is the JSON body of every error response.
type Payload struct {
	Error Body `json:"error"`
}

type Body struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is an Echo error handler that renders Error values and echo errors
// with their own status, and anything else as an internal server error.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}
	if c.Response().Committed {
		log.Err(err).Warn("error after response was written")
		return
	}

	body := toBody(err)
	if body.StatusCode == http.StatusInternalServerError {
		log.Err(err).Error("server error")
	}
	if body.StatusCode == http.StatusServiceUnavailable {
		c.Response().Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	if err := c.JSON(body.StatusCode, Payload{Error: body}); err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func toBody(err error) Body {
	var e *Error
	if errors.As(err, &e) {
		return Body{Code: e.Code, Message: e.Message, StatusCode: e.HTTPCode}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
		default:
			msg = fmt.Sprint(m)
		}
		return Body{Code: strcase.ToSnake(msg), Message: msg, StatusCode: he.Code}
	}

	return Body{
		Code:       "internal_server_error",
		Message:    "Internal Server Error",
		StatusCode: http.StatusInternalServerError,
	}
}
