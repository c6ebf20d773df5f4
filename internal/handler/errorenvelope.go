package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// errorEnvelope is the shared error body shape:
// {statusCode, message, timestamp, path}.
type errorEnvelope struct {
	StatusCode int       `json:"statusCode"`
	Message    any       `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Path       string    `json:"path"`
}

// httpError builds the error every handler returns for a business-logic
// failure: kind is the HTTP status code, message the human-readable
// body. HTTPErrorHandler below unwraps it into the envelope shape. Two
// booking.go call sites build echo.NewHTTPError directly to carry extra
// fields, and the auth/owner handlers write their own echo.Map errors.
func httpError(kind int, message string) error {
	return echo.NewHTTPError(kind, message)
}

// HTTPErrorHandler replaces Echo's default error handler so routing
// failures (404, 405) and any error a handler returns via echo.NewHTTPError
// or a bare error render in the envelope shape instead of Echo's
// {"message": "..."}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var message any = "internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		message = he.Message
	} else if err != nil {
		message = err.Error()
	}

	env := errorEnvelope{
		StatusCode: code,
		Message:    message,
		Timestamp:  time.Now().UTC(),
		Path:       c.Request().URL.Path,
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, env)
}
