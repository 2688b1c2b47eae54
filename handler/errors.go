package handler

import (
	"errors"
	"net/http"
	"strings"

	"customer-auth/controller"
	"customer-auth/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler renders errors that escape the controllers. Client errors
// raised by echo keep their status; everything else is logged and reported
// as 500 INTERNAL_ERROR without internal details.
func HTTPErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		code := controller.CodeInternalError
		details := "Internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
			status = he.Code
			code = statusCode(he.Code)
			details = http.StatusText(he.Code)
			if msg, ok := he.Message.(string); ok && msg != "" {
				details = msg
			}
		} else {
			logger.Errorw("Unhandled request error",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = errorResponse(c, status, code, details)
		}
		if writeErr != nil {
			logger.Errorw("Failed to write error response", "error", writeErr)
		}
	}
}

// statusCode turns an HTTP status into an error code, e.g. 404 -> NOT_FOUND
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return controller.CodeInternalError
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
