package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Body is the JSON envelope written for every failed request.
type Body struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorHandler renders errors as {"success": false, "message": ...} with the
// status of the underlying kind. 5xx causes are logged, never echoed.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he, ok := HTTP(err).(*echo.HTTPError)
		if !ok {
			he = echo.NewHTTPError(http.StatusInternalServerError)
		}

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

		if he.Code >= http.StatusInternalServerError {
			cause := he.Internal
			if cause == nil {
				cause = err
			}
			logger.Error().Err(cause).
				Str("request_id", fmt.Sprint(c.Get("request_id"))).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			msg = "internal server error"
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, Body{Success: false, Message: msg})
		}
		if werr != nil && !errors.Is(werr, http.ErrHandlerTimeout) {
			logger.Warn().Err(werr).Msg("write error response")
		}
	}
}
