package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
)

const problemContentType = "application/problem+json"

// Problem is the RFC 7807 body written for every failed request.
type Problem struct {
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Status    int                 `json:"status"`
	Detail    string              `json:"detail,omitempty"`
	Instance  string              `json:"instance,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
	Errors    []apperr.FieldError `json:"errors,omitempty"`
}

// ErrorHandler returns an echo.HTTPErrorHandler that maps service and
// framework errors onto problem responses and logs each one. When
// exposeInternal is false, 500 responses carry a generic detail.
func ErrorHandler(logger zerolog.Logger, exposeInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		p := problemFor(err, exposeInternal)
		p.Instance = c.Request().URL.Path
		p.RequestID = requestIDOf(c)

		evt := logger.Warn()
		if p.Status >= http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.Err(err).
			Str("request_id", p.RequestID).
			Str("method", c.Request().Method).
			Str("path", p.Instance).
			Int("status", p.Status).
			Str("kind", string(apperr.KindOf(err))).
			Msg(p.Title)

		if writeErr := writeProblem(c, p); writeErr != nil {
			logger.Error().Err(writeErr).Str("request_id", p.RequestID).Msg("write problem response")
		}
	}
}

func problemFor(err error, exposeInternal bool) Problem {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return Problem{
			Type:   "about:blank",
			Title:  http.StatusText(he.Code),
			Status: he.Code,
			Detail: fmt.Sprint(he.Message),
		}
	}

	kind := apperr.KindOf(err)
	p := Problem{
		Type:   "https://httpstatuses.io/" + fmt.Sprint(apperr.HTTPStatus(kind)),
		Title:  apperr.Title(kind),
		Status: apperr.HTTPStatus(kind),
		Detail: err.Error(),
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		p.Errors = appErr.Fields
		if appErr.Err == nil || kind != apperr.KindUnhandled {
			p.Detail = appErr.Message
		}
	}
	if kind == apperr.KindUnhandled && !exposeInternal {
		p.Detail = "an unexpected error occurred"
	}
	return p
}

func writeProblem(c echo.Context, p Problem) error {
	c.Response().Header().Set(echo.HeaderContentType, problemContentType)
	if c.Request().Method == http.MethodHead {
		return c.NoContent(p.Status)
	}
	return c.JSON(p.Status, p)
}

// statusOf returns the status an error will be rendered with. Errors are
// rendered after the middleware chain unwinds, so the response status is
// not yet set when logging and metrics middleware observe them.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return apperr.HTTPStatus(apperr.KindOf(err))
}
