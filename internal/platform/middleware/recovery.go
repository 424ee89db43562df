package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Recovery converts a handler panic into an unhandled apperr so the error
// handler answers 500 and the process keeps serving.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				cause, ok := r.(error)
				if !ok {
					cause = fmt.Errorf("%v", r)
				}
				logger.Error().
					Err(cause).
					Str("request_id", requestIDOf(c)).
					Str("route", c.Path()).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
				err = apperr.Wrap(apperr.KindUnhandled, cause, "internal error")
			}()
			return next(c)
		}
	}
}
