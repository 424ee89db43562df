package middleware

import (
	"github.com/labstack/echo/v4"
)

type header struct{ name, value string }

// apiHeaders suit a JSON-only API whose bodies carry patient data.
var apiHeaders = []header{
	{echo.HeaderXContentTypeOptions, "nosniff"},
	{echo.HeaderXFrameOptions, "DENY"},
	{echo.HeaderContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'"},
	{echo.HeaderReferrerPolicy, "no-referrer"},
	{"Cache-Control", "no-store"},
}

const hsts = "max-age=31536000; includeSubDomains"

// SecurityHeaders stamps apiHeaders on every response. HSTS is added unless
// the server runs in development over plain HTTP.
func SecurityHeaders(dev bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range apiHeaders {
				h.Set(kv.name, kv.value)
			}
			if !dev {
				h.Set(echo.HeaderStrictTransportSecurity, hsts)
			}
			return next(c)
		}
	}
}
