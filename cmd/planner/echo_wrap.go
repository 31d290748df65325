package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// echoWrap adapts a plain http.Handler (promhttp's handler) into an echo
// route handler, since /metrics is the one endpoint not naturally
// expressed through echo.Context.
func echoWrap(h http.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
