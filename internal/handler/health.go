package handler // HTTP handlers translating engine results to JSON

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the load-balancer probe endpoint.  It returns a plain text
// "ok" with HTTP 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
