package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health responds 200 with a minimal body so load balancers can probe
// the service.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
