package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "auth-service"

// Health is used by load balancers and monitoring to check the process
// is up. It does not touch the store or the broker.
func Health(env string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":      "ok",
			"service":     ServiceName,
			"environment": env,
		})
	}
}
