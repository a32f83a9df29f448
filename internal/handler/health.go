package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthTimestamp is the value reported by the JSON health check.  It is a
// fixed placeholder and deliberately does not track the clock.
const HealthTimestamp = "2024-01-01T00:00:00Z"

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HealthCheck handles GET /health.  It always reports "healthy" together
// with HealthTimestamp, regardless of when it is called.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{Status: "healthy", Timestamp: HealthTimestamp})
}

// Health is a plain-text liveness probe for load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
