package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wowsandek/scud-portal/prometheus"
)

// Hello handles the root liveness endpoint
func Hello(c echo.Context) error {
	return c.String(http.StatusOK, "SCUD portal is running")
}

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "scud-portal",
	})
}

// MetricsHandler exposes the Prometheus metrics endpoint
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
