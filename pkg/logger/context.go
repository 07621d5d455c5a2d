package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is the header (and echo context key) carrying the request id.
const RequestIDKey = "X-Request-ID"

// loggerContextKey is where Middleware stores the request-scoped logger.
const loggerContextKey = "logger"

// FromContext returns the request-scoped logger set by Middleware. Outside a
// request (or before the middleware ran) it falls back to the process-wide
// logger tagged with whatever request id is available.
func FromContext(c echo.Context) *zap.Logger {
	if logger, ok := c.Get(loggerContextKey).(*zap.Logger); ok {
		return logger
	}

	requestID, ok := c.Get(RequestIDKey).(string)
	if !ok {
		requestID = c.Request().Header.Get(RequestIDKey)
		if requestID == "" {
			requestID = "unknown"
		}
	}
	return GetLogger().With(zap.String("request_id", requestID))
}
