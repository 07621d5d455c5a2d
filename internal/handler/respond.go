package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/pkg/logger"
)

// writeError maps an application error to its HTTP response. Client errors
// carry their message; anything else is logged server-side and elided to a
// generic message.
func writeError(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c).Error("Request failed",
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// parseID reads a numeric path parameter.
func parseID(c echo.Context, name string) (uint, error) {
	var id uint
	if err := echo.PathParamsBinder(c).Uint(name, &id).BindError(); err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}
