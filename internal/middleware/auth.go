package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wowsandek/scud-portal/pkg/jwtutil"
	"github.com/wowsandek/scud-portal/pkg/logger"
	"github.com/wowsandek/scud-portal/prometheus"
)

// UserContextKey is where the validated session claims live in the echo
// context.
const UserContextKey = "user"

// AuthMiddleware validates the JWT token from the Authorization header
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store session info in context for later use
		c.Set(UserContextKey, claims)
		c.Set("tenant_id", claims.TenantID)
		c.Set("role", claims.Role)

		return next(c)
	}
}

// RequireAdmin gates admin-only routes. Must run after AuthMiddleware.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get(UserContextKey).(*jwtutil.Claims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if !claims.IsAdmin() {
			logger.FromContext(c).Warn("Non-admin attempted admin operation",
				zap.Uint("tenant_id", claims.TenantID),
				zap.String("path", c.Request().URL.Path))
			prometheus.RecordAuthError("admin_required")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access required"})
		}
		return next(c)
	}
}

// ClaimsFromContext extracts the validated session claims.
func ClaimsFromContext(c echo.Context) (*jwtutil.Claims, bool) {
	claims, ok := c.Get(UserContextKey).(*jwtutil.Claims)
	return claims, ok
}
