package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowsandek/scud-portal/pkg/config"
	"github.com/wowsandek/scud-portal/pkg/jwtutil"
)

func runAuthMiddleware(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := AuthMiddleware(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestAuthMiddleware(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	rec, _ := runAuthMiddleware(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = runAuthMiddleware(t, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = runAuthMiddleware(t, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwtutil.GenerateToken(7, "Coffee Corner", "owner@coffee.test", jwtutil.RoleTenant)
	require.NoError(t, err)

	rec, c := runAuthMiddleware(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	claims, ok := ClaimsFromContext(c)
	require.True(t, ok)
	assert.Equal(t, uint(7), claims.TenantID)
	assert.Equal(t, uint(7), c.Get("tenant_id"))
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()

	next := RequireAdmin(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// No claims at all.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, next(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Tenant claims are refused.
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(UserContextKey, &jwtutil.Claims{TenantID: 7, Role: jwtutil.RoleTenant})
	require.NoError(t, next(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin claims pass through.
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(UserContextKey, &jwtutil.Claims{TenantID: 1, Role: jwtutil.RoleAdmin})
	require.NoError(t, next(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
