package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/middleware"
	"github.com/wowsandek/scud-portal/internal/service"
)

// TenantHandler serves the storefront registry.
type TenantHandler struct {
	tenants *service.TenantService
}

// NewTenantHandler creates the handler.
func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// requireTenantAccess lets an admin through unconditionally and everyone
// else only when they own the given tenant id.
func requireTenantAccess(c echo.Context, tenantID uint) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	if !claims.IsAdmin() && claims.TenantID != tenantID {
		return apperr.Forbidden("access to another tenant is not allowed")
	}
	return nil
}

// List returns every storefront with its staff headcount.
func (h *TenantHandler) List(c echo.Context) error {
	tenants, err := h.tenants.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tenants)
}

// Get returns one storefront.
func (h *TenantHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, id); err != nil {
		return writeError(c, err)
	}

	tenant, err := h.tenants.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// Update applies a partial update to a storefront record.
func (h *TenantHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req struct {
		Name          *string `json:"name"`
		MaxStaff      *int    `json:"maxStaff"`
		Email         *string `json:"email"`
		Phone         *string `json:"phone"`
		ContactPerson *string `json:"contactPerson"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.Validation("invalid request"))
	}

	tenant, err := h.tenants.Update(c.Request().Context(), id, service.TenantUpdateInput{
		Name:          req.Name,
		MaxStaff:      req.MaxStaff,
		Email:         req.Email,
		Phone:         req.Phone,
		ContactPerson: req.ContactPerson,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// ResetPassword lets the admin set a new password for any storefront.
func (h *TenantHandler) ResetPassword(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.Validation("invalid request"))
	}

	if err := h.tenants.ResetPassword(c.Request().Context(), id, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password reset successfully."})
}

// Delete removes a storefront from the registry.
func (h *TenantHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.tenants.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Tenant deleted successfully."})
}
