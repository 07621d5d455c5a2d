package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/service"
)

// StaffHandler serves the per-tenant staff registry.
type StaffHandler struct {
	staff *service.StaffService
}

// NewStaffHandler creates the handler.
func NewStaffHandler(staff *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// ListByTenant returns a tenant's current staff.
func (h *StaffHandler) ListByTenant(c echo.Context) error {
	tenantID, err := parseID(c, "tenantId")
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, tenantID); err != nil {
		return writeError(c, err)
	}

	members, err := h.staff.ListByTenant(c.Request().Context(), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

// Add creates one staff member directly, bypassing the request workflow.
func (h *StaffHandler) Add(c echo.Context) error {
	tenantID, err := parseID(c, "tenantId")
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, tenantID); err != nil {
		return writeError(c, err)
	}

	var req struct {
		FullName   string `json:"fullName" validate:"required"`
		CardNumber string `json:"cardNumber" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.Validation("invalid request"))
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	member, err := h.staff.Add(c.Request().Context(), tenantID, req.FullName, req.CardNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, member)
}

// Remove deletes one staff member by id.
func (h *StaffHandler) Remove(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.staff.Remove(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Staff member removed."})
}
