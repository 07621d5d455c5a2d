package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/middleware"
	"github.com/wowsandek/scud-portal/internal/service"
	"github.com/wowsandek/scud-portal/pkg/logger"
	"github.com/wowsandek/scud-portal/prometheus"
)

// AuthHandler serves the registration/approval flow and sessions.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates the handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// AvailableStores lists storefront slots open for self-registration.
func (h *AuthHandler) AvailableStores(c echo.Context) error {
	stores, err := h.auth.AvailableStores(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stores)
}

// Register claims an unclaimed storefront slot.
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		StoreID       uint   `json:"storeId" validate:"required"`
		Password      string `json:"password" validate:"required"`
		Email         string `json:"email" validate:"required"`
		Phone         string `json:"phone"`
		ContactPerson string `json:"contactPerson" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		prometheus.RecordAuthError("incomplete_registration")
		return writeError(c, err)
	}

	tenant, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		StoreID:       req.StoreID,
		Password:      req.Password,
		Email:         req.Email,
		Phone:         req.Phone,
		ContactPerson: req.ContactPerson,
	})
	if err != nil {
		prometheus.RecordAuthError("registration_failed")
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"message":   "Registration submitted for approval. Please wait for admin confirmation.",
		"tenantId":  tenant.ID,
		"storeName": tenant.Name,
	})
}

// PendingTenants lists registrations awaiting review.
func (h *AuthHandler) PendingTenants(c echo.Context) error {
	tenants, err := h.auth.PendingTenants(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	prometheus.PendingRegistrationsGauge.Set(float64(len(tenants)))
	return c.JSON(http.StatusOK, tenants)
}

// ApproveRegistration activates a pending registration.
func (h *AuthHandler) ApproveRegistration(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.auth.ApproveRegistration(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Tenant approved successfully."})
}

// RejectRegistration reopens a pending slot.
func (h *AuthHandler) RejectRegistration(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.auth.RejectRegistration(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Registration rejected. Store is available for registration again.",
	})
}

// Login authenticates an account and issues a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		prometheus.RecordAuthError("login_failure")
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"token": result.Token})
}

// ChangePassword rotates the caller's own password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.Validation("invalid request"))
	}

	if err := h.auth.ChangePassword(c.Request().Context(), claims.TenantID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password changed successfully."})
}
