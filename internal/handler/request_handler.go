package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/model"
	"github.com/wowsandek/scud-portal/internal/service"
	"github.com/wowsandek/scud-portal/prometheus"
)

// RequestHandler serves the staff change-request workflow.
type RequestHandler struct {
	requests *service.ChangeRequestService
}

// NewRequestHandler creates the handler.
func NewRequestHandler(requests *service.ChangeRequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// List returns a page of change requests for the admin view. Supports
// ?page=, ?status= and ?tenant= query parameters.
func (h *RequestHandler) List(c echo.Context) error {
	var filter service.RequestListFilter
	echo.QueryParamsBinder(c).
		Int("page", &filter.Page).
		String("status", &filter.Status).
		String("tenant", &filter.TenantSearch)

	page, err := h.requests.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// ListByTenant returns a tenant's own request history.
func (h *RequestHandler) ListByTenant(c echo.Context) error {
	tenantID, err := parseID(c, "tenantId")
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, tenantID); err != nil {
		return writeError(c, err)
	}

	requests, err := h.requests.ListByTenant(c.Request().Context(), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, requests)
}

// Create files a new pending change request on behalf of a tenant.
func (h *RequestHandler) Create(c echo.Context) error {
	var req struct {
		TenantID  uint                `json:"tenantId" validate:"required"`
		Additions []model.StaffChange `json:"additions"`
		Removals  []model.StaffChange `json:"removals"`
		Comment   string              `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.Validation("invalid request"))
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, req.TenantID); err != nil {
		return writeError(c, err)
	}

	request, err := h.requests.Propose(c.Request().Context(), req.TenantID, req.Additions, req.Removals, req.Comment)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, request)
}

// Approve applies a pending request's staff batch.
func (h *RequestHandler) Approve(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	request, err := h.requests.Approve(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	prometheus.RecordRequestDecision("approved")
	return c.JSON(http.StatusOK, request)
}

// Reject declines a pending request without touching the registry.
func (h *RequestHandler) Reject(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	request, err := h.requests.Reject(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	prometheus.RecordRequestDecision("rejected")
	return c.JSON(http.StatusOK, request)
}
