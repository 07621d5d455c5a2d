package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/service"
	"github.com/wowsandek/scud-portal/internal/storage"
	"github.com/wowsandek/scud-portal/pkg/logger"
	"github.com/wowsandek/scud-portal/prometheus"
)

// TurnoverHandler serves the turnover report workflow.
type TurnoverHandler struct {
	turnover *service.TurnoverService
	files    *storage.Store
}

// NewTurnoverHandler creates the handler.
func NewTurnoverHandler(turnover *service.TurnoverService, files *storage.Store) *TurnoverHandler {
	return &TurnoverHandler{turnover: turnover, files: files}
}

// Submit accepts a multipart turnover report submission: numeric fields plus
// the supporting document under the "file" form field.
func (h *TurnoverHandler) Submit(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		TenantID      uint     `form:"tenantId"`
		Month         int      `form:"month"`
		Year          int      `form:"year"`
		AmountNoVat   *float64 `form:"amountNoVat"`
		AmountWithVat *float64 `form:"amountWithVat"`
		ReceiptsCount *int     `form:"receiptsCount"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.Validation("invalid form data"))
	}
	if err := requireTenantAccess(c, req.TenantID); err != nil {
		return writeError(c, err)
	}
	if req.AmountNoVat == nil || req.AmountWithVat == nil || req.ReceiptsCount == nil {
		return writeError(c, apperr.Validation("amountNoVat, amountWithVat and receiptsCount are required"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return writeError(c, apperr.Validation("a report file is required"))
	}
	src, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", zap.Error(err))
		return writeError(c, fmt.Errorf("failed to open upload: %w", err))
	}
	defer src.Close()

	prometheus.TurnoverSubmissionCounter.Inc()

	report, err := h.turnover.Submit(c.Request().Context(), service.SubmitInput{
		TenantID:      req.TenantID,
		Month:         req.Month,
		Year:          req.Year,
		AmountNoVat:   *req.AmountNoVat,
		AmountWithVat: *req.AmountWithVat,
		ReceiptsCount: *req.ReceiptsCount,
		FileName:      fileHeader.Filename,
		FileType:      fileHeader.Header.Get("Content-Type"),
		FileSize:      fileHeader.Size,
		File:          src,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, report)
}

// ListByTenant returns a tenant's submission history.
func (h *TurnoverHandler) ListByTenant(c echo.Context) error {
	tenantID, err := parseID(c, "tenantId")
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, tenantID); err != nil {
		return writeError(c, err)
	}

	reports, err := h.turnover.ListByTenant(c.Request().Context(), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, reports)
}

// Chart returns the twelve-month approved turnover series for a tenant.
func (h *TurnoverHandler) Chart(c echo.Context) error {
	tenantID, err := parseID(c, "tenantId")
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, tenantID); err != nil {
		return writeError(c, err)
	}

	year := time.Now().Year()
	echo.QueryParamsBinder(c).Int("year", &year)

	entries, err := h.turnover.Chart(c.Request().Context(), tenantID, year)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"year": year, "data": entries})
}

// Overview returns the admin all-tenants view for one period.
func (h *TurnoverHandler) Overview(c echo.Context) error {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	echo.QueryParamsBinder(c).Int("year", &year).Int("month", &month)

	overview, err := h.turnover.Overview(c.Request().Context(), year, month)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, overview)
}

// Statistics returns yearly submission statistics for the admin dashboard.
func (h *TurnoverHandler) Statistics(c echo.Context) error {
	year := time.Now().Year()
	echo.QueryParamsBinder(c).Int("year", &year)

	stats, err := h.turnover.Statistics(c.Request().Context(), year)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// PendingApproval returns the admin review queue.
func (h *TurnoverHandler) PendingApproval(c echo.Context) error {
	reports, err := h.turnover.PendingApproval(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, reports)
}

// Approve marks a report approved and demotes its siblings.
func (h *TurnoverHandler) Approve(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	report, err := h.turnover.Approve(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	prometheus.RecordTurnoverDecision("approved")
	return c.JSON(http.StatusOK, report)
}

// Reject marks a report rejected.
func (h *TurnoverHandler) Reject(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	report, err := h.turnover.Reject(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	prometheus.RecordTurnoverDecision("rejected")
	return c.JSON(http.StatusOK, report)
}

// Edit overwrites the numeric fields of a pending or approved report.
func (h *TurnoverHandler) Edit(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	existing, err := h.turnover.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, existing.TenantID); err != nil {
		return writeError(c, err)
	}

	var req struct {
		AmountNoVat   *float64 `json:"amountNoVat"`
		AmountWithVat *float64 `json:"amountWithVat"`
		ReceiptsCount *int     `json:"receiptsCount"`
	}
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperr.Validation("invalid request"))
	}

	report, err := h.turnover.Edit(c.Request().Context(), id, service.EditInput{
		AmountNoVat:   req.AmountNoVat,
		AmountWithVat: req.AmountWithVat,
		ReceiptsCount: req.ReceiptsCount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// Download streams the original uploaded document as an attachment.
func (h *TurnoverHandler) Download(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	report, err := h.turnover.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, report.TenantID); err != nil {
		return writeError(c, err)
	}
	if !h.files.Exists(report.FilePath) {
		return writeError(c, apperr.NotFound("report file"))
	}
	return c.Attachment(h.files.FullPath(report.FilePath), report.FileName)
}

// View streams the original document inline for in-browser preview.
func (h *TurnoverHandler) View(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	report, err := h.turnover.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, report.TenantID); err != nil {
		return writeError(c, err)
	}
	if !h.files.Exists(report.FilePath) {
		return writeError(c, apperr.NotFound("report file"))
	}

	c.Response().Header().Set(echo.HeaderContentType, contentTypeForExt(report.FileName))
	c.Response().Header().Set(echo.HeaderContentDisposition, "inline")
	return c.File(h.files.FullPath(report.FilePath))
}

// ViewPDF streams the converted PDF preview of an office document.
func (h *TurnoverHandler) ViewPDF(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	report, err := h.turnover.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if err := requireTenantAccess(c, report.TenantID); err != nil {
		return writeError(c, err)
	}
	if report.PdfFilePath == nil || !h.files.Exists(*report.PdfFilePath) {
		return writeError(c, apperr.NotFound("PDF preview"))
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/pdf")
	c.Response().Header().Set(echo.HeaderContentDisposition, "inline")
	return c.File(h.files.FullPath(*report.PdfFilePath))
}

// exportHeaders is the column layout of the period overview spreadsheet.
var exportHeaders = []string{
	"Store", "Submitted", "Status", "Amount (no VAT)", "Amount (with VAT)", "Receipts", "Submitted at",
}

// ExportOverview renders the period overview as an XLSX download.
func (h *TurnoverHandler) ExportOverview(c echo.Context) error {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	echo.QueryParamsBinder(c).Int("year", &year).Int("month", &month)

	overview, err := h.turnover.Overview(c.Request().Context(), year, month)
	if err != nil {
		return writeError(c, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, title := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, title)
	}
	for row, summary := range overview.Data {
		values := []interface{}{
			summary.TenantName,
			summary.HasSubmitted,
			"",
			summary.AmountNoVat,
			summary.AmountWithVat,
			summary.ReceiptsCount,
			"",
		}
		if summary.ApprovalStatus != nil {
			values[2] = string(*summary.ApprovalStatus)
		}
		if summary.SubmittedAt != nil {
			values[6] = summary.SubmittedAt.Format(time.RFC3339)
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	fileName := fmt.Sprintf("turnover-%d-%02d.xlsx", year, month)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, fileName))
	c.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().WriteHeader(http.StatusOK)
	if err := f.Write(c.Response()); err != nil {
		logger.FromContext(c).Error("Failed to stream XLSX export", zap.Error(err))
	}
	return nil
}

// contentTypeForExt maps a stored filename to its inline preview MIME type.
func contentTypeForExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
