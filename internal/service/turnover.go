package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/converter"
	"github.com/wowsandek/scud-portal/internal/model"
	"github.com/wowsandek/scud-portal/internal/storage"
	"github.com/wowsandek/scud-portal/prometheus"
)

// turnoverSubdir is where report uploads live inside the file store.
const turnoverSubdir = "turnover"

// allowedFileTypes is the upload MIME allow-list for turnover reports.
var allowedFileTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// TurnoverService implements the turnover report approval workflow.
type TurnoverService struct {
	db           *gorm.DB
	files        *storage.Store
	converter    *converter.Converter
	maxFileBytes int64
	log          *zap.Logger
}

// NewTurnoverService creates the service with its injected collaborators.
func NewTurnoverService(db *gorm.DB, files *storage.Store, conv *converter.Converter, maxFileBytes int64, log *zap.Logger) *TurnoverService {
	return &TurnoverService{
		db:           db,
		files:        files,
		converter:    conv,
		maxFileBytes: maxFileBytes,
		log:          log,
	}
}

// SubmitInput carries one turnover report submission.
type SubmitInput struct {
	TenantID      uint
	Month         int
	Year          int
	AmountNoVat   float64
	AmountWithVat float64
	ReceiptsCount int
	FileName      string
	FileType      string
	FileSize      int64
	File          io.Reader
}

// Submit stores the uploaded file, best-effort converts office documents to
// a PDF preview, and inserts a new pending report marked as the latest for
// its period. Clearing IsLatest on siblings and inserting the new row happen
// in one transaction, so concurrent submits for the same period cannot leave
// two latest rows. A previously approved report for the period is left
// untouched apart from losing its latest flag.
func (s *TurnoverService) Submit(ctx context.Context, in SubmitInput) (*model.TurnoverReport, error) {
	if in.Month < 1 || in.Month > 12 {
		return nil, apperr.Validation("month must be between 1 and 12")
	}
	if in.Year < model.MinReportYear || in.Year > model.MaxReportYear {
		return nil, apperr.Validation("year must be between %d and %d", model.MinReportYear, model.MaxReportYear)
	}
	if !allowedFileTypes[in.FileType] {
		return nil, apperr.Validation("unsupported file type: %s", in.FileType)
	}
	if in.FileSize > s.maxFileBytes {
		return nil, apperr.Validation("file exceeds the maximum size of %d bytes", s.maxFileBytes)
	}

	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, in.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("tenant")
		}
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	// The file is persisted before the database insert. If the insert
	// fails afterwards the orphaned file is acceptable collateral.
	relPath, size, err := s.files.Save(turnoverSubdir, in.FileName, in.File)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	var pdfRelPath *string
	if converter.IsOfficeDocument(in.FileName) && s.converter != nil {
		pdfFull, convErr := s.converter.ConvertToPDF(ctx, s.files.FullPath(relPath))
		if convErr != nil {
			// Conversion is best-effort; the submission proceeds
			// without a PDF preview.
			prometheus.ConversionFailureCounter.Inc()
			s.log.Warn("PDF conversion failed",
				zap.String("file", relPath), zap.Error(convErr))
		} else if rel, relErr := s.files.Rel(pdfFull); relErr == nil {
			pdfRelPath = &rel
		}
	}

	report := &model.TurnoverReport{
		TenantID:       in.TenantID,
		Month:          in.Month,
		Year:           in.Year,
		AmountNoVat:    in.AmountNoVat,
		AmountWithVat:  in.AmountWithVat,
		ReceiptsCount:  in.ReceiptsCount,
		FileName:       in.FileName,
		FilePath:       relPath,
		FileSize:       size,
		FileType:       in.FileType,
		PdfFilePath:    pdfRelPath,
		ApprovalStatus: model.ApprovalStatusPending,
		IsLatest:       true,
	}

	done := prometheus.TrackDBOperation("insert")
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.TurnoverReport{}).
			Where("tenant_id = ? AND month = ? AND year = ?", in.TenantID, in.Month, in.Year).
			Update("is_latest", false).Error; err != nil {
			return err
		}
		return tx.Create(report).Error
	})
	done(time.Now())
	if err != nil {
		s.log.Error("Failed to insert turnover report; uploaded file orphaned",
			zap.String("file", relPath), zap.Error(err))
		return nil, fmt.Errorf("failed to create turnover report: %w", err)
	}

	s.log.Info("Turnover report submitted",
		zap.Uint("report_id", report.ID),
		zap.Uint("tenant_id", in.TenantID),
		zap.Int("month", in.Month),
		zap.Int("year", in.Year))
	return report, nil
}

// Approve marks the report as the single approved report for its period.
// Every sibling report for the same (tenant, month, year) is demoted to
// not_approved in the same transaction, including a previously approved one.
func (s *TurnoverService) Approve(ctx context.Context, id uint) (*model.TurnoverReport, error) {
	var report model.TurnoverReport
	done := prometheus.TrackDBOperation("update")
	defer done(time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&report, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("report")
			}
			return err
		}
		if err := tx.Model(&model.TurnoverReport{}).
			Where("tenant_id = ? AND month = ? AND year = ? AND id <> ?",
				report.TenantID, report.Month, report.Year, report.ID).
			Update("approval_status", model.ApprovalStatusNotApproved).Error; err != nil {
			return err
		}
		return tx.Model(&report).Update("approval_status", model.ApprovalStatusApproved).Error
	})
	if err != nil {
		if apperr.IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to approve report %d: %w", id, err)
	}

	if err := s.db.WithContext(ctx).Preload("Tenant").First(&report, report.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload report %d: %w", report.ID, err)
	}

	s.log.Info("Turnover report approved",
		zap.Uint("report_id", report.ID),
		zap.Uint("tenant_id", report.TenantID),
		zap.Int("month", report.Month),
		zap.Int("year", report.Year))
	return &report, nil
}

// Reject marks the report rejected. Sibling reports are not touched; a
// later submission for the period can still be approved independently.
func (s *TurnoverService) Reject(ctx context.Context, id uint) (*model.TurnoverReport, error) {
	var report model.TurnoverReport
	if err := s.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("report")
		}
		return nil, fmt.Errorf("failed to load report %d: %w", id, err)
	}

	if err := s.db.WithContext(ctx).Model(&report).
		Update("approval_status", model.ApprovalStatusRejected).Error; err != nil {
		return nil, fmt.Errorf("failed to reject report %d: %w", id, err)
	}

	if err := s.db.WithContext(ctx).Preload("Tenant").First(&report, report.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload report %d: %w", report.ID, err)
	}

	s.log.Info("Turnover report rejected", zap.Uint("report_id", report.ID))
	return &report, nil
}

// EditInput carries optional replacement values for a report's numeric
// fields; nil fields are left unchanged.
type EditInput struct {
	AmountNoVat   *float64
	AmountWithVat *float64
	ReceiptsCount *int
}

// Edit overwrites the numeric fields of a pending or approved report. The
// file reference and approval status are never touched. Editing a rejected
// or demoted report is refused.
func (s *TurnoverService) Edit(ctx context.Context, id uint, in EditInput) (*model.TurnoverReport, error) {
	var report model.TurnoverReport
	if err := s.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("report")
		}
		return nil, fmt.Errorf("failed to load report %d: %w", id, err)
	}

	if !report.ApprovalStatus.Editable() {
		return nil, apperr.StateConflict("invalid state for edit: %s", report.ApprovalStatus)
	}

	updates := map[string]interface{}{}
	if in.AmountNoVat != nil {
		updates["amount_no_vat"] = *in.AmountNoVat
	}
	if in.AmountWithVat != nil {
		updates["amount_with_vat"] = *in.AmountWithVat
	}
	if in.ReceiptsCount != nil {
		updates["receipts_count"] = *in.ReceiptsCount
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("nothing to update")
	}

	if err := s.db.WithContext(ctx).Model(&report).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update report %d: %w", id, err)
	}

	s.log.Info("Turnover report edited", zap.Uint("report_id", report.ID))
	return &report, nil
}

// GetByID loads one report.
func (s *TurnoverService) GetByID(ctx context.Context, id uint) (*model.TurnoverReport, error) {
	var report model.TurnoverReport
	if err := s.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("report")
		}
		return nil, fmt.Errorf("failed to load report %d: %w", id, err)
	}
	return &report, nil
}

// ListByTenant returns the tenant's full submission history, newest first.
func (s *TurnoverService) ListByTenant(ctx context.Context, tenantID uint) ([]model.TurnoverReport, error) {
	var reports []model.TurnoverReport
	if err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports for tenant %d: %w", tenantID, err)
	}
	return reports, nil
}

// ChartEntry is one month of a tenant's yearly turnover series.
type ChartEntry struct {
	Month         int     `json:"month"`
	MonthName     string  `json:"monthName"`
	AmountNoVat   float64 `json:"amountNoVat"`
	AmountWithVat float64 `json:"amountWithVat"`
	ReceiptsCount int     `json:"receiptsCount"`
	HasData       bool    `json:"hasData"`
}

// Chart builds the twelve-month series for a tenant and year. Only approved
// reports are eligible. If multiple approved rows exist for a month, which
// the approval invariant should prevent, the latest by UpdatedAt wins.
// Months with no approved report carry zero amounts and HasData=false.
func (s *TurnoverService) Chart(ctx context.Context, tenantID uint, year int) ([]ChartEntry, error) {
	var reports []model.TurnoverReport
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND year = ? AND approval_status = ?",
			tenantID, year, model.ApprovalStatusApproved).
		Order("month ASC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to load chart reports: %w", err)
	}

	latestByMonth := map[int]*model.TurnoverReport{}
	for i := range reports {
		r := &reports[i]
		if cur, ok := latestByMonth[r.Month]; !ok || r.UpdatedAt.After(cur.UpdatedAt) {
			latestByMonth[r.Month] = r
		}
	}

	entries := make([]ChartEntry, 12)
	for m := 1; m <= 12; m++ {
		entry := ChartEntry{Month: m, MonthName: time.Month(m).String()}
		if r, ok := latestByMonth[m]; ok {
			entry.AmountNoVat = r.AmountNoVat
			entry.AmountWithVat = r.AmountWithVat
			entry.ReceiptsCount = r.ReceiptsCount
			entry.HasData = true
		}
		entries[m-1] = entry
	}
	return entries, nil
}

// TenantPeriodSummary is one storefront's line in the admin period overview.
type TenantPeriodSummary struct {
	TenantID       uint                  `json:"tenantId"`
	TenantName     string                `json:"tenantName"`
	HasSubmitted   bool                  `json:"hasSubmitted"`
	AmountNoVat    float64               `json:"amountNoVat"`
	AmountWithVat  float64               `json:"amountWithVat"`
	ReceiptsCount  int                   `json:"receiptsCount"`
	FileName       *string               `json:"fileName"`
	FilePath       *string               `json:"filePath"`
	SubmittedAt    *time.Time            `json:"submittedAt"`
	UpdatedAt      *time.Time            `json:"updatedAt"`
	ApprovalStatus *model.ApprovalStatus `json:"approvalStatus"`
	Report         *model.TurnoverReport `json:"turnover"`
}

// PeriodOverview aggregates one period across all storefronts.
type PeriodOverview struct {
	Period         Period                `json:"period"`
	TotalTenants   int                   `json:"totalTenants"`
	SubmittedCount int                   `json:"submittedCount"`
	PendingCount   int                   `json:"pendingCount"`
	Data           []TenantPeriodSummary `json:"data"`
}

// Period identifies a reporting month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// betterCandidate reports whether a should represent the period over b.
// An approved report wins over everything; among equal-priority candidates
// the latest UpdatedAt wins.
func betterCandidate(a, b *model.TurnoverReport) bool {
	if b == nil {
		return true
	}
	aApproved := a.ApprovalStatus == model.ApprovalStatusApproved
	bApproved := b.ApprovalStatus == model.ApprovalStatusApproved
	if aApproved != bApproved {
		return aApproved
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

// Overview builds the admin all-tenants view for one period. Each
// storefront is represented by its approved report if one exists, otherwise
// by its latest pending report.
func (s *TurnoverService) Overview(ctx context.Context, year, month int) (*PeriodOverview, error) {
	if month < 1 || month > 12 {
		return nil, apperr.Validation("month must be between 1 and 12")
	}

	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).
		Where("name <> ?", model.AdminTenantName).
		Order("name ASC").
		Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	var reports []model.TurnoverReport
	if err := s.db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		Where("approval_status = ? OR (approval_status = ? AND is_latest = ?)",
			model.ApprovalStatusApproved, model.ApprovalStatusPending, true).
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to load period reports: %w", err)
	}

	best := map[uint]*model.TurnoverReport{}
	for i := range reports {
		r := &reports[i]
		if betterCandidate(r, best[r.TenantID]) {
			best[r.TenantID] = r
		}
	}

	overview := &PeriodOverview{
		Period:       Period{Year: year, Month: month},
		TotalTenants: len(tenants),
		Data:         make([]TenantPeriodSummary, 0, len(tenants)),
	}
	for _, t := range tenants {
		summary := TenantPeriodSummary{TenantID: t.ID, TenantName: t.Name}
		if r, ok := best[t.ID]; ok {
			summary.HasSubmitted = true
			summary.AmountNoVat = r.AmountNoVat
			summary.AmountWithVat = r.AmountWithVat
			summary.ReceiptsCount = r.ReceiptsCount
			summary.FileName = &r.FileName
			summary.FilePath = &r.FilePath
			summary.SubmittedAt = &r.CreatedAt
			summary.UpdatedAt = &r.UpdatedAt
			summary.ApprovalStatus = &r.ApprovalStatus
			summary.Report = r
			overview.SubmittedCount++
		}
		overview.Data = append(overview.Data, summary)
	}
	overview.PendingCount = overview.TotalTenants - overview.SubmittedCount
	return overview, nil
}

// MonthStatistics is one month of the yearly submission statistics.
type MonthStatistics struct {
	Month          int     `json:"month"`
	MonthName      string  `json:"monthName"`
	TotalTenants   int     `json:"totalTenants"`
	SubmittedCount int     `json:"submittedCount"`
	PendingCount   int     `json:"pendingCount"`
	TotalAmount    float64 `json:"totalAmount"`
	TotalReceipts  int     `json:"totalReceipts"`
}

// YearStatistics aggregates submissions over a whole year.
type YearStatistics struct {
	Year          int               `json:"year"`
	TotalTenants  int               `json:"totalTenants"`
	TotalTurnover float64           `json:"totalTurnover"`
	TotalReceipts int               `json:"totalReceipts"`
	MonthlyStats  []MonthStatistics `json:"monthlyStats"`
}

// Statistics builds per-month and yearly totals over every submission for
// the year, regardless of approval state.
func (s *TurnoverService) Statistics(ctx context.Context, year int) (*YearStatistics, error) {
	var tenantCount int64
	if err := s.db.WithContext(ctx).Model(&model.Tenant{}).
		Where("name <> ?", model.AdminTenantName).
		Count(&tenantCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count tenants: %w", err)
	}

	var reports []model.TurnoverReport
	if err := s.db.WithContext(ctx).
		Where("year = ?", year).
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to load year reports: %w", err)
	}

	stats := &YearStatistics{
		Year:         year,
		TotalTenants: int(tenantCount),
		MonthlyStats: make([]MonthStatistics, 12),
	}
	for m := 1; m <= 12; m++ {
		stats.MonthlyStats[m-1] = MonthStatistics{
			Month:        m,
			MonthName:    time.Month(m).String(),
			TotalTenants: int(tenantCount),
		}
	}
	for i := range reports {
		r := &reports[i]
		ms := &stats.MonthlyStats[r.Month-1]
		ms.SubmittedCount++
		ms.TotalAmount += r.AmountWithVat
		ms.TotalReceipts += r.ReceiptsCount
		stats.TotalTurnover += r.AmountWithVat
		stats.TotalReceipts += r.ReceiptsCount
	}
	for m := range stats.MonthlyStats {
		ms := &stats.MonthlyStats[m]
		ms.PendingCount = ms.TotalTenants - ms.SubmittedCount
		if ms.PendingCount < 0 {
			ms.PendingCount = 0
		}
	}
	return stats, nil
}

// PendingApproval returns the admin review queue: the latest pending report
// per (tenant, period), freshest first.
func (s *TurnoverService) PendingApproval(ctx context.Context) ([]model.TurnoverReport, error) {
	var reports []model.TurnoverReport
	if err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("approval_status = ? AND is_latest = ?", model.ApprovalStatusPending, true).
		Order("updated_at DESC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending reports: %w", err)
	}

	// Rows are ordered freshest first, so the first row per key wins.
	type periodKey struct {
		tenantID    uint
		month, year int
	}
	seen := map[periodKey]bool{}
	queue := make([]model.TurnoverReport, 0, len(reports))
	for _, r := range reports {
		key := periodKey{r.TenantID, r.Month, r.Year}
		if seen[key] {
			continue
		}
		seen[key] = true
		queue = append(queue, r)
	}
	return queue, nil
}
