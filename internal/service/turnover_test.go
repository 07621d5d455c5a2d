package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/model"
	"github.com/wowsandek/scud-portal/internal/storage"
)

func newTurnoverService(t *testing.T, db *gorm.DB) *TurnoverService {
	t.Helper()

	files, err := storage.New(t.TempDir(), testLogger())
	require.NoError(t, err)
	return NewTurnoverService(db, files, nil, 20*1024*1024, testLogger())
}

func submitReport(t *testing.T, svc *TurnoverService, tenantID uint, month, year int) *model.TurnoverReport {
	t.Helper()

	report, err := svc.Submit(context.Background(), SubmitInput{
		TenantID:      tenantID,
		Month:         month,
		Year:          year,
		AmountNoVat:   1000,
		AmountWithVat: 1210,
		ReceiptsCount: 42,
		FileName:      "report.pdf",
		FileType:      "application/pdf",
		FileSize:      11,
		File:          strings.NewReader("pdf content"),
	})
	require.NoError(t, err)
	return report
}

func TestSubmitValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenant := createTenant(t, db, "store-a")
	ctx := context.Background()

	base := SubmitInput{
		TenantID: tenant.ID,
		Month:    6,
		Year:     2025,
		FileName: "report.pdf",
		FileType: "application/pdf",
		FileSize: 3,
		File:     strings.NewReader("abc"),
	}

	in := base
	in.Month = 13
	_, err := svc.Submit(ctx, in)
	assert.ErrorContains(t, err, "month")

	in = base
	in.Year = 2019
	_, err = svc.Submit(ctx, in)
	assert.ErrorContains(t, err, "year")

	in = base
	in.FileType = "application/zip"
	_, err = svc.Submit(ctx, in)
	assert.ErrorContains(t, err, "unsupported file type")

	in = base
	in.FileSize = 21 * 1024 * 1024
	_, err = svc.Submit(ctx, in)
	assert.ErrorContains(t, err, "maximum size")

	in = base
	in.TenantID = 9999
	_, err = svc.Submit(ctx, in)
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestSubmitMarksOnlyNewestAsLatest(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenant := createTenant(t, db, "store-a")

	first := submitReport(t, svc, tenant.ID, 6, 2025)
	assert.True(t, first.IsLatest)
	assert.Equal(t, model.ApprovalStatusPending, first.ApprovalStatus)

	second := submitReport(t, svc, tenant.ID, 6, 2025)
	assert.True(t, second.IsLatest)

	var latestCount int64
	require.NoError(t, db.Model(&model.TurnoverReport{}).
		Where("tenant_id = ? AND month = ? AND year = ? AND is_latest = ?", tenant.ID, 6, 2025, true).
		Count(&latestCount).Error)
	assert.Equal(t, int64(1), latestCount)

	var reloaded model.TurnoverReport
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.False(t, reloaded.IsLatest)

	// A different period keeps its own latest flag.
	other := submitReport(t, svc, tenant.ID, 7, 2025)
	assert.True(t, other.IsLatest)
	reloaded = model.TurnoverReport{}
	require.NoError(t, db.First(&reloaded, second.ID).Error)
	assert.True(t, reloaded.IsLatest)
}

func TestApproveDemotesSiblings(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenant := createTenant(t, db, "store-a")
	ctx := context.Background()

	first := submitReport(t, svc, tenant.ID, 6, 2025)
	second := submitReport(t, svc, tenant.ID, 6, 2025)

	approved, err := svc.Approve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalStatusApproved, approved.ApprovalStatus)
	assert.Equal(t, tenant.Name, approved.Tenant.Name)

	var reloaded model.TurnoverReport
	require.NoError(t, db.First(&reloaded, second.ID).Error)
	assert.Equal(t, model.ApprovalStatusNotApproved, reloaded.ApprovalStatus)

	// Approving the sibling flips the previous winner to not_approved.
	_, err = svc.Approve(ctx, second.ID)
	require.NoError(t, err)

	reloaded = model.TurnoverReport{}
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.Equal(t, model.ApprovalStatusNotApproved, reloaded.ApprovalStatus)

	var approvedCount int64
	require.NoError(t, db.Model(&model.TurnoverReport{}).
		Where("tenant_id = ? AND month = ? AND year = ? AND approval_status = ?",
			tenant.ID, 6, 2025, model.ApprovalStatusApproved).
		Count(&approvedCount).Error)
	assert.Equal(t, int64(1), approvedCount)
}

func TestRejectLeavesSiblingsUntouched(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenant := createTenant(t, db, "store-a")
	ctx := context.Background()

	first := submitReport(t, svc, tenant.ID, 6, 2025)
	second := submitReport(t, svc, tenant.ID, 6, 2025)

	rejected, err := svc.Reject(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalStatusRejected, rejected.ApprovalStatus)

	var reloaded model.TurnoverReport
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.Equal(t, model.ApprovalStatusPending, reloaded.ApprovalStatus)

	// The older sibling can still be approved afterwards.
	_, err = svc.Approve(ctx, first.ID)
	require.NoError(t, err)
}

func TestResubmissionPreservesApprovedHistory(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenant := createTenant(t, db, "store-a")
	ctx := context.Background()

	first := submitReport(t, svc, tenant.ID, 6, 2025)
	_, err := svc.Approve(ctx, first.ID)
	require.NoError(t, err)

	second := submitReport(t, svc, tenant.ID, 6, 2025)
	assert.True(t, second.IsLatest)

	var reloaded model.TurnoverReport
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.Equal(t, model.ApprovalStatusApproved, reloaded.ApprovalStatus)
	assert.False(t, reloaded.IsLatest)
}

func TestEditGating(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenant := createTenant(t, db, "store-a")
	ctx := context.Background()

	report := submitReport(t, svc, tenant.ID, 6, 2025)

	amount := 2000.0
	edited, err := svc.Edit(ctx, report.ID, EditInput{AmountNoVat: &amount})
	require.NoError(t, err)
	assert.Equal(t, 2000.0, edited.AmountNoVat)
	assert.Equal(t, 1210.0, edited.AmountWithVat)

	_, err = svc.Approve(ctx, report.ID)
	require.NoError(t, err)
	_, err = svc.Edit(ctx, report.ID, EditInput{AmountNoVat: &amount})
	assert.NoError(t, err, "approved reports stay editable")

	rejected := submitReport(t, svc, tenant.ID, 7, 2025)
	_, err = svc.Reject(ctx, rejected.ID)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, rejected.ID, EditInput{AmountNoVat: &amount})
	var sc *apperr.StateConflictError
	assert.ErrorAs(t, err, &sc)

	_, err = svc.Edit(ctx, report.ID, EditInput{})
	assert.ErrorContains(t, err, "nothing to update")
}

func TestChartUsesApprovedReportsOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenant := createTenant(t, db, "store-a")
	ctx := context.Background()

	march := submitReport(t, svc, tenant.ID, 3, 2025)
	_, err := svc.Approve(ctx, march.ID)
	require.NoError(t, err)
	submitReport(t, svc, tenant.ID, 5, 2025) // pending, must not appear

	entries, err := svc.Chart(ctx, tenant.ID, 2025)
	require.NoError(t, err)
	require.Len(t, entries, 12)

	assert.True(t, entries[2].HasData)
	assert.Equal(t, "March", entries[2].MonthName)
	assert.Equal(t, 1000.0, entries[2].AmountNoVat)

	assert.False(t, entries[4].HasData)
	assert.Zero(t, entries[4].AmountNoVat)
}

func TestOverviewPrefersApprovedOverLatestPending(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	createClaimedTenant(t, db, model.AdminTenantName, "admin@mall.test", "x")
	tenantA := createTenant(t, db, "store-a")
	tenantB := createTenant(t, db, "store-b")
	createTenant(t, db, "store-c") // never submits
	ctx := context.Background()

	approved := submitReport(t, svc, tenantA.ID, 6, 2025)
	_, err := svc.Approve(ctx, approved.ID)
	require.NoError(t, err)
	submitReport(t, svc, tenantA.ID, 6, 2025) // newer pending resubmission

	submitReport(t, svc, tenantB.ID, 6, 2025)

	overview, err := svc.Overview(ctx, 2025, 6)
	require.NoError(t, err)

	assert.Equal(t, 3, overview.TotalTenants, "admin account is excluded")
	assert.Equal(t, 2, overview.SubmittedCount)
	assert.Equal(t, 1, overview.PendingCount)
	require.Len(t, overview.Data, 3)

	byName := map[string]TenantPeriodSummary{}
	for _, s := range overview.Data {
		byName[s.TenantName] = s
	}

	require.NotNil(t, byName["store-a"].ApprovalStatus)
	assert.Equal(t, model.ApprovalStatusApproved, *byName["store-a"].ApprovalStatus)
	assert.Equal(t, approved.ID, byName["store-a"].Report.ID)

	require.NotNil(t, byName["store-b"].ApprovalStatus)
	assert.Equal(t, model.ApprovalStatusPending, *byName["store-b"].ApprovalStatus)

	assert.False(t, byName["store-c"].HasSubmitted)
	assert.Nil(t, byName["store-c"].Report)
}

func TestStatisticsCountsAllStatuses(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	createClaimedTenant(t, db, model.AdminTenantName, "admin@mall.test", "x")
	tenant := createTenant(t, db, "store-a")
	ctx := context.Background()

	report := submitReport(t, svc, tenant.ID, 6, 2025)
	_, err := svc.Reject(ctx, report.ID)
	require.NoError(t, err)
	submitReport(t, svc, tenant.ID, 7, 2025)

	stats, err := svc.Statistics(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTenants)
	assert.Equal(t, 2*1210.0, stats.TotalTurnover)
	assert.Equal(t, 84, stats.TotalReceipts)

	june := stats.MonthlyStats[5]
	assert.Equal(t, 1, june.SubmittedCount, "rejected submissions still count")
	assert.Equal(t, 1210.0, june.TotalAmount)
}

func TestPendingApprovalQueue(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenantA := createTenant(t, db, "store-a")
	tenantB := createTenant(t, db, "store-b")
	ctx := context.Background()

	submitReport(t, svc, tenantA.ID, 6, 2025)
	latestA := submitReport(t, svc, tenantA.ID, 6, 2025)
	latestB := submitReport(t, svc, tenantB.ID, 6, 2025)

	approvedA := submitReport(t, svc, tenantA.ID, 7, 2025)
	_, err := svc.Approve(ctx, approvedA.ID)
	require.NoError(t, err)

	queue, err := svc.PendingApproval(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	ids := []uint{queue[0].ID, queue[1].ID}
	assert.Contains(t, ids, latestA.ID)
	assert.Contains(t, ids, latestB.ID)
	for _, r := range queue {
		assert.Equal(t, model.ApprovalStatusPending, r.ApprovalStatus)
		assert.True(t, r.IsLatest)
		assert.NotEmpty(t, r.Tenant.Name)
	}
}

func TestListByTenantNewestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := newTurnoverService(t, db)
	tenant := createTenant(t, db, "store-a")
	other := createTenant(t, db, "store-b")
	ctx := context.Background()

	submitReport(t, svc, tenant.ID, 5, 2025)
	submitReport(t, svc, tenant.ID, 6, 2025)
	submitReport(t, svc, other.ID, 6, 2025)

	reports, err := svc.ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, tenant.ID, r.TenantID)
	}
}
