package handler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wowsandek/scud-portal/internal/middleware"
	"github.com/wowsandek/scud-portal/internal/model"
	"github.com/wowsandek/scud-portal/internal/service"
	"github.com/wowsandek/scud-portal/internal/storage"
	"github.com/wowsandek/scud-portal/pkg/jwtutil"
	"go.uber.org/zap"
)

var handlerDBCounter int64

type portalTestEnv struct {
	db       *gorm.DB
	e        *echo.Echo
	turnover *TurnoverHandler
	staff    *StaffHandler
}

func newPortalTestEnv(t *testing.T) *portalTestEnv {
	t.Helper()

	n := atomic.AddInt64(&handlerDBCounter, 1)
	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Tenant{},
		&model.StaffMember{},
		&model.ChangeRequest{},
		&model.TurnoverReport{},
	))

	log := zap.NewNop()
	files, err := storage.New(t.TempDir(), log)
	require.NoError(t, err)

	turnoverSvc := service.NewTurnoverService(db, files, nil, 20*1024*1024, log)
	staffSvc := service.NewStaffService(db, log)

	e := echo.New()
	e.Validator = NewValidator()

	return &portalTestEnv{
		db:       db,
		e:        e,
		turnover: NewTurnoverHandler(turnoverSvc, files),
		staff:    NewStaffHandler(staffSvc),
	}
}

func (env *portalTestEnv) createTenant(t *testing.T, name string) *model.Tenant {
	t.Helper()

	tenant := &model.Tenant{Name: name, APIKey: "key-" + name, Status: model.TenantStatusActive}
	require.NoError(t, env.db.Create(tenant).Error)
	return tenant
}

func (env *portalTestEnv) submitReport(t *testing.T, tenantID uint) *model.TurnoverReport {
	t.Helper()

	files, err := storage.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	svc := service.NewTurnoverService(env.db, files, nil, 20*1024*1024, zap.NewNop())

	report, err := svc.Submit(context.Background(), service.SubmitInput{
		TenantID:      tenantID,
		Month:         6,
		Year:          2025,
		AmountNoVat:   1000,
		AmountWithVat: 1210,
		ReceiptsCount: 42,
		FileName:      "report.pdf",
		FileType:      "application/pdf",
		FileSize:      3,
		File:          strings.NewReader("pdf"),
	})
	require.NoError(t, err)
	return report
}

func tenantClaims(tenantID uint) *jwtutil.Claims {
	return &jwtutil.Claims{TenantID: tenantID, Role: jwtutil.RoleTenant}
}

func TestEditRefusesForeignTenant(t *testing.T) {
	env := newPortalTestEnv(t)
	owner := env.createTenant(t, "store-a")
	intruder := env.createTenant(t, "store-b")
	report := env.submitReport(t, owner.ID)

	body := `{"amountNoVat": 1}`
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(report.ID))
	c.Set(middleware.UserContextKey, tenantClaims(intruder.ID))

	require.NoError(t, env.turnover.Edit(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var reloaded model.TurnoverReport
	require.NoError(t, env.db.First(&reloaded, report.ID).Error)
	assert.Equal(t, 1000.0, reloaded.AmountNoVat, "foreign edit must not change the report")

	// The owner can still edit.
	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = env.e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(report.ID))
	c.Set(middleware.UserContextKey, tenantClaims(owner.ID))

	require.NoError(t, env.turnover.Edit(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaffAddRefusesForeignTenant(t *testing.T) {
	env := newPortalTestEnv(t)
	owner := env.createTenant(t, "store-a")
	intruder := env.createTenant(t, "store-b")

	body := `{"fullName": "Mallory", "cardNumber": "C9"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("tenantId")
	c.SetParamValues(fmt.Sprint(owner.ID))
	c.Set(middleware.UserContextKey, tenantClaims(intruder.ID))

	require.NoError(t, env.staff.Add(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&model.StaffMember{}).
		Where("tenant_id = ?", owner.ID).Count(&count).Error)
	assert.Zero(t, count, "foreign add must not create a row")

	// The owner can add into their own registry.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = env.e.NewContext(req, rec)
	c.SetParamNames("tenantId")
	c.SetParamValues(fmt.Sprint(owner.ID))
	c.Set(middleware.UserContextKey, tenantClaims(owner.ID))

	require.NoError(t, env.staff.Add(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

// buildSubmitForm builds a multipart turnover submission. Amount fields are
// included only when provided.
func buildSubmitForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="report.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("pdf content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf, w.FormDataContentType()
}

func TestSubmitRequiresAmountFields(t *testing.T) {
	env := newPortalTestEnv(t)
	tenant := env.createTenant(t, "store-a")

	buf, contentType := buildSubmitForm(t, map[string]string{
		"tenantId": fmt.Sprint(tenant.ID),
		"month":    "6",
		"year":     "2025",
	})
	req := httptest.NewRequest(http.MethodPost, "/", buf)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.Set(middleware.UserContextKey, tenantClaims(tenant.ID))

	require.NoError(t, env.turnover.Submit(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")

	var count int64
	require.NoError(t, env.db.Model(&model.TurnoverReport{}).Count(&count).Error)
	assert.Zero(t, count)

	// The complete form is accepted.
	buf, contentType = buildSubmitForm(t, map[string]string{
		"tenantId":      fmt.Sprint(tenant.ID),
		"month":         "6",
		"year":          "2025",
		"amountNoVat":   "1000",
		"amountWithVat": "1210",
		"receiptsCount": "42",
	})
	req = httptest.NewRequest(http.MethodPost, "/", buf)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec = httptest.NewRecorder()
	c = env.e.NewContext(req, rec)
	c.Set(middleware.UserContextKey, tenantClaims(tenant.ID))

	require.NoError(t, env.turnover.Submit(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amountNoVat":1000`)
}
