package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wowsandek/scud-portal/internal/model"
)

var testDBCounter int64

// newTestDB opens an isolated in-memory database with the portal schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:portaltest%d?mode=memory&cache=shared", n)
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
	return db
}

// createTenant inserts an active storefront and returns it.
func createTenant(t *testing.T, db *gorm.DB, name string) *model.Tenant {
	t.Helper()

	tenant := &model.Tenant{
		Name:   name,
		APIKey: "key-" + name,
		Status: model.TenantStatusActive,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// createClaimedTenant inserts an active storefront with credentials.
func createClaimedTenant(t *testing.T, db *gorm.DB, name, email, passwordHash string) *model.Tenant {
	t.Helper()

	tenant := &model.Tenant{
		Name:         name,
		APIKey:       "key-" + name,
		PasswordHash: &passwordHash,
		Email:        &email,
		Status:       model.TenantStatusActive,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
