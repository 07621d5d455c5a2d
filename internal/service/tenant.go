package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/model"
)

// TenantService manages storefront records for the admin dashboard.
type TenantService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewTenantService creates the service.
func NewTenantService(db *gorm.DB, log *zap.Logger) *TenantService {
	return &TenantService{db: db, log: log}
}

// TenantWithCount is a tenant record with its live non-deleted staff count.
type TenantWithCount struct {
	model.Tenant
	StaffCount int64 `json:"staffCount"`
}

// staffCounts returns the non-deleted staff headcount per tenant.
func (s *TenantService) staffCounts(ctx context.Context) (map[uint]int64, error) {
	var rows []struct {
		TenantID uint
		N        int64
	}
	if err := s.db.WithContext(ctx).Model(&model.StaffMember{}).
		Select("tenant_id, COUNT(*) AS n").
		Group("tenant_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count staff: %w", err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.TenantID] = r.N
	}
	return counts, nil
}

// List returns every non-deleted tenant with its staff count.
func (s *TenantService) List(ctx context.Context) ([]TenantWithCount, error) {
	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	counts, err := s.staffCounts(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]TenantWithCount, 0, len(tenants))
	for _, t := range tenants {
		result = append(result, TenantWithCount{Tenant: t, StaffCount: counts[t.ID]})
	}
	return result, nil
}

// Get returns one tenant with its staff count.
func (s *TenantService) Get(ctx context.Context, id uint) (*TenantWithCount, error) {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("tenant")
		}
		return nil, fmt.Errorf("failed to load tenant %d: %w", id, err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.StaffMember{}).
		Where("tenant_id = ?", id).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count staff: %w", err)
	}

	return &TenantWithCount{Tenant: tenant, StaffCount: count}, nil
}

// TenantUpdateInput carries a partial tenant update. Nil fields are left
// unchanged; empty strings clear the optional contact fields and a zero
// MaxStaff clears the limit.
type TenantUpdateInput struct {
	Name          *string
	MaxStaff      *int
	Email         *string
	Phone         *string
	ContactPerson *string
}

// Update applies a partial update to a tenant record.
func (s *TenantService) Update(ctx context.Context, id uint, in TenantUpdateInput) (*TenantWithCount, error) {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("tenant")
		}
		return nil, fmt.Errorf("failed to load tenant %d: %w", id, err)
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.MaxStaff != nil {
		if *in.MaxStaff < 0 {
			return nil, apperr.Validation("maxStaff must be a positive number")
		}
		if *in.MaxStaff == 0 {
			updates["max_staff"] = nil // remove the limit
		} else {
			updates["max_staff"] = *in.MaxStaff
		}
	}
	for column, value := range map[string]*string{
		"email":          in.Email,
		"phone":          in.Phone,
		"contact_person": in.ContactPerson,
	} {
		if value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			updates[column] = nil
		} else {
			updates[column] = trimmed
		}
	}

	if len(updates) == 0 {
		return nil, apperr.Validation("nothing to update")
	}

	if err := s.db.WithContext(ctx).Model(&tenant).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update tenant %d: %w", id, err)
	}

	s.log.Info("Tenant updated", zap.Uint("tenant_id", id))
	return s.Get(ctx, id)
}

// ResetPassword sets a new password for a tenant; admin-only operation.
func (s *TenantService) ResetPassword(ctx context.Context, id uint, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if len(newPassword) < 6 {
		return apperr.Validation("new password must be at least 6 characters long")
	}

	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("tenant")
		}
		return fmt.Errorf("failed to load tenant %d: %w", id, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&tenant).
		Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("failed to update password for tenant %d: %w", id, err)
	}

	s.log.Info("Tenant password reset by admin", zap.Uint("tenant_id", id))
	return nil
}

// Delete soft-deletes a tenant. The reserved admin account is protected.
func (s *TenantService) Delete(ctx context.Context, id uint) error {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("tenant")
		}
		return fmt.Errorf("failed to load tenant %d: %w", id, err)
	}

	if tenant.IsAdmin() {
		return apperr.Forbidden("admin account cannot be deleted")
	}

	if err := s.db.WithContext(ctx).Delete(&tenant).Error; err != nil {
		return fmt.Errorf("failed to delete tenant %d: %w", id, err)
	}

	s.log.Info("Tenant deleted", zap.Uint("tenant_id", id))
	return nil
}
