package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/model"
)

// StaffService manages a tenant's access-card holders.
type StaffService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStaffService creates the service.
func NewStaffService(db *gorm.DB, log *zap.Logger) *StaffService {
	return &StaffService{db: db, log: log}
}

// ListByTenant returns the tenant's staff, excluding soft-deleted members.
func (s *StaffService) ListByTenant(ctx context.Context, tenantID uint) ([]model.StaffMember, error) {
	var members []model.StaffMember
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list staff for tenant %d: %w", tenantID, err)
	}
	return members, nil
}

// Add creates one staff member directly, enforcing the tenant's capacity
// limit.
func (s *StaffService) Add(ctx context.Context, tenantID uint, fullName, cardNumber string) (*model.StaffMember, error) {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(cardNumber) == "" {
		return nil, apperr.Validation("full name and card number are required")
	}

	var member *model.StaffMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant model.Tenant
		if err := tx.First(&tenant, tenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("tenant")
			}
			return err
		}

		if tenant.MaxStaff != nil {
			var current int64
			if err := tx.Model(&model.StaffMember{}).
				Where("tenant_id = ?", tenantID).
				Count(&current).Error; err != nil {
				return err
			}
			if current+1 > int64(*tenant.MaxStaff) {
				return apperr.StateConflict("staff limit of %d reached", *tenant.MaxStaff)
			}
		}

		member = &model.StaffMember{
			TenantID:   tenantID,
			FullName:   fullName,
			CardNumber: cardNumber,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		if apperr.IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add staff member: %w", err)
	}

	s.log.Info("Staff member added",
		zap.Uint("staff_id", member.ID),
		zap.Uint("tenant_id", tenantID))
	return member, nil
}

// Remove soft-deletes one staff member by id.
func (s *StaffService) Remove(ctx context.Context, id uint) error {
	var member model.StaffMember
	if err := s.db.WithContext(ctx).First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("staff member")
		}
		return fmt.Errorf("failed to load staff member %d: %w", id, err)
	}

	if err := s.db.WithContext(ctx).Delete(&member).Error; err != nil {
		return fmt.Errorf("failed to delete staff member %d: %w", id, err)
	}

	s.log.Info("Staff member removed", zap.Uint("staff_id", id))
	return nil
}
