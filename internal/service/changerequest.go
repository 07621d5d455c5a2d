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

// requestPageSize is the fixed page size of the admin request list.
const requestPageSize = 20

// ChangeRequestService implements the staff change-request workflow:
// a tenant proposes a batch of additions and removals, administration
// approves (applies the batch) or rejects (no-op).
type ChangeRequestService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewChangeRequestService creates the service.
func NewChangeRequestService(db *gorm.DB, log *zap.Logger) *ChangeRequestService {
	return &ChangeRequestService{db: db, log: log}
}

// Propose creates a pending change request. Capacity is not checked here;
// the hard check happens at approval time.
func (s *ChangeRequestService) Propose(ctx context.Context, tenantID uint, additions, removals []model.StaffChange, comment string) (*model.ChangeRequest, error) {
	if len(additions) == 0 && len(removals) == 0 {
		return nil, apperr.Validation("request must contain at least one addition or removal")
	}
	for _, ch := range append(append([]model.StaffChange{}, additions...), removals...) {
		if strings.TrimSpace(ch.FullName) == "" || strings.TrimSpace(ch.CardNumber) == "" {
			return nil, apperr.Validation("full name and card number are required for every entry")
		}
	}

	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("tenant")
		}
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	request := &model.ChangeRequest{
		TenantID:  tenantID,
		Additions: additions,
		Removals:  removals,
		Comment:   comment,
		Status:    model.RequestStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, fmt.Errorf("failed to create change request: %w", err)
	}

	s.log.Info("Change request created",
		zap.Uint("request_id", request.ID),
		zap.Uint("tenant_id", tenantID),
		zap.Int("additions", len(additions)),
		zap.Int("removals", len(removals)))
	return request, nil
}

// Approve applies the request's batch in one transaction: every addition
// becomes a new staff member, every removal soft-deletes all staff matching
// the given full name and card number, then the request is marked approved.
// If the resulting headcount would exceed the tenant's capacity limit the
// whole batch is refused and nothing is applied.
func (s *ChangeRequestService) Approve(ctx context.Context, id uint) (*model.ChangeRequest, error) {
	var request model.ChangeRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("request")
			}
			return err
		}
		if request.Status.Terminal() {
			return apperr.StateConflict("request is already %s", request.Status)
		}

		var tenant model.Tenant
		if err := tx.First(&tenant, request.TenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("tenant")
			}
			return err
		}

		// Count how many existing rows the removals will match before
		// applying anything, so the capacity check sees the batch's
		// net effect.
		removed := int64(0)
		for _, rm := range request.Removals {
			var n int64
			if err := tx.Model(&model.StaffMember{}).
				Where("tenant_id = ? AND full_name = ? AND card_number = ?",
					request.TenantID, rm.FullName, rm.CardNumber).
				Count(&n).Error; err != nil {
				return err
			}
			removed += n
		}

		if tenant.MaxStaff != nil {
			var current int64
			if err := tx.Model(&model.StaffMember{}).
				Where("tenant_id = ?", request.TenantID).
				Count(&current).Error; err != nil {
				return err
			}
			resulting := current + int64(len(request.Additions)) - removed
			if resulting > int64(*tenant.MaxStaff) {
				return apperr.StateConflict(
					"approving would exceed the staff limit of %d (resulting headcount %d)",
					*tenant.MaxStaff, resulting)
			}
		}

		for _, add := range request.Additions {
			member := model.StaffMember{
				TenantID:   request.TenantID,
				FullName:   add.FullName,
				CardNumber: add.CardNumber,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}

		// Removals match by name and card number, not by id; every
		// matching row is soft-deleted.
		for _, rm := range request.Removals {
			if err := tx.Where("tenant_id = ? AND full_name = ? AND card_number = ?",
				request.TenantID, rm.FullName, rm.CardNumber).
				Delete(&model.StaffMember{}).Error; err != nil {
				return err
			}
		}

		return tx.Model(&request).Update("status", model.RequestStatusApproved).Error
	})
	if err != nil {
		if apperr.IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to approve request %d: %w", id, err)
	}

	s.log.Info("Change request approved",
		zap.Uint("request_id", request.ID),
		zap.Uint("tenant_id", request.TenantID))
	return &request, nil
}

// Reject marks the request rejected without touching the staff registry.
func (s *ChangeRequestService) Reject(ctx context.Context, id uint) (*model.ChangeRequest, error) {
	var request model.ChangeRequest
	if err := s.db.WithContext(ctx).First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("request")
		}
		return nil, fmt.Errorf("failed to load request %d: %w", id, err)
	}
	if request.Status.Terminal() {
		return nil, apperr.StateConflict("request is already %s", request.Status)
	}

	if err := s.db.WithContext(ctx).Model(&request).
		Update("status", model.RequestStatusRejected).Error; err != nil {
		return nil, fmt.Errorf("failed to reject request %d: %w", id, err)
	}

	s.log.Info("Change request rejected", zap.Uint("request_id", request.ID))
	return &request, nil
}

// RequestListFilter narrows the admin request list.
type RequestListFilter struct {
	Page         int
	Status       string // "", "all" or a RequestStatus value
	TenantSearch string // case-insensitive substring of the tenant name
}

// RequestStats is the status breakdown shown next to the unfiltered list.
type RequestStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// RequestPage is one page of the admin request list.
type RequestPage struct {
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int64                 `json:"totalPages"`
	Data       []model.ChangeRequest `json:"data"`
	Stats      *RequestStats         `json:"stats"`
}

// List returns a page of change requests for the admin view, newest first,
// optionally filtered by status and tenant-name substring. The status
// breakdown is only computed for the unfiltered view.
func (s *ChangeRequestService) List(ctx context.Context, filter RequestListFilter) (*RequestPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}

	query := s.db.WithContext(ctx).Model(&model.ChangeRequest{})
	if filter.Status != "" && filter.Status != "all" {
		if !model.RequestStatus(filter.Status).Valid() {
			return nil, apperr.Validation("unknown status filter: %s", filter.Status)
		}
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TenantSearch != "" {
		query = query.
			Joins("JOIN tenants ON tenants.id = change_requests.tenant_id").
			Where("LOWER(tenants.name) LIKE ?", "%"+strings.ToLower(filter.TenantSearch)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	var requests []model.ChangeRequest
	if err := query.
		Preload("Tenant").
		Order("change_requests.created_at DESC").
		Offset((page - 1) * requestPageSize).
		Limit(requestPageSize).
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	result := &RequestPage{
		Total:      total,
		Page:       page,
		PageSize:   requestPageSize,
		TotalPages: (total + requestPageSize - 1) / requestPageSize,
		Data:       requests,
	}

	if filter.Status == "" || filter.Status == "all" {
		stats := &RequestStats{}
		counts := []struct {
			status model.RequestStatus
			dest   *int64
		}{
			{model.RequestStatusPending, &stats.Pending},
			{model.RequestStatusApproved, &stats.Approved},
			{model.RequestStatusRejected, &stats.Rejected},
		}
		for _, c := range counts {
			if err := s.db.WithContext(ctx).Model(&model.ChangeRequest{}).
				Where("status = ?", c.status).
				Count(c.dest).Error; err != nil {
				return nil, fmt.Errorf("failed to count %s requests: %w", c.status, err)
			}
		}
		result.Stats = stats
	}

	return result, nil
}

// ListByTenant returns a tenant's own request history, newest first.
func (s *ChangeRequestService) ListByTenant(ctx context.Context, tenantID uint) ([]model.ChangeRequest, error) {
	var requests []model.ChangeRequest
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list requests for tenant %d: %w", tenantID, err)
	}
	return requests, nil
}
