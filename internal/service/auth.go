package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/model"
	"github.com/wowsandek/scud-portal/pkg/jwtutil"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-+()]{7,20}$`)
)

// AuthService implements the registration/approval flow and session login.
type AuthService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuthService creates the service.
func NewAuthService(db *gorm.DB, log *zap.Logger) *AuthService {
	return &AuthService{db: db, log: log}
}

// AvailableStore is a storefront slot open for self-registration.
type AvailableStore struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// AvailableStores lists admin-approved slots nobody has claimed yet:
// active status and no password hash.
func (s *AuthService) AvailableStores(ctx context.Context) ([]AvailableStore, error) {
	var stores []AvailableStore
	if err := s.db.WithContext(ctx).Model(&model.Tenant{}).
		Select("id, name").
		Where("status = ? AND password_hash IS NULL", model.TenantStatusActive).
		Order("name ASC").
		Scan(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to list available stores: %w", err)
	}
	return stores, nil
}

// RegisterInput carries a self-registration against an existing slot.
type RegisterInput struct {
	StoreID       uint
	Password      string
	Email         string
	Phone         string
	ContactPerson string
}

// Register claims an unclaimed active storefront slot: stores the contact
// details and password hash and moves the slot to pending, awaiting admin
// approval.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.Tenant, error) {
	password := strings.TrimSpace(in.Password)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	contactPerson := strings.TrimSpace(in.ContactPerson)

	if in.StoreID == 0 || password == "" || email == "" || contactPerson == "" {
		return nil, apperr.Validation("store selection, password, email and contact person are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperr.Validation("please enter a valid email address")
	}
	if phone != "" && !phonePattern.MatchString(phone) {
		return nil, apperr.Validation("please enter a valid phone number")
	}

	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, in.StoreID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("store")
		}
		return nil, fmt.Errorf("failed to load store %d: %w", in.StoreID, err)
	}

	if tenant.Status != model.TenantStatusActive {
		return nil, apperr.StateConflict("this store is not available for registration")
	}
	if tenant.Claimed() {
		return nil, apperr.StateConflict("this store already has an account")
	}

	// Email must be unique across all tenants.
	var emailCount int64
	if err := s.db.WithContext(ctx).Model(&model.Tenant{}).
		Where("email = ? AND id <> ?", email, tenant.ID).
		Count(&emailCount).Error; err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if emailCount > 0 {
		return nil, apperr.StateConflict("this email is already in use by another store")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	updates := map[string]interface{}{
		"password_hash":  string(hash),
		"email":          email,
		"contact_person": contactPerson,
		"status":         model.TenantStatusPending,
	}
	if phone != "" {
		updates["phone"] = phone
	}
	if err := s.db.WithContext(ctx).Model(&tenant).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to register store %d: %w", tenant.ID, err)
	}

	s.log.Info("Registration submitted for approval",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("store", tenant.Name))
	return &tenant, nil
}

// PendingTenants lists registrations awaiting admin review.
func (s *AuthService) PendingTenants(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.TenantStatusPending).
		Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending tenants: %w", err)
	}
	return tenants, nil
}

// ApproveRegistration activates a pending registration.
func (s *AuthService) ApproveRegistration(ctx context.Context, id uint) error {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("tenant")
		}
		return fmt.Errorf("failed to load tenant %d: %w", id, err)
	}

	if !tenant.Claimed() {
		return apperr.StateConflict("cannot approve tenant without a password")
	}

	if err := s.db.WithContext(ctx).Model(&tenant).
		Update("status", model.TenantStatusActive).Error; err != nil {
		return fmt.Errorf("failed to approve tenant %d: %w", id, err)
	}

	s.log.Info("Registration approved", zap.Uint("tenant_id", id))
	return nil
}

// RejectRegistration clears the contact details and password of a pending
// registration and returns the slot to the unclaimed active state, making
// it available for registration again.
func (s *AuthService) RejectRegistration(ctx context.Context, id uint) error {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("tenant")
		}
		return fmt.Errorf("failed to load tenant %d: %w", id, err)
	}

	if tenant.Status != model.TenantStatusPending {
		return apperr.StateConflict("can only reject pending registrations")
	}

	if err := s.db.WithContext(ctx).Model(&tenant).Updates(map[string]interface{}{
		"password_hash":  nil,
		"email":          nil,
		"phone":          nil,
		"contact_person": nil,
		"status":         model.TenantStatusActive,
	}).Error; err != nil {
		return fmt.Errorf("failed to reject registration %d: %w", id, err)
	}

	s.log.Info("Registration rejected, slot reopened", zap.Uint("tenant_id", id))
	return nil
}

// LoginResult carries a successful login.
type LoginResult struct {
	Token  string        `json:"token"`
	Tenant *model.Tenant `json:"-"`
}

// Login authenticates a tenant account and issues a session token. The
// reserved admin account logs in by name; everyone else by email. Only
// active accounts with a password hash can authenticate.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	password = strings.TrimSpace(password)
	if login == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	var tenant model.Tenant
	var err error
	if login == model.AdminTenantName {
		err = s.db.WithContext(ctx).Where("name = ?", model.AdminTenantName).First(&tenant).Error
	} else {
		err = s.db.WithContext(ctx).Where("email = ?", login).First(&tenant).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if !tenant.Claimed() {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if tenant.Status != model.TenantStatusActive {
		return nil, apperr.Forbidden("your account has not been approved yet")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*tenant.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	role := jwtutil.RoleTenant
	if tenant.IsAdmin() {
		role = jwtutil.RoleAdmin
	}

	email := ""
	if tenant.Email != nil {
		email = *tenant.Email
	}
	token, err := jwtutil.GenerateToken(tenant.ID, tenant.Name, email, role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info("Login", zap.Uint("tenant_id", tenant.ID), zap.String("role", role))
	return &LoginResult{Token: token, Tenant: &tenant}, nil
}

// ChangePassword lets an authenticated tenant rotate its own password.
func (s *AuthService) ChangePassword(ctx context.Context, tenantID uint, currentPassword, newPassword string) error {
	currentPassword = strings.TrimSpace(currentPassword)
	newPassword = strings.TrimSpace(newPassword)
	if currentPassword == "" || newPassword == "" {
		return apperr.Validation("current password and new password are required")
	}
	if len(newPassword) < 6 {
		return apperr.Validation("new password must be at least 6 characters long")
	}

	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("tenant")
		}
		return fmt.Errorf("failed to load tenant %d: %w", tenantID, err)
	}
	if !tenant.Claimed() {
		return apperr.NotFound("tenant")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*tenant.PasswordHash), []byte(currentPassword)); err != nil {
		return apperr.Validation("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&tenant).
		Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("failed to change password for tenant %d: %w", tenantID, err)
	}

	s.log.Info("Password changed", zap.Uint("tenant_id", tenantID))
	return nil
}
