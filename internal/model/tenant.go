package model

import (
	"time"

	"gorm.io/gorm"
)

// AdminTenantName is the reserved account mall administration logs in with.
// It can never be soft-deleted.
const AdminTenantName = "admin"

// TenantStatus is the lifecycle state of a storefront slot.
type TenantStatus string

const (
	// TenantStatusPending marks a slot whose registration awaits admin review.
	TenantStatusPending TenantStatus = "pending"
	// TenantStatusActive marks an approved slot. An unclaimed active slot
	// (no password hash) is open for self-registration.
	TenantStatusActive TenantStatus = "active"
)

// Valid reports whether s is a known lifecycle state.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusPending, TenantStatusActive:
		return true
	}
	return false
}

// Tenant represents a mall storefront account. It owns staff members,
// change requests and turnover reports.
type Tenant struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash  *string        `json:"-" gorm:"type:varchar(255)"`
	APIKey        string         `json:"apiKey" gorm:"type:varchar(64)"`
	Email         *string        `json:"email,omitempty" gorm:"type:varchar(100);index"`
	Phone         *string        `json:"phone,omitempty" gorm:"type:varchar(30)"`
	ContactPerson *string        `json:"contactPerson,omitempty" gorm:"type:varchar(150)"`
	MaxStaff      *int           `json:"maxStaff,omitempty"` // nil means unlimited
	Status        TenantStatus   `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsAdmin reports whether this is the reserved administration account.
func (t *Tenant) IsAdmin() bool {
	return t.Name == AdminTenantName
}

// Claimed reports whether an account has been registered against this slot.
func (t *Tenant) Claimed() bool {
	return t.PasswordHash != nil
}
