package model

import (
	"time"

	"gorm.io/gorm"
)

// StaffMember is an access-card holder belonging to a tenant.
type StaffMember struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	TenantID   uint           `json:"tenantId" gorm:"index;not null"`
	FullName   string         `json:"fullName" gorm:"type:varchar(150);not null"`
	CardNumber string         `json:"cardNumber" gorm:"type:varchar(50);not null"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	Tenant Tenant `json:"-" gorm:"foreignKey:TenantID"`
}
