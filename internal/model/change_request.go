package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestStatus is the lifecycle state of a staff change request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is a known request state.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestStatusApproved, RequestStatusRejected:
		return true
	case RequestStatusPending:
		return false
	}
	return false
}

// StaffChange is one proposed addition or removal inside a change request.
// Removals are matched against existing staff by full name AND card number.
type StaffChange struct {
	FullName   string `json:"fullName"`
	CardNumber string `json:"cardNumber"`
}

// ChangeRequest is a tenant-submitted batch proposal to add and remove
// staff members, subject to admin approval.
type ChangeRequest struct {
	ID        uint                             `json:"id" gorm:"primaryKey"`
	TenantID  uint                             `json:"tenantId" gorm:"index;not null"`
	Additions datatypes.JSONSlice[StaffChange] `json:"additions"`
	Removals  datatypes.JSONSlice[StaffChange] `json:"removals"`
	Comment   string                           `json:"comment" gorm:"type:text"`
	Status    RequestStatus                    `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CreatedAt time.Time                        `json:"createdAt"`
	UpdatedAt time.Time                        `json:"updatedAt"`
	DeletedAt gorm.DeletedAt                   `json:"-" gorm:"index"`

	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}
