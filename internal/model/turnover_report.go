package model

import (
	"time"
)

// ApprovalStatus is the per-report review state.
//
// not_approved is distinct from rejected: it marks a report that was
// approved in the past but has since been superseded by a sibling report
// being approved for the same period.
type ApprovalStatus string

const (
	ApprovalStatusPending     ApprovalStatus = "pending"
	ApprovalStatusApproved    ApprovalStatus = "approved"
	ApprovalStatusRejected    ApprovalStatus = "rejected"
	ApprovalStatusNotApproved ApprovalStatus = "not_approved"
)

// Valid reports whether s is a known review state.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusNotApproved:
		return true
	}
	return false
}

// Editable reports whether a report's numeric fields may still be changed.
func (s ApprovalStatus) Editable() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved:
		return true
	case ApprovalStatusRejected, ApprovalStatusNotApproved:
		return false
	}
	return false
}

// Report period bounds.
const (
	MinReportYear = 2020
	MaxReportYear = 2030
)

// TurnoverReport is a tenant's monthly sales submission with a supporting
// file. For a given (tenant, month, year) at most one row has IsLatest set
// and at most one row is approved at any time.
type TurnoverReport struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	TenantID       uint           `json:"tenantId" gorm:"index;not null;index:idx_turnover_period"`
	Month          int            `json:"month" gorm:"not null;index:idx_turnover_period"`
	Year           int            `json:"year" gorm:"not null;index:idx_turnover_period"`
	AmountNoVat    float64        `json:"amountNoVat"`
	AmountWithVat  float64        `json:"amountWithVat"`
	ReceiptsCount  int            `json:"receiptsCount"`
	FileName       string         `json:"fileName" gorm:"type:varchar(255)"`
	FilePath       string         `json:"filePath" gorm:"type:varchar(500)"`
	FileSize       int64          `json:"fileSize"`
	FileType       string         `json:"fileType" gorm:"type:varchar(100)"`
	PdfFilePath    *string        `json:"pdfFilePath,omitempty" gorm:"type:varchar(500)"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus" gorm:"type:varchar(20);default:'pending';index"`
	IsLatest       bool           `json:"isLatest" gorm:"index"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`

	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}
