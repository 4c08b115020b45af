package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CancelRequestStatus represents the processing status of a cancellation request
type CancelRequestStatus string

const (
	CancelRequestRequested     CancelRequestStatus = "REQUESTED"
	CancelRequestAdminApproved CancelRequestStatus = "ADMIN_APPROVED"
	CancelRequestAdminDenied   CancelRequestStatus = "ADMIN_DENIED"
	CancelRequestUserWithdrawn CancelRequestStatus = "USER_WITHDRAWN"
)

// IsOpen reports whether the request still awaits an admin decision.
func (s CancelRequestStatus) IsOpen() bool {
	return s == CancelRequestRequested
}

// CancelRequest is a user's (or admin's) request to cancel a paid enrollment.
// It carries the refund preview computed at request time; approval triggers
// the gateway refund with the amount recomputed at approval time.
type CancelRequest struct {
	ID             int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	EnrollmentID   int64               `gorm:"not null;index" json:"enrollment_id"`
	RequestedBy    string              `gorm:"size:64;not null" json:"requested_by"`
	Reason         string              `gorm:"size:500" json:"reason"`
	PreviewAmt     decimal.Decimal     `gorm:"type:decimal(12,0);not null" json:"preview_amt"`
	ManualUsedDays *int                `json:"manual_used_days,omitempty"`
	Status         CancelRequestStatus `gorm:"size:20;not null;default:'REQUESTED';index" json:"status"`
	DecidedBy      *string             `gorm:"size:64" json:"decided_by,omitempty"`
	DecidedAt      *time.Time          `json:"decided_at,omitempty"`
	RequestedAt    time.Time           `gorm:"default:now()" json:"requested_at"`
	UpdatedAt      time.Time           `gorm:"default:now()" json:"updated_at"`

	// Relations
	Enrollment *Enrollment `gorm:"foreignKey:EnrollmentID" json:"enrollment,omitempty"`
}

// TableName specifies the table name for GORM
func (CancelRequest) TableName() string {
	return "cancel_requests"
}
