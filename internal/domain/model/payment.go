package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a gateway payment record
type PaymentStatus string

const (
	PaymentStatusPaid            PaymentStatus = "PAID"
	PaymentStatusCanceled        PaymentStatus = "CANCELED"
	PaymentStatusPartialRefunded PaymentStatus = "PARTIAL_REFUNDED"
	PaymentStatusRefundRequested PaymentStatus = "REFUND_REQUESTED"
)

// Payment represents a settled gateway transaction for an enrollment.
// TID is unique: a duplicate insert for the same gateway transaction means the
// confirmation was already processed, not an error.
type Payment struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EnrollmentID   int64           `gorm:"not null;index" json:"enrollment_id"`
	TID            string          `gorm:"column:tid;uniqueIndex;not null;size:100" json:"tid"`
	Moid           string          `gorm:"not null;size:100;index" json:"moid"`
	PaidLessonAmt  decimal.Decimal `gorm:"type:decimal(12,0);not null" json:"paid_lesson_amt"`
	PaidLockerAmt  decimal.Decimal `gorm:"type:decimal(12,0);not null;default:0" json:"paid_locker_amt"`
	RefundedAmt    decimal.Decimal `gorm:"type:decimal(12,0);not null;default:0" json:"refunded_amt"`
	Status         PaymentStatus   `gorm:"size:30;not null;index" json:"status"`
	PayMethod      *string         `gorm:"size:50" json:"pay_method,omitempty"`
	GatewayPayload JSONB           `gorm:"type:jsonb" json:"gateway_payload,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	LastRefundAt   *time.Time      `json:"last_refund_at,omitempty"`
	CreatedAt      time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"default:now()" json:"updated_at"`

	// Relations
	Enrollment *Enrollment `gorm:"foreignKey:EnrollmentID" json:"enrollment,omitempty"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// TotalPaid is the full settled amount (lesson + locker components).
func (p *Payment) TotalPaid() decimal.Decimal {
	return p.PaidLessonAmt.Add(p.PaidLockerAmt)
}
