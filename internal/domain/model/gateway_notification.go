package model

import (
	"database/sql/driver"
	"time"
)

// NotificationStatus represents the processing status of an inbound
// gateway notification
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusProcessed NotificationStatus = "processed"
	NotificationStatusFailed    NotificationStatus = "failed"
	// NotificationStatusFlagged marks a success signal that arrived after the
	// payment deadline. It is never auto-applied; an operator reconciles it.
	NotificationStatusFlagged NotificationStatus = "flagged"
)

// Scan implements sql.Scanner interface
func (n *NotificationStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*n = NotificationStatus(v)
	case []byte:
		*n = NotificationStatus(v)
	default:
		*n = NotificationStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (n NotificationStatus) Value() (driver.Value, error) {
	return string(n), nil
}

// GatewayNotification is the audit row for every inbound KISPG webhook or
// client-return signal. DedupeKey is unique so replayed deliveries collapse
// into one row.
type GatewayNotification struct {
	ID           int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	DedupeKey    string             `gorm:"uniqueIndex;not null;size:200" json:"dedupe_key"`
	Channel      string             `gorm:"size:20;not null" json:"channel"` // webhook | return | poll
	Moid         *string            `gorm:"size:100;index" json:"moid,omitempty"`
	TID          *string            `gorm:"column:tid;size:100" json:"tid,omitempty"`
	ResultCd     *string            `gorm:"size:10" json:"result_cd,omitempty"`
	Status       NotificationStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Payload      JSONB              `gorm:"type:jsonb" json:"payload,omitempty"`
	LastError    *string            `json:"last_error,omitempty"`
	IPAddress    *string            `gorm:"size:45" json:"ip_address,omitempty"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty"`
	CreatedAt    time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (GatewayNotification) TableName() string {
	return "gateway_notifications"
}
