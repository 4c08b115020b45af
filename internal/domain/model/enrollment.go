package model

import (
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
)

// PayStatus represents the payment lifecycle status of an enrollment
type PayStatus string

const (
	PayStatusUnpaid                   PayStatus = "UNPAID"
	PayStatusPaid                     PayStatus = "PAID"
	PayStatusPaymentTimeout           PayStatus = "PAYMENT_TIMEOUT"
	PayStatusCanceledUnpaid           PayStatus = "CANCELED_UNPAID"
	PayStatusPartiallyRefunded        PayStatus = "PARTIALLY_REFUNDED"
	PayStatusRefunded                 PayStatus = "REFUNDED"
	PayStatusRefundPendingAdminCancel PayStatus = "REFUND_PENDING_ADMIN_CANCEL"
)

// AppStatus represents the application status of an enrollment
type AppStatus string

const (
	AppStatusApplied  AppStatus = "APPLIED"
	AppStatusCanceled AppStatus = "CANCELED"
)

// EnrollmentEvent names the events applied to the enrollment state machine
type EnrollmentEvent string

const (
	EventPaymentConfirmed      EnrollmentEvent = "payment_confirmed"
	EventDeadlineElapsed       EnrollmentEvent = "deadline_elapsed"
	EventCancelBeforePayment   EnrollmentEvent = "cancel_before_payment"
	EventFullRefundApproved    EnrollmentEvent = "full_refund_approved"
	EventPartialRefundApproved EnrollmentEvent = "partial_refund_approved"
	EventAdminCancelRefundLater EnrollmentEvent = "admin_cancel_refund_later"
	EventQueuedRefundExecuted  EnrollmentEvent = "queued_refund_executed"
)

// payTransitions is the full transition table of the payment lifecycle.
// Any (status, event) pair absent from the table is rejected with
// InvalidTransitionError, which is what makes duplicate webhook/poll
// deliveries and the confirm-vs-expire race safe.
var payTransitions = map[PayStatus]map[EnrollmentEvent]PayStatus{
	PayStatusUnpaid: {
		EventPaymentConfirmed:    PayStatusPaid,
		EventDeadlineElapsed:     PayStatusPaymentTimeout,
		EventCancelBeforePayment: PayStatusCanceledUnpaid,
	},
	PayStatusPaid: {
		EventFullRefundApproved:     PayStatusRefunded,
		EventPartialRefundApproved:  PayStatusPartiallyRefunded,
		EventAdminCancelRefundLater: PayStatusRefundPendingAdminCancel,
	},
	PayStatusRefundPendingAdminCancel: {
		EventQueuedRefundExecuted: PayStatusRefunded,
	},
}

// IsTerminal reports whether the status accepts no further events.
func (s PayStatus) IsTerminal() bool {
	_, ok := payTransitions[s]
	return !ok
}

// HoldsSeat reports whether an enrollment in this status occupies a seat,
// i.e. counts against the lesson capacity.
func (s PayStatus) HoldsSeat() bool {
	return s == PayStatusUnpaid || s == PayStatusPaid
}

// Next returns the status reached by applying the event, or
// InvalidTransitionError if the event is not allowed from this status.
func (s PayStatus) Next(event EnrollmentEvent) (PayStatus, error) {
	events, ok := payTransitions[s]
	if !ok {
		return s, domainErrors.NewInvalidTransitionError(string(s), string(event))
	}
	next, ok := events[event]
	if !ok {
		return s, domainErrors.NewInvalidTransitionError(string(s), string(event))
	}
	return next, nil
}

// MembershipType determines the discount applied to the lesson fee.
type MembershipType string

const (
	MembershipGeneral    MembershipType = "GENERAL"
	MembershipMerit      MembershipType = "MERIT"
	MembershipDisabled   MembershipType = "DISABLED"
	MembershipMultiChild MembershipType = "MULTI_CHILD"
)

var membershipDiscounts = map[MembershipType]int{
	MembershipGeneral:    0,
	MembershipMerit:      10,
	MembershipDisabled:   10,
	MembershipMultiChild: 10,
}

// DiscountPercent returns the lesson fee discount for the membership type.
// Unknown types get no discount.
func (m MembershipType) DiscountPercent() int {
	return membershipDiscounts[m]
}

// Enrollment represents a user's claim on one lesson seat (and optionally one
// locker), tracked from application through payment to completion or
// cancellation. Rows are never deleted; terminal states are kept for audit.
type Enrollment struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          string          `gorm:"size:64;not null;index:idx_enrollments_user_lesson" json:"user_id"`
	LessonID        int64           `gorm:"not null;index:idx_enrollments_user_lesson;index" json:"lesson_id"`
	UsesLocker      bool            `gorm:"not null;default:false" json:"uses_locker"`
	Gender          Gender          `gorm:"size:10;not null" json:"gender"`
	LockerAllocated bool            `gorm:"not null;default:false" json:"locker_allocated"`
	Membership      MembershipType  `gorm:"size:20;not null;default:'GENERAL'" json:"membership"`
	DiscountPercent int             `gorm:"not null;default:0" json:"discount_percent"`
	LessonAmount    decimal.Decimal `gorm:"type:decimal(12,0);not null" json:"lesson_amount"`
	LockerAmount    decimal.Decimal `gorm:"type:decimal(12,0);not null;default:0" json:"locker_amount"`
	PayStatus       PayStatus       `gorm:"size:40;not null;default:'UNPAID';index" json:"pay_status"`
	AppStatus       AppStatus       `gorm:"size:20;not null;default:'APPLIED'" json:"app_status"`
	ExpireDT        time.Time       `gorm:"not null;index" json:"expire_dt"`
	CreatedAt       time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"default:now()" json:"updated_at"`

	// Relations
	Lesson *Lesson `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
}

// TableName specifies the table name for GORM
func (Enrollment) TableName() string {
	return "enrollments"
}

// TotalAmount is the amount charged through the gateway.
func (e *Enrollment) TotalAmount() decimal.Decimal {
	return e.LessonAmount.Add(e.LockerAmount)
}

// Expired reports whether the payment deadline elapsed at the given time.
func (e *Enrollment) Expired(now time.Time) bool {
	return !now.Before(e.ExpireDT)
}

// CanAttemptPayment reports whether the user may still open the payment page.
func (e *Enrollment) CanAttemptPayment(now time.Time) bool {
	return e.PayStatus == PayStatusUnpaid && !e.Expired(now)
}
