package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// PaymentRepository reads and mutates settled gateway transactions.
// Payment rows are created by EnrollmentRepository.MarkPaid.
type PaymentRepository interface {
	GetByTID(ctx context.Context, tid string) (*model.Payment, error)
	GetByEnrollmentID(ctx context.Context, enrollmentID int64) (*model.Payment, error)

	// ApplyRefund adds amount to the refunded total and moves the payment to
	// status, guarded so refunded never exceeds the paid total.
	ApplyRefund(ctx context.Context, paymentID int64, amount decimal.Decimal, status model.PaymentStatus, refundedAt time.Time) error
}
