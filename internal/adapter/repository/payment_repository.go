package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	domainRepo "github.com/arisu-sports/lesson-server/internal/domain/repository"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *paymentRepository) GetByTID(ctx context.Context, tid string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("tid = ?", tid).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment by tid: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByEnrollmentID(ctx context.Context, enrollmentID int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("created_at desc").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment by enrollment: %w", err)
	}
	return &payment, nil
}

// ApplyRefund adds amount to the refunded total under the refunded ≤ paid
// guard. The guard lives in the WHERE clause so a concurrent double refund
// cannot push the total past the paid amount.
func (r *paymentRepository) ApplyRefund(ctx context.Context, paymentID int64, amount decimal.Decimal, status model.PaymentStatus, refundedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND refunded_amt + ? <= paid_lesson_amt + paid_locker_amt", paymentID, amount).
		Updates(map[string]interface{}{
			"refunded_amt":   gorm.Expr("refunded_amt + ?", amount),
			"status":         string(status),
			"last_refund_at": refundedAt,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to apply refund: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("refund of %s rejected for payment %d: would exceed paid amount", amount.String(), paymentID)
	}

	r.logger.Info("Refund applied to payment",
		zap.Int64("payment_id", paymentID),
		zap.String("amount", amount.String()),
		zap.String("status", string(status)))

	return nil
}
