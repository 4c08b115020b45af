package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	domainRepo "github.com/arisu-sports/lesson-server/internal/domain/repository"
)

// heldStatuses are the payment statuses that occupy a seat.
var heldStatuses = []model.PayStatus{model.PayStatusUnpaid, model.PayStatusPaid}

// canceledAppStatuses are the payment statuses that also close the application.
var canceledAppStatuses = map[model.PayStatus]bool{
	model.PayStatusCanceledUnpaid:           true,
	model.PayStatusPaymentTimeout:           true,
	model.PayStatusRefunded:                 true,
	model.PayStatusRefundPendingAdminCancel: true,
}

// enrollmentRepository implements the EnrollmentRepository interface
type enrollmentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewEnrollmentRepository creates a new enrollment repository instance
func NewEnrollmentRepository(db *gorm.DB, logger *zap.Logger) domainRepo.EnrollmentRepository {
	return &enrollmentRepository{
		db:     db,
		logger: logger,
	}
}

// ReserveSeat atomically reserves a seat (and locker when requested) and
// inserts the enrollment. The lesson row is locked for the duration of the
// transaction so the capacity check-and-insert is linearizable per lesson.
func (r *enrollmentRepository) ReserveSeat(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the lesson row to serialize reservations per lesson.
		var lesson model.Lesson
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", enrollment.LessonID).
			First(&lesson).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.ErrNotFound
			}
			return fmt.Errorf("failed to lock lesson: %w", err)
		}

		if !lesson.Enrollable() {
			return &domainErrors.LessonNotEnrollableError{
				LessonID: lesson.ID,
				Status:   string(lesson.Status),
			}
		}

		// One non-terminal enrollment per (user, lesson).
		var active int64
		err = tx.Model(&model.Enrollment{}).
			Where("user_id = ? AND lesson_id = ? AND pay_status IN ?", enrollment.UserID, enrollment.LessonID, heldStatuses).
			Count(&active).Error
		if err != nil {
			return fmt.Errorf("failed to count active enrollments: %w", err)
		}
		if active > 0 {
			return &domainErrors.DuplicateEnrollmentError{
				UserID:   enrollment.UserID,
				LessonID: enrollment.LessonID,
			}
		}

		// Capacity check under the lesson lock.
		var held int64
		err = tx.Model(&model.Enrollment{}).
			Where("lesson_id = ? AND pay_status IN ?", enrollment.LessonID, heldStatuses).
			Count(&held).Error
		if err != nil {
			return fmt.Errorf("failed to count held seats: %w", err)
		}
		if held >= int64(lesson.Capacity) {
			return domainErrors.NewCapacityExceededError(lesson.ID, lesson.Capacity)
		}

		// Locker pool is a single conditional increment; no row lock needed.
		if enrollment.UsesLocker {
			res := tx.Model(&model.LockerInventory{}).
				Where("gender = ? AND used_quantity < total_quantity", enrollment.Gender).
				UpdateColumn("used_quantity", gorm.Expr("used_quantity + 1"))
			if res.Error != nil {
				return fmt.Errorf("failed to reserve locker: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return &domainErrors.LockerUnavailableError{Gender: string(enrollment.Gender)}
			}
			enrollment.LockerAllocated = true
		}

		if err := tx.Create(enrollment).Error; err != nil {
			return fmt.Errorf("failed to create enrollment: %w", err)
		}

		return nil
	})
}

// GetByID loads an enrollment with its lesson
func (r *enrollmentRepository) GetByID(ctx context.Context, id int64) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Lesson").
		Where("id = ?", id).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrNotFound
		}
		r.logger.Error("Failed to get enrollment",
			zap.Int64("enrollment_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &enrollment, nil
}

// TransitionAndRelease applies from→to as a guarded conditional update and
// releases held resources inside the same transaction. RowsAffected = 0 on
// the status update means a concurrent writer won the race; the caller gets
// applied=false and no side effects happen.
func (r *enrollmentRepository) TransitionAndRelease(ctx context.Context, id int64, from, to model.PayStatus, releaseResources bool) (bool, error) {
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"pay_status": string(to),
			"updated_at": time.Now(),
		}
		if canceledAppStatuses[to] {
			updates["app_status"] = string(model.AppStatusCanceled)
		}

		res := tx.Model(&model.Enrollment{}).
			Where("id = ? AND pay_status = ?", id, string(from)).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to transition enrollment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if !releaseResources {
			return nil
		}

		// The row is already write-locked by the update above.
		var enrollment model.Enrollment
		if err := tx.Where("id = ?", id).First(&enrollment).Error; err != nil {
			return fmt.Errorf("failed to reload enrollment: %w", err)
		}

		if enrollment.LockerAllocated {
			res := tx.Model(&model.LockerInventory{}).
				Where("gender = ? AND used_quantity > 0", enrollment.Gender).
				UpdateColumn("used_quantity", gorm.Expr("used_quantity - 1"))
			if res.Error != nil {
				return fmt.Errorf("failed to release locker: %w", res.Error)
			}
			if err := tx.Model(&model.Enrollment{}).
				Where("id = ?", id).
				UpdateColumn("locker_allocated", false).Error; err != nil {
				return fmt.Errorf("failed to clear locker flag: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	if applied {
		r.logger.Info("Enrollment transitioned",
			zap.Int64("enrollment_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Bool("released", releaseResources))
	}

	return applied, nil
}

// MarkPaid performs UNPAID→PAID and records the payment keyed by tid in one
// transaction. A duplicate tid insert collapses silently; replayed
// confirmations therefore produce no extra Payment rows.
func (r *enrollmentRepository) MarkPaid(ctx context.Context, enrollmentID int64, payment *model.Payment) (bool, error) {
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Enrollment{}).
			Where("id = ? AND pay_status = ?", enrollmentID, string(model.PayStatusUnpaid)).
			Updates(map[string]interface{}{
				"pay_status": string(model.PayStatusPaid),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark enrollment paid: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Another signal already settled this enrollment.
			return nil
		}
		applied = true

		payment.EnrollmentID = enrollmentID
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tid"}},
			DoNothing: true,
		}).Create(payment)
		if insert.Error != nil {
			return fmt.Errorf("failed to create payment record: %w", insert.Error)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	if applied {
		r.logger.Info("Enrollment marked paid",
			zap.Int64("enrollment_id", enrollmentID),
			zap.String("tid", payment.TID))
	}

	return applied, nil
}

// CountHeldSeats counts enrollments holding a seat for the lesson
func (r *enrollmentRepository) CountHeldSeats(ctx context.Context, lessonID int64) (int64, error) {
	var held int64
	err := r.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("lesson_id = ? AND pay_status IN ?", lessonID, heldStatuses).
		Count(&held).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count held seats: %w", err)
	}
	return held, nil
}

// ListExpired returns UNPAID enrollments past their payment deadline
func (r *enrollmentRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("pay_status = ? AND expire_dt <= ?", string(model.PayStatusUnpaid), now).
		Order("expire_dt asc").
		Limit(limit).
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByUser returns the user's enrollments, newest first
func (r *enrollmentRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Lesson").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}
