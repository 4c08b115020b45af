package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	domainRepo "github.com/arisu-sports/lesson-server/internal/domain/repository"
)

// cancelRequestRepository implements the CancelRequestRepository interface
type cancelRequestRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCancelRequestRepository creates a new cancel request repository instance
func NewCancelRequestRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CancelRequestRepository {
	return &cancelRequestRepository{
		db:     db,
		logger: logger,
	}
}

func (r *cancelRequestRepository) Create(ctx context.Context, req *model.CancelRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create cancel request: %w", err)
	}
	return nil
}

func (r *cancelRequestRepository) GetByID(ctx context.Context, id int64) (*model.CancelRequest, error) {
	var req model.CancelRequest
	err := r.db.WithContext(ctx).
		Preload("Enrollment").
		Preload("Enrollment.Lesson").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cancel request: %w", err)
	}
	return &req, nil
}

func (r *cancelRequestRepository) GetOpenByEnrollment(ctx context.Context, enrollmentID int64) (*model.CancelRequest, error) {
	var req model.CancelRequest
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ? AND status = ?", enrollmentID, string(model.CancelRequestRequested)).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get open cancel request: %w", err)
	}
	return &req, nil
}

// Decide moves a REQUESTED record to a terminal status as a conditional
// update, so two admins deciding the same request cannot both win.
func (r *cancelRequestRepository) Decide(ctx context.Context, id int64, to model.CancelRequestStatus, decidedBy string, decidedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.CancelRequest{}).
		Where("id = ? AND status = ?", id, string(model.CancelRequestRequested)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"decided_by": decidedBy,
			"decided_at": decidedAt,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to decide cancel request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	r.logger.Info("Cancel request decided",
		zap.Int64("cancel_request_id", id),
		zap.String("status", string(to)),
		zap.String("decided_by", decidedBy))

	return true, nil
}

func (r *cancelRequestRepository) ListByStatus(ctx context.Context, status model.CancelRequestStatus, limit, offset int) ([]model.CancelRequest, error) {
	var requests []model.CancelRequest
	err := r.db.WithContext(ctx).
		Preload("Enrollment").
		Where("status = ?", string(status)).
		Order("requested_at asc").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cancel requests: %w", err)
	}
	return requests, nil
}
