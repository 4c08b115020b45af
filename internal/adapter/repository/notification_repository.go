package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
	domainRepo "github.com/arisu-sports/lesson-server/internal/domain/repository"
)

// notificationRepository implements the NotificationRepository interface
type notificationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository instance
func NewNotificationRepository(db *gorm.DB, logger *zap.Logger) domainRepo.NotificationRepository {
	return &notificationRepository{
		db:     db,
		logger: logger,
	}
}

// Save inserts the notification; replayed deliveries collapse on the unique
// dedupe key.
func (r *notificationRepository) Save(ctx context.Context, n *model.GatewayNotification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(n)
	if res.Error != nil {
		return false, fmt.Errorf("failed to save gateway notification: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		r.logger.Info("Duplicate gateway notification ignored",
			zap.String("dedupe_key", n.DedupeKey),
			zap.String("channel", n.Channel))
		return false, nil
	}
	return true, nil
}

func (r *notificationRepository) MarkProcessed(ctx context.Context, dedupeKey string) error {
	return r.setStatus(ctx, dedupeKey, model.NotificationStatusProcessed, nil)
}

func (r *notificationRepository) MarkFailed(ctx context.Context, dedupeKey string, cause error) error {
	msg := cause.Error()
	return r.setStatus(ctx, dedupeKey, model.NotificationStatusFailed, &msg)
}

func (r *notificationRepository) MarkFlagged(ctx context.Context, dedupeKey string, note string) error {
	return r.setStatus(ctx, dedupeKey, model.NotificationStatusFlagged, &note)
}

func (r *notificationRepository) setStatus(ctx context.Context, dedupeKey string, status model.NotificationStatus, lastError *string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       string(status),
		"processed_at": now,
		"updated_at":   now,
	}
	if lastError != nil {
		updates["last_error"] = *lastError
	}

	err := r.db.WithContext(ctx).Model(&model.GatewayNotification{}).
		Where("dedupe_key = ?", dedupeKey).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListFlagged(ctx context.Context, limit, offset int) ([]model.GatewayNotification, error) {
	var notifications []model.GatewayNotification
	err := r.db.WithContext(ctx).
		Where("status = ?", string(model.NotificationStatusFlagged)).
		Order("created_at asc").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged notifications: %w", err)
	}
	return notifications, nil
}
