package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
	domainRepo "github.com/arisu-sports/lesson-server/internal/domain/repository"
)

// lockerRepository implements the LockerRepository interface
type lockerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLockerRepository creates a new locker repository instance
func NewLockerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.LockerRepository {
	return &lockerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *lockerRepository) List(ctx context.Context) ([]model.LockerInventory, error) {
	var inventories []model.LockerInventory
	err := r.db.WithContext(ctx).
		Order("gender asc").
		Find(&inventories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list locker inventories: %w", err)
	}
	return inventories, nil
}
