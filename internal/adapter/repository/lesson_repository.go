package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	domainRepo "github.com/arisu-sports/lesson-server/internal/domain/repository"
)

// lessonRepository implements the LessonRepository interface
type lessonRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLessonRepository creates a new lesson repository instance
func NewLessonRepository(db *gorm.DB, logger *zap.Logger) domainRepo.LessonRepository {
	return &lessonRepository{
		db:     db,
		logger: logger,
	}
}

func (r *lessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&lesson).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &lesson, nil
}

func (r *lessonRepository) List(ctx context.Context, status model.LessonStatus, limit, offset int) ([]model.Lesson, error) {
	query := r.db.WithContext(ctx).Model(&model.Lesson{})
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var lessons []model.Lesson
	err := query.
		Order("start_date asc").
		Limit(limit).
		Offset(offset).
		Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}
