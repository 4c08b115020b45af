package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.Lesson{},
		&model.LockerInventory{},
		&model.Enrollment{},
		&model.Payment{},
		&model.CancelRequest{},
		&model.GatewayNotification{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	// Partial index backing the one-active-enrollment-per-(user,lesson) rule.
	// AutoMigrate cannot express the WHERE clause.
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_enrollments_user_lesson_active
		ON enrollments (user_id, lesson_id)
		WHERE pay_status IN ('UNPAID', 'PAID')
	`).Error
	if err != nil {
		logger.Error("Failed to create active enrollment index", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// SeedLockerInventories makes sure both gender pools exist so the conditional
// reserve update always has a row to hit.
func SeedLockerInventories(db *gorm.DB, totalPerGender int, logger *zap.Logger) error {
	for _, gender := range []model.Gender{model.GenderMale, model.GenderFemale} {
		var count int64
		if err := db.Model(&model.LockerInventory{}).Where("gender = ?", gender).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&model.LockerInventory{
			Gender:        gender,
			TotalQuantity: totalPerGender,
		}).Error; err != nil {
			return err
		}
		logger.Info("Seeded locker inventory",
			zap.String("gender", string(gender)),
			zap.Int("total", totalPerGender))
	}
	return nil
}
