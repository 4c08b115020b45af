package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arisu-sports/lesson-server/internal/adapter/repository"
	domainRepo "github.com/arisu-sports/lesson-server/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Enrollment    domainRepo.EnrollmentRepository
	Lesson        domainRepo.LessonRepository
	Locker        domainRepo.LockerRepository
	Payment       domainRepo.PaymentRepository
	CancelRequest domainRepo.CancelRequestRepository
	Notification  domainRepo.NotificationRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Enrollment:    repository.NewEnrollmentRepository(db, logger),
		Lesson:        repository.NewLessonRepository(db, logger),
		Locker:        repository.NewLockerRepository(db, logger),
		Payment:       repository.NewPaymentRepository(db, logger),
		CancelRequest: repository.NewCancelRequestRepository(db, logger),
		Notification:  repository.NewNotificationRepository(db, logger),
	}
}
