package repository

import (
	"context"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// LessonRepository is the read side of the lesson catalog. Lessons are
// administered elsewhere; the enrollment flow only reads them.
type LessonRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	List(ctx context.Context, status model.LessonStatus, limit, offset int) ([]model.Lesson, error)
}

// LockerRepository exposes the per-gender locker pools for availability
// reads. Reservation and release are tied to an enrollment's lifecycle and
// live in EnrollmentRepository so they share its transaction.
type LockerRepository interface {
	List(ctx context.Context) ([]model.LockerInventory, error)
}
