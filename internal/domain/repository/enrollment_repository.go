package repository

import (
	"context"
	"time"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// EnrollmentRepository owns enrollment rows and the capacity ledger around
// them. Reservation and status transitions are atomic conditional operations;
// a read-then-write pair is never enough under concurrent requests.
type EnrollmentRepository interface {
	// ReserveSeat atomically checks lesson capacity (held = enrollments in
	// UNPAID/PAID), the one-active-enrollment-per-(user,lesson) rule and,
	// when requested, the gender locker pool, then inserts the enrollment.
	// Returns CapacityExceededError, DuplicateEnrollmentError or
	// LockerUnavailableError without side effects when a check fails.
	ReserveSeat(ctx context.Context, enrollment *model.Enrollment) error

	// GetByID loads an enrollment with its lesson.
	GetByID(ctx context.Context, id int64) (*model.Enrollment, error)

	// TransitionAndRelease applies from→to as a conditional update and, when
	// releaseResources is set, releases the seat implicitly (the row leaves
	// the held set) and decrements the locker pool if one was allocated.
	// Returns false when the conditional update matched no row, i.e. a
	// concurrent writer already moved the enrollment — callers treat that as
	// a no-op, not an error. The release is idempotent through the
	// locker_allocated flag.
	TransitionAndRelease(ctx context.Context, id int64, from, to model.PayStatus, releaseResources bool) (bool, error)

	// MarkPaid performs the UNPAID→PAID transition and creates the Payment
	// record keyed by tid in one transaction. A duplicate tid means the
	// confirmation was already processed; applied is false and err is nil.
	MarkPaid(ctx context.Context, enrollmentID int64, payment *model.Payment) (applied bool, err error)

	// CountHeldSeats counts enrollments holding a seat for the lesson.
	CountHeldSeats(ctx context.Context, lessonID int64) (int64, error)

	// ListExpired returns UNPAID enrollments whose deadline elapsed at now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Enrollment, error)

	// ListByUser returns the user's enrollments, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Enrollment, error)
}
