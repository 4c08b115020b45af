package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/config"
	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/domain/repository"
	pkgerrors "github.com/arisu-sports/lesson-server/pkg/errors"
)

// EnrollCommand is the input for a seat reservation.
type EnrollCommand struct {
	UserID     string
	LessonID   int64
	UsesLocker bool
	Gender     model.Gender
	Membership model.MembershipType
}

// StatusView is the poll read model for an enrollment. It is a convenience
// view for the client; the enrollment row is the source of truth.
type StatusView struct {
	EnrollmentID      int64           `json:"enrollment_id"`
	PayStatus         model.PayStatus `json:"status"`
	AppStatus         model.AppStatus `json:"app_status"`
	CanAttemptPayment bool            `json:"can_attempt_payment"`
	PaymentPageURL    string          `json:"payment_page_url,omitempty"`
	ExpireDT          time.Time       `json:"expire_dt"`
	PollMaxAttempts   int             `json:"poll_max_attempts"`
	PollIntervalMs    int             `json:"poll_interval_ms"`
}

// LessonAvailability is the eventually-consistent availability read model.
// Reservations never rely on it.
type LessonAvailability struct {
	Lesson    *model.Lesson           `json:"lesson"`
	HeldSeats int64                   `json:"held_seats"`
	Remaining int64                   `json:"remaining"`
	Lockers   []model.LockerInventory `json:"lockers"`
}

// EnrollmentService creates enrollments against the capacity ledger and
// serves the status read model.
type EnrollmentService struct {
	enrollRepo repository.EnrollmentRepository
	lessonRepo repository.LessonRepository
	lockerRepo repository.LockerRepository
	cfg        config.PaymentConfig
	clientURL  string
	logger     *zap.Logger
	now        func() time.Time
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(
	enrollRepo repository.EnrollmentRepository,
	lessonRepo repository.LessonRepository,
	lockerRepo repository.LockerRepository,
	cfg config.PaymentConfig,
	clientURL string,
	logger *zap.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		enrollRepo: enrollRepo,
		lessonRepo: lessonRepo,
		lockerRepo: lockerRepo,
		cfg:        cfg,
		clientURL:  clientURL,
		logger:     logger,
		now:        time.Now,
	}
}

// Enroll reserves a seat (and locker when requested) and creates the
// enrollment with its payment deadline. Capacity and locker checks are
// atomic inside the repository; this method only computes amounts.
func (s *EnrollmentService) Enroll(ctx context.Context, cmd EnrollCommand) (*model.Enrollment, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, cmd.LessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.Enrollable() {
		return nil, &domainErrors.LessonNotEnrollableError{
			LessonID: lesson.ID,
			Status:   string(lesson.Status),
		}
	}

	discount := cmd.Membership.DiscountPercent()
	lessonAmount := lesson.Price.
		Mul(decimal.NewFromInt(int64(100 - discount))).
		Div(decimal.NewFromInt(100)).
		Round(0)

	lockerAmount := decimal.Zero
	if cmd.UsesLocker {
		lockerAmount = decimal.NewFromInt(s.cfg.LockerFee)
	}

	now := s.now()
	enrollment := &model.Enrollment{
		UserID:          cmd.UserID,
		LessonID:        cmd.LessonID,
		UsesLocker:      cmd.UsesLocker,
		Gender:          cmd.Gender,
		Membership:      cmd.Membership,
		DiscountPercent: discount,
		LessonAmount:    lessonAmount,
		LockerAmount:    lockerAmount,
		PayStatus:       model.PayStatusUnpaid,
		AppStatus:       model.AppStatusApplied,
		ExpireDT:        now.Add(time.Duration(s.cfg.WindowMinutes) * time.Minute),
		CreatedAt:       now,
	}

	if err := s.enrollRepo.ReserveSeat(ctx, enrollment); err != nil {
		return nil, err
	}

	s.logger.Info("Enrollment created",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.String("user_id", cmd.UserID),
		zap.Int64("lesson_id", cmd.LessonID),
		zap.Bool("uses_locker", cmd.UsesLocker),
		zap.String("amount", enrollment.TotalAmount().String()),
		zap.Time("expire_dt", enrollment.ExpireDT))

	return enrollment, nil
}

// GetOwned loads an enrollment and verifies ownership.
func (s *EnrollmentService) GetOwned(ctx context.Context, enrollmentID int64, userID string) (*model.Enrollment, error) {
	enrollment, err := s.enrollRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	return enrollment, nil
}

// Status serves the poll read model for an enrollment.
func (s *EnrollmentService) Status(ctx context.Context, enrollmentID int64, userID string) (*StatusView, error) {
	enrollment, err := s.GetOwned(ctx, enrollmentID, userID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{
		EnrollmentID:      enrollment.ID,
		PayStatus:         enrollment.PayStatus,
		AppStatus:         enrollment.AppStatus,
		CanAttemptPayment: enrollment.CanAttemptPayment(s.now()),
		ExpireDT:          enrollment.ExpireDT,
		PollMaxAttempts:   s.cfg.PollMaxAttempts,
		PollIntervalMs:    s.cfg.PollIntervalMs,
	}
	if view.CanAttemptPayment {
		view.PaymentPageURL = fmt.Sprintf("%s/payment/%d", s.clientURL, enrollment.ID)
	}
	return view, nil
}

// Availability reports remaining seats and locker counts for a lesson.
// Served from plain reads, so it may lag the ledger slightly.
func (s *EnrollmentService) Availability(ctx context.Context, lessonID int64) (*LessonAvailability, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	held, err := s.enrollRepo.CountHeldSeats(ctx, lessonID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to count held seats")
	}

	lockers, err := s.lockerRepo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load locker inventory")
	}

	remaining := int64(lesson.Capacity) - held
	if remaining < 0 {
		remaining = 0
	}

	return &LessonAvailability{
		Lesson:    lesson,
		HeldSeats: held,
		Remaining: remaining,
		Lockers:   lockers,
	}, nil
}

// GetLesson returns a single lesson by id.
func (s *EnrollmentService) GetLesson(ctx context.Context, lessonID int64) (*model.Lesson, error) {
	return s.lessonRepo.GetByID(ctx, lessonID)
}

// ListLessons lists lessons by status.
func (s *EnrollmentService) ListLessons(ctx context.Context, status model.LessonStatus, limit, offset int) ([]model.Lesson, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.lessonRepo.List(ctx, status, limit, offset)
}

// ListByUser lists the user's enrollments.
func (s *EnrollmentService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Enrollment, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.enrollRepo.ListByUser(ctx, userID, limit, offset)
}
