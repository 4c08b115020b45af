package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/domain/repository"
	"github.com/arisu-sports/lesson-server/internal/infrastructure/provider/kispg"
)

// PaymentService hands out payment window parameters for an enrollment.
// Params are regenerated deterministically from the enrollment row, so a
// reloaded payment page gets the same order id and hash until the deadline.
type PaymentService struct {
	enrollRepo repository.EnrollmentRepository
	kispg      *kispg.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	enrollRepo repository.EnrollmentRepository,
	kispgClient *kispg.Client,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		enrollRepo: enrollRepo,
		kispg:      kispgClient,
		logger:     logger,
		now:        time.Now,
	}
}

// PaymentParams builds the KISPG window parameters for the user's own UNPAID
// enrollment. Expired or settled enrollments get EnrollmentExpiredError /
// InvalidTransitionError so the client falls back to the status view.
func (s *PaymentService) PaymentParams(ctx context.Context, enrollmentID int64, userID string, buyer kispg.BuyerInfo) (*kispg.InitiationParams, error) {
	enrollment, err := s.enrollRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}

	now := s.now()
	if enrollment.PayStatus != model.PayStatusUnpaid {
		return nil, domainErrors.NewInvalidTransitionError(
			string(enrollment.PayStatus), string(model.EventPaymentConfirmed))
	}
	if enrollment.Expired(now) {
		return nil, &domainErrors.EnrollmentExpiredError{
			EnrollmentID: enrollment.ID,
			ExpireDT:     enrollment.ExpireDT,
		}
	}

	lessonTitle := "lesson"
	if enrollment.Lesson != nil {
		lessonTitle = enrollment.Lesson.Title
	}

	params := s.kispg.BuildInitiationParams(enrollment, lessonTitle, buyer)
	s.logger.Info("Payment params issued",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.String("moid", params.Moid),
		zap.String("amt", params.Amt))
	return params, nil
}
