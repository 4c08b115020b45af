package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/domain/repository"
	"github.com/arisu-sports/lesson-server/pkg/messaging"
)

// ExpirationService reclaims seats and lockers from enrollments whose payment
// deadline elapsed without a confirmed payment. It races the reconciliation
// path by design: both sides transition off UNPAID with conditional updates,
// so exactly one wins and the loser no-ops.
type ExpirationService struct {
	enrollRepo repository.EnrollmentRepository
	publisher  messaging.RedisClient
	batchSize  int
	logger     *zap.Logger
	now        func() time.Time
}

// NewExpirationService creates a new ExpirationService
func NewExpirationService(
	enrollRepo repository.EnrollmentRepository,
	publisher messaging.RedisClient,
	logger *zap.Logger,
) *ExpirationService {
	return &ExpirationService{
		enrollRepo: enrollRepo,
		publisher:  publisher,
		batchSize:  200,
		logger:     logger,
		now:        time.Now,
	}
}

// AttemptExpire moves one UNPAID enrollment to PAYMENT_TIMEOUT and releases
// its seat and locker. Returns false when a concurrent payment confirmation
// (or an earlier sweep) got there first.
func (s *ExpirationService) AttemptExpire(ctx context.Context, enrollmentID int64) (bool, error) {
	applied, err := s.enrollRepo.TransitionAndRelease(ctx,
		enrollmentID, model.PayStatusUnpaid, model.PayStatusPaymentTimeout, true)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	s.logger.Info("Enrollment expired, seat released",
		zap.Int64("enrollment_id", enrollmentID))
	publishStatus(ctx, s.publisher, s.logger, enrollmentID, model.PayStatusPaymentTimeout)
	return true, nil
}

// SweepExpired expires every overdue UNPAID enrollment. One failed row does
// not stop the sweep; the next run retries whatever is left.
func (s *ExpirationService) SweepExpired(ctx context.Context) (expired int, err error) {
	now := s.now()
	candidates, err := s.enrollRepo.ListExpired(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	for i := range candidates {
		applied, err := s.AttemptExpire(ctx, candidates[i].ID)
		if err != nil {
			s.logger.Error("Failed to expire enrollment",
				zap.Int64("enrollment_id", candidates[i].ID),
				zap.Error(err))
			continue
		}
		if applied {
			expired++
		}
	}

	if len(candidates) > 0 {
		s.logger.Info("Expiration sweep finished",
			zap.Int("candidates", len(candidates)),
			zap.Int("expired", expired))
	}
	return expired, nil
}
