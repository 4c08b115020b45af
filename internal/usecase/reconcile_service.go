package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/config"
	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/gateway"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/domain/repository"
	pkgerrors "github.com/arisu-sports/lesson-server/pkg/errors"
	"github.com/arisu-sports/lesson-server/pkg/messaging"
)

// Confirmation channels. Every inbound signal is audited with its channel so
// operators can see which path settled (or failed to settle) an enrollment.
const (
	ChannelWebhook = "webhook"
	ChannelReturn  = "return"
	ChannelPoll    = "poll"
)

// ReconcileService is the single convergence point for payment confirmations.
// The gateway webhook, the client return redirect and the status poll all
// funnel through here; whichever arrives first settles the enrollment and the
// rest collapse into no-ops. No signal is trusted on its face: a success hint
// must survive a server-to-server verification against the gateway before the
// enrollment turns PAID.
type ReconcileService struct {
	enrollRepo repository.EnrollmentRepository
	notifRepo  repository.NotificationRepository
	gateway    gateway.PaymentGateway
	publisher  messaging.RedisClient
	cfg        config.PaymentConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(
	enrollRepo repository.EnrollmentRepository,
	notifRepo repository.NotificationRepository,
	gw gateway.PaymentGateway,
	publisher messaging.RedisClient,
	cfg config.PaymentConfig,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		enrollRepo: enrollRepo,
		notifRepo:  notifRepo,
		gateway:    gw,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// ApplyConfirmation processes one inbound confirmation signal. It is safe to
// call any number of times with the same signal and safe to race against the
// expiration sweep: the conditional UNPAID→PAID update and the unique payment
// tid decide the winner, not call ordering.
//
// A success signal for an enrollment past its deadline is never auto-applied;
// it is flagged for operator review and the seat stays released.
func (s *ReconcileService) ApplyConfirmation(ctx context.Context, channel string, cb *gateway.CallbackResult, ipAddress string) error {
	enrollmentID, err := gateway.ParseMoid(cb.Moid)
	if err != nil {
		s.audit(ctx, channel, cb, ipAddress)
		return err
	}

	notif := s.audit(ctx, channel, cb, ipAddress)

	enrollment, err := s.enrollRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		s.markFailed(ctx, notif, err)
		return err
	}

	// Already settled, expired, or canceled: a late or replayed signal is a
	// no-op, except for the flagged late-success case below.
	if enrollment.PayStatus != model.PayStatusUnpaid {
		if cb.Success && enrollment.PayStatus == model.PayStatusPaymentTimeout {
			return s.flagLateSuccess(ctx, notif, enrollment, cb)
		}
		s.markProcessed(ctx, notif)
		return nil
	}

	if !cb.Success {
		// A failed attempt does not consume the window; the user may retry
		// until the deadline.
		s.logger.Info("Payment attempt failed, enrollment stays payable",
			zap.Int64("enrollment_id", enrollment.ID),
			zap.String("channel", channel),
			zap.String("result_cd", cb.ResultCd),
			zap.String("error", cb.ErrorMessage))
		s.markProcessed(ctx, notif)
		return nil
	}

	if enrollment.Expired(s.now()) {
		return s.flagLateSuccess(ctx, notif, enrollment, cb)
	}

	status, err := s.verify(ctx, gateway.TransactionRef{TID: cb.TID, Moid: cb.Moid})
	if err != nil {
		s.markFailed(ctx, notif, err)
		return err
	}

	if err := s.settle(ctx, notif, enrollment, status); err != nil {
		var expiredErr *domainErrors.EnrollmentExpiredError
		if pkgerrors.As(err, &expiredErr) {
			// The sweeper timed the row out mid-settle; settle already flagged
			// the notification, nothing further to record.
			return err
		}
		s.markFailed(ctx, notif, err)
		return err
	}

	s.markProcessed(ctx, notif)
	return nil
}

// VerifyAndSettle is the poll-channel entry: no inbound payload exists, so it
// asks the gateway directly whether the enrollment's order settled. Used by
// the status poll as a fallback when webhook and return both went missing.
func (s *ReconcileService) VerifyAndSettle(ctx context.Context, enrollment *model.Enrollment) (settled bool, err error) {
	if enrollment.PayStatus != model.PayStatusUnpaid {
		return enrollment.PayStatus == model.PayStatusPaid, nil
	}

	moid := gateway.BuildMoid(enrollment.ID, enrollment.CreatedAt)
	status, err := s.verify(ctx, gateway.TransactionRef{Moid: moid})
	if err != nil {
		return false, err
	}
	if !status.Paid {
		return false, nil
	}

	cb := &gateway.CallbackResult{
		Success:  true,
		TID:      status.TID,
		Moid:     moid,
		Amount:   status.Amount,
		ResultCd: status.StatusCd,
		Raw:      status.Raw,
	}
	notif := s.audit(ctx, ChannelPoll, cb, "")

	if enrollment.Expired(s.now()) {
		return false, s.flagLateSuccess(ctx, notif, enrollment, cb)
	}

	if err := s.settle(ctx, notif, enrollment, status); err != nil {
		var expiredErr *domainErrors.EnrollmentExpiredError
		if !pkgerrors.As(err, &expiredErr) {
			s.markFailed(ctx, notif, err)
		}
		return false, err
	}
	s.markProcessed(ctx, notif)
	return true, nil
}

// settle applies a verified gateway confirmation to an UNPAID enrollment.
func (s *ReconcileService) settle(ctx context.Context, notif *model.GatewayNotification, enrollment *model.Enrollment, status *gateway.TransactionStatus) error {
	if !status.Paid {
		return &domainErrors.GatewayVerificationError{
			Moid:     status.Moid,
			Attempts: 1,
			Err:      fmt.Errorf("gateway reports transaction not paid: status %s", status.StatusCd),
		}
	}

	expected := enrollment.TotalAmount()
	if !expected.Equal(decimal.NewFromInt(status.Amount)) {
		return &domainErrors.InvalidCallbackError{
			Reason: fmt.Sprintf("amount mismatch: gateway %d, expected %s", status.Amount, expected.String()),
		}
	}

	payment := &model.Payment{
		EnrollmentID:  enrollment.ID,
		TID:           status.TID,
		Moid:          status.Moid,
		PaidLessonAmt: enrollment.LessonAmount,
		PaidLockerAmt: enrollment.LockerAmount,
		Status:        model.PaymentStatusPaid,
		PaidAt:        status.PaidAt,
	}
	if status.PayMethod != "" {
		payment.PayMethod = &status.PayMethod
	}
	if status.Raw != nil {
		payment.GatewayPayload = model.JSONB(status.Raw)
	}

	applied, err := s.enrollRepo.MarkPaid(ctx, enrollment.ID, payment)
	if err != nil {
		return err
	}
	if !applied {
		// Some concurrent writer won the race between verification and here.
		// Another confirmation channel means the row is PAID and this
		// delivery succeeded; the expiration sweeper means the money moved
		// on a row that just timed out, which needs an operator.
		current, err := s.enrollRepo.GetByID(ctx, enrollment.ID)
		if err != nil {
			return err
		}
		if current.PayStatus == model.PayStatusPaid {
			s.logger.Info("Confirmation already applied by a concurrent channel",
				zap.Int64("enrollment_id", enrollment.ID),
				zap.String("tid", status.TID))
			return nil
		}
		cb := &gateway.CallbackResult{
			Success:  true,
			TID:      status.TID,
			Moid:     status.Moid,
			Amount:   status.Amount,
			ResultCd: status.StatusCd,
			Raw:      status.Raw,
		}
		return s.flagLateSuccess(ctx, notif, current, cb)
	}

	s.logger.Info("Enrollment paid",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.String("tid", status.TID),
		zap.Int64("amount", status.Amount))

	publishStatus(ctx, s.publisher, s.logger, enrollment.ID, model.PayStatusPaid)
	return nil
}

// verify calls the gateway with bounded retries. It holds no locks, so a slow
// gateway never blocks the capacity ledger.
func (s *ReconcileService) verify(ctx context.Context, ref gateway.TransactionRef) (*gateway.TransactionStatus, error) {
	retries := s.cfg.VerifyRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		status, err := s.gateway.VerifyTransaction(ctx, ref)
		if err == nil {
			return status, nil
		}
		lastErr = err
		s.logger.Warn("Gateway verification attempt failed",
			zap.String("tid", ref.TID),
			zap.String("moid", ref.Moid),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}

	return nil, &domainErrors.GatewayVerificationError{
		TID:      ref.TID,
		Moid:     ref.Moid,
		Attempts: retries,
		Err:      lastErr,
	}
}

// flagLateSuccess queues a success signal that arrived after the deadline for
// operator review. The money moved at the gateway but the seat may already be
// gone, so an operator decides between refund and manual reinstatement.
func (s *ReconcileService) flagLateSuccess(ctx context.Context, notif *model.GatewayNotification, enrollment *model.Enrollment, cb *gateway.CallbackResult) error {
	note := fmt.Sprintf("success signal after deadline %s for enrollment %d (tid %s)",
		enrollment.ExpireDT.Format(time.RFC3339), enrollment.ID, cb.TID)
	if notif != nil {
		if err := s.notifRepo.MarkFlagged(ctx, notif.DedupeKey, note); err != nil {
			s.logger.Error("Failed to flag late success notification",
				zap.String("dedupe_key", notif.DedupeKey),
				zap.Error(err))
		}
	}

	s.logger.Warn("Late payment success flagged for operator review",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.String("tid", cb.TID),
		zap.Time("expire_dt", enrollment.ExpireDT))

	return &domainErrors.EnrollmentExpiredError{
		EnrollmentID: enrollment.ID,
		ExpireDT:     enrollment.ExpireDT,
	}
}

// ListFlagged serves the operator reconciliation queue.
func (s *ReconcileService) ListFlagged(ctx context.Context, limit, offset int) ([]model.GatewayNotification, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	flagged, err := s.notifRepo.ListFlagged(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list flagged notifications")
	}
	return flagged, nil
}

// audit records the inbound signal. Audit failures are logged, never fatal:
// losing an audit row must not drop a real payment confirmation.
func (s *ReconcileService) audit(ctx context.Context, channel string, cb *gateway.CallbackResult, ipAddress string) *model.GatewayNotification {
	notif := &model.GatewayNotification{
		DedupeKey: fmt.Sprintf("%s:%s:%s:%s", channel, cb.Moid, cb.TID, cb.ResultCd),
		Channel:   channel,
		Status:    model.NotificationStatusPending,
	}
	if cb.Moid != "" {
		notif.Moid = &cb.Moid
	}
	if cb.TID != "" {
		notif.TID = &cb.TID
	}
	if cb.ResultCd != "" {
		notif.ResultCd = &cb.ResultCd
	}
	if ipAddress != "" {
		notif.IPAddress = &ipAddress
	}
	if cb.Raw != nil {
		notif.Payload = model.JSONB(cb.Raw)
	}

	if _, err := s.notifRepo.Save(ctx, notif); err != nil {
		s.logger.Error("Failed to audit gateway notification",
			zap.String("dedupe_key", notif.DedupeKey),
			zap.Error(err))
		return nil
	}
	return notif
}

func (s *ReconcileService) markProcessed(ctx context.Context, notif *model.GatewayNotification) {
	if notif == nil {
		return
	}
	if err := s.notifRepo.MarkProcessed(ctx, notif.DedupeKey); err != nil {
		s.logger.Error("Failed to mark notification processed",
			zap.String("dedupe_key", notif.DedupeKey),
			zap.Error(err))
	}
}

func (s *ReconcileService) markFailed(ctx context.Context, notif *model.GatewayNotification, cause error) {
	if notif == nil {
		return
	}
	if err := s.notifRepo.MarkFailed(ctx, notif.DedupeKey, cause); err != nil {
		s.logger.Error("Failed to mark notification failed",
			zap.String("dedupe_key", notif.DedupeKey),
			zap.Error(err))
	}
}
