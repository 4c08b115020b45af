package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/gateway"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/domain/repository"
	"github.com/arisu-sports/lesson-server/pkg/messaging"
)

// RefundPreview is the would-be refund for a cancellation, shown to the user
// before they confirm and to the admin before they approve.
type RefundPreview struct {
	LessonTotal    decimal.Decimal `json:"lesson_total"`
	LockerTotal    decimal.Decimal `json:"locker_total"`
	UsedDays       int             `json:"used_days"`
	TotalDays      int             `json:"total_days"`
	LessonRefund   decimal.Decimal `json:"lesson_refund"`
	LockerRefund   decimal.Decimal `json:"locker_refund"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	FullRefund     bool            `json:"full_refund"`
	ManualUsedDays *int            `json:"manual_used_days,omitempty"`
}

// RefundService computes refund amounts and runs the cancellation workflow,
// from user request through admin decision to the gateway refund call.
type RefundService struct {
	enrollRepo  repository.EnrollmentRepository
	paymentRepo repository.PaymentRepository
	cancelRepo  repository.CancelRequestRepository
	gateway     gateway.PaymentGateway
	publisher   messaging.RedisClient
	logger      *zap.Logger
	now         func() time.Time
}

// NewRefundService creates a new RefundService
func NewRefundService(
	enrollRepo repository.EnrollmentRepository,
	paymentRepo repository.PaymentRepository,
	cancelRepo repository.CancelRequestRepository,
	gw gateway.PaymentGateway,
	publisher messaging.RedisClient,
	logger *zap.Logger,
) *RefundService {
	return &RefundService{
		enrollRepo:  enrollRepo,
		paymentRepo: paymentRepo,
		cancelRepo:  cancelRepo,
		gateway:     gw,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// ComputeRefund calculates the refund for a paid enrollment at the given
// time. Before the lesson starts the full paid amount comes back, locker fee
// included. Once the lesson started, elapsed days (start day inclusive) are
// charged pro rata against the lesson fee and the locker fee is not
// refundable. manualUsedDays, when set, overrides the calendar day count;
// the result is always clamped to [0, paid lesson amount].
func (s *RefundService) ComputeRefund(enrollment *model.Enrollment, payment *model.Payment, at time.Time, manualUsedDays *int) *RefundPreview {
	preview := &RefundPreview{
		LessonTotal:    payment.PaidLessonAmt,
		LockerTotal:    payment.PaidLockerAmt,
		ManualUsedDays: manualUsedDays,
	}

	lesson := enrollment.Lesson
	if lesson == nil || at.Before(lesson.StartDate) {
		preview.FullRefund = true
		preview.TotalDays = totalDaysOf(lesson)
		preview.LessonRefund = payment.PaidLessonAmt
		preview.LockerRefund = payment.PaidLockerAmt
		preview.RefundAmount = preview.LessonRefund.Add(preview.LockerRefund)
		return preview
	}

	totalDays := lesson.TotalDays()
	usedDays := int(at.Sub(lesson.StartDate).Hours()/24) + 1
	if manualUsedDays != nil {
		usedDays = *manualUsedDays
	}
	if usedDays < 0 {
		usedDays = 0
	}
	if usedDays > totalDays {
		usedDays = totalDays
	}

	preview.TotalDays = totalDays
	preview.UsedDays = usedDays
	preview.LockerRefund = decimal.Zero

	remaining := decimal.NewFromInt(int64(totalDays - usedDays))
	refund := payment.PaidLessonAmt.
		Mul(remaining).
		Div(decimal.NewFromInt(int64(totalDays))).
		Round(0)

	if refund.IsNegative() {
		refund = decimal.Zero
	}
	if refund.GreaterThan(payment.PaidLessonAmt) {
		refund = payment.PaidLessonAmt
	}

	preview.LessonRefund = refund
	preview.RefundAmount = refund
	return preview
}

func totalDaysOf(lesson *model.Lesson) int {
	if lesson == nil {
		return 0
	}
	return lesson.TotalDays()
}

// PreviewRefund loads the enrollment and payment and computes the refund the
// user would get if the cancellation were approved right now. userID guards
// ownership; an empty userID skips the check for admin callers.
func (s *RefundService) PreviewRefund(ctx context.Context, enrollmentID int64, userID string, manualUsedDays *int) (*RefundPreview, error) {
	enrollment, err := s.enrollRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && enrollment.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	payment, err := s.paymentRepo.GetByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	return s.ComputeRefund(enrollment, payment, s.now(), manualUsedDays), nil
}

// RequestCancellation handles a user's cancel request. An UNPAID enrollment
// cancels immediately and releases its seat; a PAID one opens a cancel
// request the admin must decide, with the refund preview attached.
func (s *RefundService) RequestCancellation(ctx context.Context, enrollmentID int64, userID, reason string) (*model.CancelRequest, error) {
	enrollment, err := s.enrollRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}

	switch enrollment.PayStatus {
	case model.PayStatusUnpaid:
		applied, err := s.enrollRepo.TransitionAndRelease(ctx,
			enrollmentID, model.PayStatusUnpaid, model.PayStatusCanceledUnpaid, true)
		if err != nil {
			return nil, err
		}
		if !applied {
			// Lost a race with a payment confirmation or the expiration
			// sweep; report against the current state.
			current, err := s.enrollRepo.GetByID(ctx, enrollmentID)
			if err != nil {
				return nil, err
			}
			return nil, domainErrors.NewInvalidTransitionError(
				string(current.PayStatus), string(model.EventCancelBeforePayment))
		}
		s.logger.Info("Unpaid enrollment canceled by user",
			zap.Int64("enrollment_id", enrollmentID),
			zap.String("user_id", userID))
		publishStatus(ctx, s.publisher, s.logger, enrollmentID, model.PayStatusCanceledUnpaid)
		return nil, nil

	case model.PayStatusPaid:
		if _, err := s.cancelRepo.GetOpenByEnrollment(ctx, enrollmentID); err == nil {
			return nil, &domainErrors.InvalidCallbackError{
				Reason: fmt.Sprintf("enrollment %d already has an open cancel request", enrollmentID),
			}
		} else if err != domainErrors.ErrNotFound {
			return nil, err
		}

		payment, err := s.paymentRepo.GetByEnrollmentID(ctx, enrollmentID)
		if err != nil {
			return nil, err
		}
		preview := s.ComputeRefund(enrollment, payment, s.now(), nil)

		req := &model.CancelRequest{
			EnrollmentID: enrollmentID,
			RequestedBy:  userID,
			Reason:       reason,
			PreviewAmt:   preview.RefundAmount,
			Status:       model.CancelRequestRequested,
			RequestedAt:  s.now(),
		}
		if err := s.cancelRepo.Create(ctx, req); err != nil {
			return nil, err
		}
		s.logger.Info("Cancel request opened",
			zap.Int64("cancel_request_id", req.ID),
			zap.Int64("enrollment_id", enrollmentID),
			zap.String("preview_amt", preview.RefundAmount.String()))
		return req, nil

	default:
		return nil, domainErrors.NewInvalidTransitionError(
			string(enrollment.PayStatus), string(model.EventCancelBeforePayment))
	}
}

// WithdrawCancellation lets the requesting user pull back an undecided cancel
// request. Decided requests stay decided.
func (s *RefundService) WithdrawCancellation(ctx context.Context, enrollmentID int64, userID string) error {
	req, err := s.cancelRepo.GetOpenByEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if req.RequestedBy != userID {
		return domainErrors.ErrNotFound
	}

	applied, err := s.cancelRepo.Decide(ctx, req.ID, model.CancelRequestUserWithdrawn, userID, s.now())
	if err != nil {
		return err
	}
	if !applied {
		return &domainErrors.InvalidCallbackError{
			Reason: fmt.Sprintf("cancel request %d was already decided", req.ID),
		}
	}

	s.logger.Info("Cancel request withdrawn",
		zap.Int64("cancel_request_id", req.ID),
		zap.Int64("enrollment_id", enrollmentID))
	return nil
}

// ApproveCancellation executes an admin approval: claim the request with the
// conditional decide (so two admins cannot both approve), recompute the
// refund at approval time, run the gateway refund, then settle the ledger.
func (s *RefundService) ApproveCancellation(ctx context.Context, requestID int64, adminID string, manualUsedDays *int) (*RefundPreview, error) {
	req, err := s.cancelRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.cancelRepo.Decide(ctx, requestID, model.CancelRequestAdminApproved, adminID, s.now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, &domainErrors.InvalidCallbackError{
			Reason: fmt.Sprintf("cancel request %d was already decided", requestID),
		}
	}

	preview, err := s.executeRefund(ctx, req.EnrollmentID, manualUsedDays, fmt.Sprintf("cancel request %d approved by %s", requestID, adminID))
	if err != nil {
		return nil, err
	}
	return preview, nil
}

// DenyCancellation records an admin denial; the enrollment stays PAID.
func (s *RefundService) DenyCancellation(ctx context.Context, requestID int64, adminID string) error {
	applied, err := s.cancelRepo.Decide(ctx, requestID, model.CancelRequestAdminDenied, adminID, s.now())
	if err != nil {
		return err
	}
	if !applied {
		return &domainErrors.InvalidCallbackError{
			Reason: fmt.Sprintf("cancel request %d was already decided", requestID),
		}
	}
	s.logger.Info("Cancel request denied",
		zap.Int64("cancel_request_id", requestID),
		zap.String("admin_id", adminID))
	return nil
}

// ListCancelRequests serves the operator review queue, newest first.
func (s *RefundService) ListCancelRequests(ctx context.Context, status model.CancelRequestStatus, limit, offset int) ([]model.CancelRequest, error) {
	if status == "" {
		status = model.CancelRequestRequested
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.cancelRepo.ListByStatus(ctx, status, limit, offset)
}

// AdminCancelPaid force-cancels a paid enrollment without waiting for the
// gateway: the seat and locker are released now and the refund is queued.
// Used when the lesson itself is canceled or a seat must be freed urgently.
func (s *RefundService) AdminCancelPaid(ctx context.Context, enrollmentID int64, adminID string) error {
	applied, err := s.enrollRepo.TransitionAndRelease(ctx,
		enrollmentID, model.PayStatusPaid, model.PayStatusRefundPendingAdminCancel, true)
	if err != nil {
		return err
	}
	if !applied {
		current, err := s.enrollRepo.GetByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		return domainErrors.NewInvalidTransitionError(
			string(current.PayStatus), string(model.EventAdminCancelRefundLater))
	}

	payment, err := s.paymentRepo.GetByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if err := s.paymentRepo.ApplyRefund(ctx, payment.ID, decimal.Zero, model.PaymentStatusRefundRequested, s.now()); err != nil {
		return err
	}

	s.logger.Info("Paid enrollment canceled by admin, refund queued",
		zap.Int64("enrollment_id", enrollmentID),
		zap.String("admin_id", adminID))
	publishStatus(ctx, s.publisher, s.logger, enrollmentID, model.PayStatusRefundPendingAdminCancel)
	return nil
}

// ExecuteQueuedRefund runs the gateway refund for an enrollment an admin
// already canceled. The seat was released at cancel time; this only moves the
// money and closes the enrollment.
func (s *RefundService) ExecuteQueuedRefund(ctx context.Context, enrollmentID int64, adminID string, manualUsedDays *int) (*RefundPreview, error) {
	enrollment, err := s.enrollRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.PayStatus != model.PayStatusRefundPendingAdminCancel {
		return nil, domainErrors.NewInvalidTransitionError(
			string(enrollment.PayStatus), string(model.EventQueuedRefundExecuted))
	}

	payment, err := s.paymentRepo.GetByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	preview := s.ComputeRefund(enrollment, payment, s.now(), manualUsedDays)

	if preview.RefundAmount.IsPositive() {
		if err := s.refundAtGateway(ctx, payment, preview, fmt.Sprintf("queued refund executed by %s", adminID)); err != nil {
			return nil, err
		}
	}

	status := model.PaymentStatusCanceled
	if preview.RefundAmount.LessThan(payment.TotalPaid()) {
		status = model.PaymentStatusPartialRefunded
	}
	if err := s.paymentRepo.ApplyRefund(ctx, payment.ID, preview.RefundAmount, status, s.now()); err != nil {
		return nil, err
	}

	applied, err := s.enrollRepo.TransitionAndRelease(ctx,
		enrollmentID, model.PayStatusRefundPendingAdminCancel, model.PayStatusRefunded, false)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logger.Warn("Queued refund raced another writer",
			zap.Int64("enrollment_id", enrollmentID))
	} else {
		publishStatus(ctx, s.publisher, s.logger, enrollmentID, model.PayStatusRefunded)
	}
	return preview, nil
}

// executeRefund performs the full approve-time refund flow for a PAID
// enrollment: gateway call, payment ledger update, enrollment transition and
// resource release.
func (s *RefundService) executeRefund(ctx context.Context, enrollmentID int64, manualUsedDays *int, reason string) (*RefundPreview, error) {
	enrollment, err := s.enrollRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.GetByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	preview := s.ComputeRefund(enrollment, payment, s.now(), manualUsedDays)

	if preview.RefundAmount.IsPositive() {
		if err := s.refundAtGateway(ctx, payment, preview, reason); err != nil {
			return nil, err
		}
	}

	paymentStatus := model.PaymentStatusCanceled
	enrollmentStatus := model.PayStatusRefunded
	event := model.EventFullRefundApproved
	release := true
	if !preview.FullRefund {
		// A pro-rated refund keeps the enrollment attached to the lesson for
		// the days already consumed; the seat stays held for bookkeeping.
		paymentStatus = model.PaymentStatusPartialRefunded
		enrollmentStatus = model.PayStatusPartiallyRefunded
		event = model.EventPartialRefundApproved
		release = false
	}

	if err := s.paymentRepo.ApplyRefund(ctx, payment.ID, preview.RefundAmount, paymentStatus, s.now()); err != nil {
		return nil, err
	}

	applied, err := s.enrollRepo.TransitionAndRelease(ctx,
		enrollmentID, model.PayStatusPaid, enrollmentStatus, release)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domainErrors.NewInvalidTransitionError(string(enrollment.PayStatus), string(event))
	}

	s.logger.Info("Refund executed",
		zap.Int64("enrollment_id", enrollmentID),
		zap.String("refund_amount", preview.RefundAmount.String()),
		zap.Bool("full_refund", preview.FullRefund))
	publishStatus(ctx, s.publisher, s.logger, enrollmentID, enrollmentStatus)
	return preview, nil
}

// refundAtGateway issues the cancel against KISPG. Partial is derived from
// the refund amount versus the settled total.
func (s *RefundService) refundAtGateway(ctx context.Context, payment *model.Payment, preview *RefundPreview, reason string) error {
	amount := preview.RefundAmount.IntPart()
	partial := preview.RefundAmount.LessThan(payment.TotalPaid())

	result, err := s.gateway.RequestRefund(ctx, &gateway.RefundRequest{
		TID:     payment.TID,
		Moid:    payment.Moid,
		Amount:  amount,
		Partial: partial,
		Reason:  reason,
	})
	if err != nil {
		return err
	}

	s.logger.Info("Gateway refund accepted",
		zap.String("tid", payment.TID),
		zap.String("cancel_tid", result.CancelTID),
		zap.Int64("amount", amount),
		zap.Bool("partial", partial))
	return nil
}
