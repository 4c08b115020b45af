package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/arisu-sports/lesson-server/internal/config"
	domainErrors "github.com/arisu-sports/lesson-server/internal/domain/errors"
	"github.com/arisu-sports/lesson-server/internal/domain/gateway"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
	"github.com/arisu-sports/lesson-server/internal/usecase"
)

func payableEnrollment(id int64) *model.Enrollment {
	created := time.Now().Add(-1 * time.Minute)
	return &model.Enrollment{
		ID:           id,
		UserID:       "user-1",
		LessonID:     10,
		LessonAmount: decimal.NewFromInt(45000),
		LockerAmount: decimal.NewFromInt(5000),
		PayStatus:    model.PayStatusUnpaid,
		AppStatus:    model.AppStatusApplied,
		ExpireDT:     time.Now().Add(4 * time.Minute),
		CreatedAt:    created,
	}
}

func successCallback(enrollment *model.Enrollment) *gateway.CallbackResult {
	return &gateway.CallbackResult{
		Success:  true,
		TID:      "kispg-tid-001",
		Moid:     gateway.BuildMoid(enrollment.ID, enrollment.CreatedAt),
		Amount:   enrollment.TotalAmount().IntPart(),
		ResultCd: "0000",
	}
}

func newReconcileService(enrollRepo *MockEnrollmentRepository, notifRepo *MockNotificationRepository, gw *MockPaymentGateway) *usecase.ReconcileService {
	cfg := config.PaymentConfig{VerifyRetries: 1}
	return usecase.NewReconcileService(enrollRepo, notifRepo, gw, nil, cfg, zap.NewNop())
}

func TestReconcileService_ApplyConfirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("webhook success verifies then settles", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(1)
		cb := successCallback(enrollment)

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(1)).Return(enrollment, nil)
		gw.On("VerifyTransaction", ctx, gateway.TransactionRef{TID: cb.TID, Moid: cb.Moid}).
			Return(&gateway.TransactionStatus{
				TID:    cb.TID,
				Moid:   cb.Moid,
				Amount: 50000,
				Paid:   true,
			}, nil)
		enrollRepo.On("MarkPaid", ctx, int64(1), mock.MatchedBy(func(p *model.Payment) bool {
			return p.TID == cb.TID && p.PaidLessonAmt.Equal(decimal.NewFromInt(45000))
		})).Return(true, nil)
		notifRepo.On("MarkProcessed", ctx, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "203.0.113.9")

		assert.NoError(t, err)
		enrollRepo.AssertExpectations(t)
		notifRepo.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("failed attempt leaves enrollment payable", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(2)
		cb := successCallback(enrollment)
		cb.Success = false
		cb.ResultCd = "3001"
		cb.ErrorMessage = "card declined"

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(2)).Return(enrollment, nil)
		notifRepo.On("MarkProcessed", ctx, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "")

		assert.NoError(t, err)
		gw.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
		enrollRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replay on settled enrollment is a no-op", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(3)
		cb := successCallback(enrollment)
		enrollment.PayStatus = model.PayStatusPaid

		notifRepo.On("Save", ctx, mock.Anything).Return(false, nil)
		enrollRepo.On("GetByID", ctx, int64(3)).Return(enrollment, nil)
		notifRepo.On("MarkProcessed", ctx, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelReturn, cb, "")

		assert.NoError(t, err)
		gw.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
		enrollRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("late success is flagged, never applied", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(4)
		enrollment.ExpireDT = time.Now().Add(-1 * time.Minute)
		cb := successCallback(enrollment)

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(4)).Return(enrollment, nil)
		notifRepo.On("MarkFlagged", ctx, mock.Anything, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "")

		var expiredErr *domainErrors.EnrollmentExpiredError
		assert.ErrorAs(t, err, &expiredErr)
		assert.Equal(t, int64(4), expiredErr.EnrollmentID)
		gw.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
		enrollRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
		notifRepo.AssertExpectations(t)
	})

	t.Run("late success against already expired enrollment is flagged too", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(5)
		enrollment.PayStatus = model.PayStatusPaymentTimeout
		enrollment.ExpireDT = time.Now().Add(-10 * time.Minute)
		cb := successCallback(enrollment)

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(5)).Return(enrollment, nil)
		notifRepo.On("MarkFlagged", ctx, mock.Anything, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "")

		var expiredErr *domainErrors.EnrollmentExpiredError
		assert.ErrorAs(t, err, &expiredErr)
		notifRepo.AssertExpectations(t)
	})

	t.Run("verification not paid rejects the hint", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(6)
		cb := successCallback(enrollment)

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(6)).Return(enrollment, nil)
		gw.On("VerifyTransaction", ctx, mock.Anything).Return(&gateway.TransactionStatus{
			TID:      cb.TID,
			Moid:     cb.Moid,
			Amount:   50000,
			Paid:     false,
			StatusCd: "CANCELED",
		}, nil)
		notifRepo.On("MarkFailed", ctx, mock.Anything, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "")

		assert.Error(t, err)
		enrollRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("amount mismatch rejects the confirmation", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(7)
		cb := successCallback(enrollment)

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(7)).Return(enrollment, nil)
		gw.On("VerifyTransaction", ctx, mock.Anything).Return(&gateway.TransactionStatus{
			TID:    cb.TID,
			Moid:   cb.Moid,
			Amount: 1000,
			Paid:   true,
		}, nil)
		notifRepo.On("MarkFailed", ctx, mock.Anything, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "")

		var cbErr *domainErrors.InvalidCallbackError
		assert.ErrorAs(t, err, &cbErr)
		enrollRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent channel winning the settle race is not an error", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(8)
		cb := successCallback(enrollment)

		settled := payableEnrollment(8)
		settled.PayStatus = model.PayStatusPaid

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(8)).Return(enrollment, nil).Once()
		gw.On("VerifyTransaction", ctx, mock.Anything).Return(&gateway.TransactionStatus{
			TID:    cb.TID,
			Moid:   cb.Moid,
			Amount: 50000,
			Paid:   true,
		}, nil)
		enrollRepo.On("MarkPaid", ctx, int64(8), mock.Anything).Return(false, nil)
		enrollRepo.On("GetByID", ctx, int64(8)).Return(settled, nil).Once()
		notifRepo.On("MarkProcessed", ctx, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelReturn, cb, "")

		assert.NoError(t, err)
		notifRepo.AssertNotCalled(t, "MarkFlagged", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("verified success losing to the expiration sweeper is flagged", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(15)
		cb := successCallback(enrollment)

		// The sweeper flipped the row between verification and MarkPaid.
		timedOut := payableEnrollment(15)
		timedOut.PayStatus = model.PayStatusPaymentTimeout

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(15)).Return(enrollment, nil).Once()
		gw.On("VerifyTransaction", ctx, mock.Anything).Return(&gateway.TransactionStatus{
			TID:    cb.TID,
			Moid:   cb.Moid,
			Amount: 50000,
			Paid:   true,
		}, nil)
		enrollRepo.On("MarkPaid", ctx, int64(15), mock.Anything).Return(false, nil)
		enrollRepo.On("GetByID", ctx, int64(15)).Return(timedOut, nil).Once()
		notifRepo.On("MarkFlagged", ctx, mock.Anything, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "")

		var expiredErr *domainErrors.EnrollmentExpiredError
		assert.ErrorAs(t, err, &expiredErr)
		assert.Equal(t, int64(15), expiredErr.EnrollmentID)
		notifRepo.AssertCalled(t, "MarkFlagged", ctx, mock.Anything, mock.Anything)
		notifRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed order id is rejected", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		cb := &gateway.CallbackResult{
			Success:  true,
			TID:      "kispg-tid-x",
			Moid:     "order-999",
			ResultCd: "0000",
		}
		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "")

		var orderErr *domainErrors.UnresolvedOrderError
		assert.ErrorAs(t, err, &orderErr)
		enrollRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("gateway outage surfaces a verification error", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(9)
		cb := successCallback(enrollment)

		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("GetByID", ctx, int64(9)).Return(enrollment, nil)
		gw.On("VerifyTransaction", ctx, mock.Anything).Return(nil, errors.New("connection refused"))
		notifRepo.On("MarkFailed", ctx, mock.Anything, mock.Anything).Return(nil)

		err := service.ApplyConfirmation(ctx, usecase.ChannelWebhook, cb, "")

		var verifyErr *domainErrors.GatewayVerificationError
		assert.ErrorAs(t, err, &verifyErr)
		assert.Equal(t, 1, verifyErr.Attempts)
		enrollRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReconcileService_VerifyAndSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("poll settles a missed confirmation", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(20)
		moid := gateway.BuildMoid(enrollment.ID, enrollment.CreatedAt)

		gw.On("VerifyTransaction", ctx, gateway.TransactionRef{Moid: moid}).
			Return(&gateway.TransactionStatus{
				TID:    "kispg-tid-poll",
				Moid:   moid,
				Amount: 50000,
				Paid:   true,
			}, nil)
		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("MarkPaid", ctx, int64(20), mock.Anything).Return(true, nil)
		notifRepo.On("MarkProcessed", ctx, mock.Anything).Return(nil)

		settled, err := service.VerifyAndSettle(ctx, enrollment)

		assert.NoError(t, err)
		assert.True(t, settled)
		gw.AssertExpectations(t)
	})

	t.Run("poll losing the settle race to the sweeper is flagged", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(23)
		moid := gateway.BuildMoid(enrollment.ID, enrollment.CreatedAt)

		timedOut := payableEnrollment(23)
		timedOut.PayStatus = model.PayStatusPaymentTimeout

		gw.On("VerifyTransaction", ctx, gateway.TransactionRef{Moid: moid}).
			Return(&gateway.TransactionStatus{
				TID:    "kispg-tid-race",
				Moid:   moid,
				Amount: 50000,
				Paid:   true,
			}, nil)
		notifRepo.On("Save", ctx, mock.Anything).Return(true, nil)
		enrollRepo.On("MarkPaid", ctx, int64(23), mock.Anything).Return(false, nil)
		enrollRepo.On("GetByID", ctx, int64(23)).Return(timedOut, nil)
		notifRepo.On("MarkFlagged", ctx, mock.Anything, mock.Anything).Return(nil)

		settled, err := service.VerifyAndSettle(ctx, enrollment)

		var expiredErr *domainErrors.EnrollmentExpiredError
		assert.ErrorAs(t, err, &expiredErr)
		assert.False(t, settled)
		notifRepo.AssertCalled(t, "MarkFlagged", ctx, mock.Anything, mock.Anything)
	})

	t.Run("unpaid at the gateway stays unpaid here", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(21)
		gw.On("VerifyTransaction", ctx, mock.Anything).Return(&gateway.TransactionStatus{
			Moid: gateway.BuildMoid(enrollment.ID, enrollment.CreatedAt),
			Paid: false,
		}, nil)

		settled, err := service.VerifyAndSettle(ctx, enrollment)

		assert.NoError(t, err)
		assert.False(t, settled)
		enrollRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already settled enrollment short-circuits", func(t *testing.T) {
		enrollRepo := new(MockEnrollmentRepository)
		notifRepo := new(MockNotificationRepository)
		gw := new(MockPaymentGateway)
		service := newReconcileService(enrollRepo, notifRepo, gw)

		enrollment := payableEnrollment(22)
		enrollment.PayStatus = model.PayStatusPaid

		settled, err := service.VerifyAndSettle(ctx, enrollment)

		assert.NoError(t, err)
		assert.True(t, settled)
		gw.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
	})
}
