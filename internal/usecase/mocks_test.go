package usecase_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/arisu-sports/lesson-server/internal/domain/gateway"
	"github.com/arisu-sports/lesson-server/internal/domain/model"
)

// MockEnrollmentRepository is a mock implementation of EnrollmentRepository
type MockEnrollmentRepository struct {
	mock.Mock
}

func (m *MockEnrollmentRepository) ReserveSeat(ctx context.Context, enrollment *model.Enrollment) error {
	args := m.Called(ctx, enrollment)
	return args.Error(0)
}

func (m *MockEnrollmentRepository) GetByID(ctx context.Context, id int64) (*model.Enrollment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) TransitionAndRelease(ctx context.Context, id int64, from, to model.PayStatus, releaseResources bool) (bool, error) {
	args := m.Called(ctx, id, from, to, releaseResources)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) MarkPaid(ctx context.Context, enrollmentID int64, payment *model.Payment) (bool, error) {
	args := m.Called(ctx, enrollmentID, payment)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) CountHeldSeats(ctx context.Context, lessonID int64) (int64, error) {
	args := m.Called(ctx, lessonID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEnrollmentRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Enrollment, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Enrollment, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Enrollment), args.Error(1)
}

// MockLessonRepository is a mock implementation of LessonRepository
type MockLessonRepository struct {
	mock.Mock
}

func (m *MockLessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lesson), args.Error(1)
}

func (m *MockLessonRepository) List(ctx context.Context, status model.LessonStatus, limit, offset int) ([]model.Lesson, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lesson), args.Error(1)
}

// MockLockerRepository is a mock implementation of LockerRepository
type MockLockerRepository struct {
	mock.Mock
}

func (m *MockLockerRepository) List(ctx context.Context) ([]model.LockerInventory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LockerInventory), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByTID(ctx context.Context, tid string) (*model.Payment, error) {
	args := m.Called(ctx, tid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByEnrollmentID(ctx context.Context, enrollmentID int64) (*model.Payment, error) {
	args := m.Called(ctx, enrollmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ApplyRefund(ctx context.Context, paymentID int64, amount decimal.Decimal, status model.PaymentStatus, refundedAt time.Time) error {
	args := m.Called(ctx, paymentID, amount, status, refundedAt)
	return args.Error(0)
}

// MockCancelRequestRepository is a mock implementation of CancelRequestRepository
type MockCancelRequestRepository struct {
	mock.Mock
}

func (m *MockCancelRequestRepository) Create(ctx context.Context, req *model.CancelRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockCancelRequestRepository) GetByID(ctx context.Context, id int64) (*model.CancelRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CancelRequest), args.Error(1)
}

func (m *MockCancelRequestRepository) GetOpenByEnrollment(ctx context.Context, enrollmentID int64) (*model.CancelRequest, error) {
	args := m.Called(ctx, enrollmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CancelRequest), args.Error(1)
}

func (m *MockCancelRequestRepository) Decide(ctx context.Context, id int64, to model.CancelRequestStatus, decidedBy string, decidedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, to, decidedBy, decidedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockCancelRequestRepository) ListByStatus(ctx context.Context, status model.CancelRequestStatus, limit, offset int) ([]model.CancelRequest, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CancelRequest), args.Error(1)
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Save(ctx context.Context, n *model.GatewayNotification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkProcessed(ctx context.Context, dedupeKey string) error {
	args := m.Called(ctx, dedupeKey)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkFailed(ctx context.Context, dedupeKey string, cause error) error {
	args := m.Called(ctx, dedupeKey, cause)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkFlagged(ctx context.Context, dedupeKey string, note string) error {
	args := m.Called(ctx, dedupeKey, note)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListFlagged(ctx context.Context, limit, offset int) ([]model.GatewayNotification, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GatewayNotification), args.Error(1)
}

// MockPaymentGateway is a mock implementation of the gateway contract
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) VerifyTransaction(ctx context.Context, ref gateway.TransactionRef) (*gateway.TransactionStatus, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.TransactionStatus), args.Error(1)
}

func (m *MockPaymentGateway) RequestRefund(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}

func (m *MockPaymentGateway) Name() string {
	args := m.Called()
	return args.String(0)
}
